package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
)

// OrderFacade encapsulates order lifecycle operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, buyerID int64, lines []repository.LineRequest, address model.Address) (*model.Order, *model.PaymentIntent, error)
	Order(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error)
	BuyerOrders(ctx context.Context, principal model.Principal, page, limit int) ([]model.Order, int, error)
	SellerOrders(ctx context.Context, principal model.Principal, status model.OrderStatus, page, limit int) ([]model.Order, int, error)
	AdvanceOrder(ctx context.Context, orderID int64, principal model.Principal, status model.OrderStatus) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error)
	QuoteCart(ctx context.Context, lines []repository.LineRequest) ([]model.OrderLine, model.PriceBreakdown, error)
}

// PaymentFacade provides payment verification, confirmation and refunds.
type PaymentFacade interface {
	VerifyPayment(externalOrderID, paymentID, signature string) bool
	ConfirmPayment(ctx context.Context, orderID int64, principal model.Principal, externalOrderID, paymentID, signature string) (*model.Order, error)
	RetryPaymentIntent(ctx context.Context, orderID int64, principal model.Principal) (*model.PaymentIntent, error)
	RefundOrder(ctx context.Context, orderID int64, principal model.Principal, amount *decimal.Decimal, reason string) (*model.Refund, error)
}

// WebhookFacade applies asynchronous gateway notifications.
type WebhookFacade interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// CommerceFacade aggregates the full set of operations used across handlers.
type CommerceFacade interface {
	OrderFacade
	PaymentFacade
	WebhookFacade
	ParseToken(token string) (model.Principal, error)
}
