package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
	pkgAuth "github.com/scalekarrt/orderdesk/internal/pkg/auth"
	"github.com/scalekarrt/orderdesk/internal/usecase"
)

// CommerceFacade is the single application surface the HTTP layer and the
// reconciliation worker talk to.
type CommerceFacade struct {
	orders   *usecase.OrderUseCase
	payments *usecase.PaymentUseCase
	webhooks *usecase.WebhookUseCase
	tokens   pkgAuth.Strategy
}

func NewCommerceFacade(orders *usecase.OrderUseCase, payments *usecase.PaymentUseCase, webhooks *usecase.WebhookUseCase, tokens pkgAuth.Strategy) *CommerceFacade {
	return &CommerceFacade{orders: orders, payments: payments, webhooks: webhooks, tokens: tokens}
}

func (f *CommerceFacade) ParseToken(token string) (model.Principal, error) {
	return f.tokens.ParseToken(token)
}

func (f *CommerceFacade) CreateOrder(ctx context.Context, buyerID int64, lines []repository.LineRequest, address model.Address) (*model.Order, *model.PaymentIntent, error) {
	return f.orders.Create(ctx, buyerID, lines, address)
}

func (f *CommerceFacade) Order(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error) {
	return f.orders.Get(ctx, orderID, principal)
}

func (f *CommerceFacade) BuyerOrders(ctx context.Context, principal model.Principal, page, limit int) ([]model.Order, int, error) {
	return f.orders.ListForBuyer(ctx, principal, page, limit)
}

func (f *CommerceFacade) SellerOrders(ctx context.Context, principal model.Principal, status model.OrderStatus, page, limit int) ([]model.Order, int, error) {
	return f.orders.ListForSeller(ctx, principal, status, page, limit)
}

func (f *CommerceFacade) AdvanceOrder(ctx context.Context, orderID int64, principal model.Principal, status model.OrderStatus) (*model.Order, error) {
	return f.orders.UpdateStatus(ctx, orderID, principal, status)
}

func (f *CommerceFacade) CancelOrder(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error) {
	return f.orders.Cancel(ctx, orderID, principal)
}

func (f *CommerceFacade) QuoteCart(ctx context.Context, lines []repository.LineRequest) ([]model.OrderLine, model.PriceBreakdown, error) {
	return f.orders.QuoteCart(ctx, lines)
}

func (f *CommerceFacade) VerifyPayment(externalOrderID, paymentID, signature string) bool {
	return f.payments.Verify(externalOrderID, paymentID, signature)
}

func (f *CommerceFacade) ConfirmPayment(ctx context.Context, orderID int64, principal model.Principal, externalOrderID, paymentID, signature string) (*model.Order, error) {
	return f.payments.Confirm(ctx, orderID, principal, externalOrderID, paymentID, signature)
}

func (f *CommerceFacade) RetryPaymentIntent(ctx context.Context, orderID int64, principal model.Principal) (*model.PaymentIntent, error) {
	return f.orders.RetryPaymentIntent(ctx, orderID, principal)
}

func (f *CommerceFacade) RefundOrder(ctx context.Context, orderID int64, principal model.Principal, amount *decimal.Decimal, reason string) (*model.Refund, error) {
	return f.payments.Refund(ctx, orderID, principal, amount, reason)
}

func (f *CommerceFacade) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	return f.webhooks.Handle(ctx, body, signature)
}

// Worker-facing surface.

func (f *CommerceFacade) UnpaidOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return f.orders.UnpaidForReconciliation(ctx, limit)
}

func (f *CommerceFacade) ExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return f.orders.ExpiredUnpaid(ctx, cutoff, limit)
}

func (f *CommerceFacade) PaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error) {
	return f.payments.PaymentsForIntent(ctx, externalOrderID)
}

func (f *CommerceFacade) RecordPayment(ctx context.Context, orderID int64, payment model.PaymentInfo) (*model.Order, error) {
	return f.payments.Record(ctx, orderID, payment)
}

func (f *CommerceFacade) ExpireOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	return f.orders.ExpireReservation(ctx, orderID)
}
