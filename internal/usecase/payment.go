package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/adapter/stream"
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
)

// PaymentGateway is the slice of the gateway client the usecases depend on.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*model.PaymentIntent, error)
	FetchPayment(ctx context.Context, paymentID string) (*model.PaymentInfo, error)
	FetchPaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error)
	CreateRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*model.Refund, error)
}

// SignatureVerifier validates gateway-issued payment confirmations.
type SignatureVerifier interface {
	VerifyPayment(externalOrderID, paymentID, signature string) bool
	VerifyWebhook(body []byte, signature string) bool
}

// PaymentUseCase owns payment verification, recording and refunds.
type PaymentUseCase struct {
	orders   repository.OrderRepository
	gateway  PaymentGateway
	verifier SignatureVerifier
	events   stream.Publisher
	logger   *slog.Logger
}

// NewPaymentUseCase constructs PaymentUseCase.
func NewPaymentUseCase(orders repository.OrderRepository, gateway PaymentGateway, verifier SignatureVerifier, events stream.Publisher, logger *slog.Logger) *PaymentUseCase {
	return &PaymentUseCase{orders: orders, gateway: gateway, verifier: verifier, events: events, logger: logger}
}

// Verify checks a checkout confirmation signature. A mismatch is a normal
// negative result, not an error.
func (u *PaymentUseCase) Verify(externalOrderID, paymentID, signature string) bool {
	return u.verifier.VerifyPayment(externalOrderID, paymentID, signature)
}

// Confirm applies a signed checkout confirmation to the order. The signature
// alone is not trusted: the intent must be the order's own and the payment's
// authoritative status is fetched from the gateway and must be captured.
func (u *PaymentUseCase) Confirm(ctx context.Context, orderID int64, principal model.Principal, externalOrderID, paymentID, signature string) (*model.Order, error) {
	if !u.verifier.VerifyPayment(externalOrderID, paymentID, signature) {
		return nil, domainErrors.ErrInvalidSignature
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(principal, ActionCancel, order); err != nil {
		return nil, err
	}
	if order.ExternalOrderID == "" || order.ExternalOrderID != externalOrderID {
		return nil, fmt.Errorf("intent %s is not order %d's intent: %w",
			externalOrderID, orderID, domainErrors.ErrPaymentConflict)
	}

	payment, err := u.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	return u.Record(ctx, orderID, *payment)
}

// Record applies a captured payment to an order, once. Re-recording the same
// payment id is a successful no-op.
func (u *PaymentUseCase) Record(ctx context.Context, orderID int64, payment model.PaymentInfo) (*model.Order, error) {
	if payment.Status != model.PaymentStatusCaptured {
		return nil, fmt.Errorf("payment %s status %q: %w", payment.ID, payment.Status, domainErrors.ErrPaymentNotCaptured)
	}

	order, applied, err := u.orders.RecordPayment(ctx, orderID, payment)
	if err != nil {
		return nil, err
	}

	if applied {
		u.events.Publish(ctx, stream.EventPaymentCaptured, order.ID, paymentEventPayload{
			PaymentID: payment.ID,
			Amount:    payment.Amount.String(),
			Currency:  payment.Currency,
		})
	}
	return order, nil
}

// FetchPayment proxies the gateway's authoritative payment state.
func (u *PaymentUseCase) FetchPayment(ctx context.Context, paymentID string) (*model.PaymentInfo, error) {
	return u.gateway.FetchPayment(ctx, paymentID)
}

// PaymentsForIntent lists every payment attempt the gateway holds for an
// intent, used by the reconciliation poll.
func (u *PaymentUseCase) PaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error) {
	return u.gateway.FetchPaymentsForIntent(ctx, externalOrderID)
}

type paymentEventPayload struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	RefundID  string `json:"refund_id,omitempty"`
}

const defaultRefundReason = "requested_by_customer"

// Refund refunds the order's captured payment through the gateway, then
// cancels the order. Stock returns only if the order never shipped. A failed
// gateway call leaves the order untouched.
func (u *PaymentUseCase) Refund(ctx context.Context, orderID int64, principal model.Principal, amount *decimal.Decimal, reason string) (*model.Refund, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(principal, ActionRefund, order); err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, domainErrors.ErrNoPayment
	}

	if reason == "" {
		reason = defaultRefundReason
	}

	refund, err := u.gateway.CreateRefund(ctx, order.Payment.ID, amount, reason)
	if err != nil {
		return nil, err
	}

	restock := order.Status == model.OrderStatusProcessing
	if _, err := u.orders.CancelForRefund(ctx, orderID, restock); err != nil {
		// The gateway refund went through; surface the local failure loudly so
		// operators reconcile the order by hand.
		u.logger.Error("order cancel after refund failed",
			slog.Int64("order", orderID), slog.String("refund", refund.ID), slog.String("error", err.Error()))
		return nil, err
	}

	u.events.Publish(ctx, stream.EventOrderRefunded, orderID, paymentEventPayload{
		PaymentID: order.Payment.ID,
		Amount:    refund.Amount.String(),
		Currency:  refund.Currency,
		RefundID:  refund.ID,
	})
	return refund, nil
}
