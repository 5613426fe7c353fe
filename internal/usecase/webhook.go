package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/adapter/dedup"
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
)

// Webhook event types delivered by the gateway.
const (
	webhookPaymentCaptured = "payment.captured"
	webhookPaymentFailed   = "payment.failed"
	webhookRefundProcessed = "refund.processed"
)

// PaymentRecorder applies a captured payment to an order idempotently.
type PaymentRecorder interface {
	Record(ctx context.Context, orderID int64, payment model.PaymentInfo) (*model.Order, error)
}

// WebhookUseCase verifies and applies asynchronous gateway notifications.
type WebhookUseCase struct {
	orders   repository.OrderRepository
	recorder PaymentRecorder
	verifier SignatureVerifier
	dedup    dedup.Deduper
	logger   *slog.Logger
}

// NewWebhookUseCase constructs WebhookUseCase.
func NewWebhookUseCase(orders repository.OrderRepository, recorder PaymentRecorder, verifier SignatureVerifier, deduper dedup.Deduper, logger *slog.Logger) *WebhookUseCase {
	return &WebhookUseCase{orders: orders, recorder: recorder, verifier: verifier, dedup: deduper, logger: logger}
}

type webhookEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type webhookPaymentEntity struct {
	ID       string            `json:"id"`
	OrderID  string            `json:"order_id"`
	Status   string            `json:"status"`
	Method   string            `json:"method"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes"`
}

// Handle verifies the raw body signature and applies the event. Once the
// signature checks out the delivery is always acknowledged (nil error), even
// when the event is unknown or processing fails downstream; only
// ErrInvalidSignature rejects the delivery.
func (u *WebhookUseCase) Handle(ctx context.Context, rawBody []byte, signature string) error {
	if !u.verifier.VerifyWebhook(rawBody, signature) {
		return domainErrors.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		u.logger.Warn("webhook body undecodable", slog.String("error", err.Error()))
		return nil
	}

	if event.ID != "" {
		seen, err := u.dedup.Seen(ctx, event.ID)
		if err != nil {
			// The cache is a shortcut, not the authority; fall through to the
			// order row.
			u.logger.Warn("webhook dedup lookup failed", slog.String("error", err.Error()))
		} else if seen {
			u.logger.Info("webhook already processed", slog.String("event_id", event.ID))
			return nil
		}
	}

	switch event.Event {
	case webhookPaymentCaptured:
		u.applyCapture(ctx, event.Payload.Payment.Entity)
	case webhookPaymentFailed:
		u.logger.Info("payment failed",
			slog.String("payment", event.Payload.Payment.Entity.ID),
			slog.String("intent", event.Payload.Payment.Entity.OrderID))
	case webhookRefundProcessed:
		u.logger.Info("refund processed",
			slog.String("payment", event.Payload.Payment.Entity.ID))
	default:
		u.logger.Info("ignoring webhook event", slog.String("event", event.Event))
	}

	if event.ID != "" {
		if err := u.dedup.Mark(ctx, event.ID); err != nil {
			u.logger.Warn("webhook dedup mark failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

func (u *WebhookUseCase) applyCapture(ctx context.Context, entity webhookPaymentEntity) {
	orderID, err := u.resolveOrder(ctx, entity)
	if err != nil {
		u.logger.Warn("webhook capture for unknown order",
			slog.String("payment", entity.ID),
			slog.String("intent", entity.OrderID),
			slog.String("error", err.Error()))
		return
	}

	payment := model.PaymentInfo{
		ID:       entity.ID,
		Status:   model.PaymentStatus(entity.Status),
		Method:   entity.Method,
		Amount:   decimal.NewFromInt(entity.Amount).Div(decimal.NewFromInt(100)),
		Currency: entity.Currency,
	}

	if _, err := u.recorder.Record(ctx, orderID, payment); err != nil {
		u.logger.Warn("webhook payment apply failed",
			slog.Int64("order", orderID),
			slog.String("payment", entity.ID),
			slog.String("error", err.Error()))
	}
}

// resolveOrder maps the gateway payment back to a local order, preferring the
// order id stamped into the intent notes over an intent lookup.
func (u *WebhookUseCase) resolveOrder(ctx context.Context, entity webhookPaymentEntity) (int64, error) {
	if raw, ok := entity.Notes["order_id"]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id, nil
		}
	}

	if entity.OrderID == "" {
		return 0, errors.New("no order reference in payment entity")
	}

	order, err := u.orders.GetByExternalOrderID(ctx, entity.OrderID)
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}
