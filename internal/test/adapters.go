package test

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// GatewayStub simulates the payment gateway client.
type GatewayStub struct {
	IntentFn   func(context.Context, decimal.Decimal, string, string, map[string]string) (*model.PaymentIntent, error)
	PaymentFn  func(context.Context, string) (*model.PaymentInfo, error)
	PaymentsFn func(context.Context, string) ([]model.PaymentInfo, error)
	RefundFn   func(context.Context, string, *decimal.Decimal, string) (*model.Refund, error)
}

func (s GatewayStub) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, receipt string, notes map[string]string) (*model.PaymentIntent, error) {
	if s.IntentFn != nil {
		return s.IntentFn(ctx, amount, currency, receipt, notes)
	}
	return &model.PaymentIntent{ID: "ext_1", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (s GatewayStub) FetchPayment(ctx context.Context, paymentID string) (*model.PaymentInfo, error) {
	if s.PaymentFn != nil {
		return s.PaymentFn(ctx, paymentID)
	}
	return &model.PaymentInfo{ID: paymentID, Status: model.PaymentStatusCaptured, Currency: "INR"}, nil
}

func (s GatewayStub) FetchPaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error) {
	if s.PaymentsFn != nil {
		return s.PaymentsFn(ctx, externalOrderID)
	}
	return nil, nil
}

func (s GatewayStub) CreateRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*model.Refund, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, paymentID, amount, reason)
	}
	refund := &model.Refund{ID: "rfnd_1", PaymentID: paymentID, Status: "processed", Currency: "INR"}
	if amount != nil {
		refund.Amount = *amount
	}
	return refund, nil
}

// PublishedEvent is one captured event emission.
type PublishedEvent struct {
	Type    string
	OrderID int64
	Payload any
}

// PublisherStub records published events.
type PublisherStub struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

func (s *PublisherStub) Publish(ctx context.Context, eventType string, orderID int64, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, PublishedEvent{Type: eventType, OrderID: orderID, Payload: payload})
}

// Published returns a snapshot of captured events.
func (s *PublisherStub) Published() []PublishedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PublishedEvent, len(s.Events))
	copy(out, s.Events)
	return out
}

// DeduperStub is an in-memory webhook dedup cache.
type DeduperStub struct {
	mu      sync.Mutex
	Marked  map[string]bool
	SeenErr error
	MarkErr error
}

func NewDeduperStub() *DeduperStub {
	return &DeduperStub{Marked: make(map[string]bool)}
}

func (s *DeduperStub) Seen(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SeenErr != nil {
		return false, s.SeenErr
	}
	return s.Marked[eventID], nil
}

func (s *DeduperStub) Mark(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MarkErr != nil {
		return s.MarkErr
	}
	s.Marked[eventID] = true
	return nil
}
