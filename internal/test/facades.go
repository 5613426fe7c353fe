package test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
)

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	CreateFn   func(context.Context, int64, []repository.LineRequest, model.Address) (*model.Order, *model.PaymentIntent, error)
	OrderFn    func(context.Context, int64, model.Principal) (*model.Order, error)
	BuyerFn    func(context.Context, model.Principal, int, int) ([]model.Order, int, error)
	SellerFn   func(context.Context, model.Principal, model.OrderStatus, int, int) ([]model.Order, int, error)
	AdvanceFn  func(context.Context, int64, model.Principal, model.OrderStatus) (*model.Order, error)
	CancelFn   func(context.Context, int64, model.Principal) (*model.Order, error)
	QuoteFn    func(context.Context, []repository.LineRequest) ([]model.OrderLine, model.PriceBreakdown, error)
	OrderValue *model.Order
}

func (s OrderFacadeStub) defaultOrder() *model.Order {
	if s.OrderValue != nil {
		copied := *s.OrderValue
		return &copied
	}
	return &model.Order{ID: 1, BuyerID: 1, Status: model.OrderStatusProcessing}
}

func (s OrderFacadeStub) CreateOrder(ctx context.Context, buyerID int64, lines []repository.LineRequest, address model.Address) (*model.Order, *model.PaymentIntent, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, buyerID, lines, address)
	}
	return s.defaultOrder(), &model.PaymentIntent{ID: "ext_1", Currency: "INR"}, nil
}

func (s OrderFacadeStub) Order(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, orderID, principal)
	}
	return s.defaultOrder(), nil
}

func (s OrderFacadeStub) BuyerOrders(ctx context.Context, principal model.Principal, page, limit int) ([]model.Order, int, error) {
	if s.BuyerFn != nil {
		return s.BuyerFn(ctx, principal, page, limit)
	}
	return []model.Order{*s.defaultOrder()}, 1, nil
}

func (s OrderFacadeStub) SellerOrders(ctx context.Context, principal model.Principal, status model.OrderStatus, page, limit int) ([]model.Order, int, error) {
	if s.SellerFn != nil {
		return s.SellerFn(ctx, principal, status, page, limit)
	}
	return []model.Order{*s.defaultOrder()}, 1, nil
}

func (s OrderFacadeStub) AdvanceOrder(ctx context.Context, orderID int64, principal model.Principal, status model.OrderStatus) (*model.Order, error) {
	if s.AdvanceFn != nil {
		return s.AdvanceFn(ctx, orderID, principal, status)
	}
	order := s.defaultOrder()
	order.Status = status
	return order, nil
}

func (s OrderFacadeStub) CancelOrder(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, orderID, principal)
	}
	order := s.defaultOrder()
	order.Status = model.OrderStatusCancelled
	return order, nil
}

func (s OrderFacadeStub) QuoteCart(ctx context.Context, lines []repository.LineRequest) ([]model.OrderLine, model.PriceBreakdown, error) {
	if s.QuoteFn != nil {
		return s.QuoteFn(ctx, lines)
	}
	return nil, model.PriceBreakdown{}, nil
}

// PaymentFacadeStub simulates payment operations.
type PaymentFacadeStub struct {
	VerifyFn  func(string, string, string) bool
	ConfirmFn func(context.Context, int64, model.Principal, string, string, string) (*model.Order, error)
	IntentFn  func(context.Context, int64, model.Principal) (*model.PaymentIntent, error)
	RefundFn  func(context.Context, int64, model.Principal, *decimal.Decimal, string) (*model.Refund, error)
}

func (s PaymentFacadeStub) VerifyPayment(externalOrderID, paymentID, signature string) bool {
	if s.VerifyFn != nil {
		return s.VerifyFn(externalOrderID, paymentID, signature)
	}
	return true
}

func (s PaymentFacadeStub) ConfirmPayment(ctx context.Context, orderID int64, principal model.Principal, externalOrderID, paymentID, signature string) (*model.Order, error) {
	if s.ConfirmFn != nil {
		return s.ConfirmFn(ctx, orderID, principal, externalOrderID, paymentID, signature)
	}
	return &model.Order{ID: orderID, Status: model.OrderStatusProcessing}, nil
}

func (s PaymentFacadeStub) RetryPaymentIntent(ctx context.Context, orderID int64, principal model.Principal) (*model.PaymentIntent, error) {
	if s.IntentFn != nil {
		return s.IntentFn(ctx, orderID, principal)
	}
	return &model.PaymentIntent{ID: "ext_1", Currency: "INR"}, nil
}

func (s PaymentFacadeStub) RefundOrder(ctx context.Context, orderID int64, principal model.Principal, amount *decimal.Decimal, reason string) (*model.Refund, error) {
	if s.RefundFn != nil {
		return s.RefundFn(ctx, orderID, principal, amount, reason)
	}
	return &model.Refund{ID: "rfnd_1", Status: "processed"}, nil
}

// WebhookFacadeStub records webhook deliveries.
type WebhookFacadeStub struct {
	HandleFn func(context.Context, []byte, string) error
	Bodies   [][]byte
}

func (s *WebhookFacadeStub) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.HandleFn != nil {
		return s.HandleFn(ctx, body, signature)
	}
	s.Bodies = append(s.Bodies, body)
	return nil
}

// CommerceFacadeStub aggregates facade dependencies for HTTP layer tests.
type CommerceFacadeStub struct {
	OrderFacadeStub
	PaymentFacadeStub
	*WebhookFacadeStub
	TokenParserStub
}

// NewCommerceFacadeStub builds a stub with a usable webhook recorder.
func NewCommerceFacadeStub() *CommerceFacadeStub {
	return &CommerceFacadeStub{
		WebhookFacadeStub: &WebhookFacadeStub{},
		TokenParserStub:   TokenParserStub{Principal: model.Principal{UserID: 1, Role: model.RoleBuyer}},
	}
}

// ReconcileCall records one RecordPayment invocation.
type ReconcileCall struct {
	OrderID int64
	Payment model.PaymentInfo
}

// WorkerFacadeStub mimics worker interactions with the commerce facade.
type WorkerFacadeStub struct {
	mu sync.Mutex

	UnpaidFn   func(context.Context, int) ([]model.Order, error)
	ExpiredFn  func(context.Context, time.Time, int) ([]model.Order, error)
	PaymentsFn func(context.Context, string) ([]model.PaymentInfo, error)
	RecordFn   func(context.Context, int64, model.PaymentInfo) (*model.Order, error)
	ExpireFn   func(context.Context, int64) (*model.Order, error)

	Recorded []ReconcileCall
	Expired  []int64
}

func (s *WorkerFacadeStub) UnpaidOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if s.UnpaidFn != nil {
		return s.UnpaidFn(ctx, limit)
	}
	return nil, nil
}

func (s *WorkerFacadeStub) ExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	if s.ExpiredFn != nil {
		return s.ExpiredFn(ctx, cutoff, limit)
	}
	return nil, nil
}

func (s *WorkerFacadeStub) PaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error) {
	if s.PaymentsFn != nil {
		return s.PaymentsFn(ctx, externalOrderID)
	}
	return nil, nil
}

func (s *WorkerFacadeStub) RecordPayment(ctx context.Context, orderID int64, payment model.PaymentInfo) (*model.Order, error) {
	if s.RecordFn != nil {
		return s.RecordFn(ctx, orderID, payment)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Recorded = append(s.Recorded, ReconcileCall{OrderID: orderID, Payment: payment})
	return &model.Order{ID: orderID, Status: model.OrderStatusProcessing, Payment: &payment}, nil
}

func (s *WorkerFacadeStub) ExpireOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.ExpireFn != nil {
		return s.ExpireFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Expired = append(s.Expired, orderID)
	return &model.Order{ID: orderID, Status: model.OrderStatusCancelled}, nil
}

// RecordedCalls returns a snapshot of recorded payments.
func (s *WorkerFacadeStub) RecordedCalls() []ReconcileCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReconcileCall, len(s.Recorded))
	copy(out, s.Recorded)
	return out
}

// ExpiredCalls returns a snapshot of expired order ids.
func (s *WorkerFacadeStub) ExpiredCalls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.Expired))
	copy(out, s.Expired)
	return out
}
