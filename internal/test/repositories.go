package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
)

// OrderRepositoryStub provides controllable order persistence for tests.
// Unset functions fall back to the in-memory Order field.
type OrderRepositoryStub struct {
	mu sync.Mutex

	Order *model.Order

	CreateFn          func(context.Context, repository.NewOrder) (*model.Order, error)
	GetByIDFn         func(context.Context, int64) (*model.Order, error)
	GetByExternalFn   func(context.Context, string) (*model.Order, error)
	ListByBuyerFn     func(context.Context, int64, int, int) ([]model.Order, int, error)
	ListBySellerFn    func(context.Context, int64, model.OrderStatus, int, int) ([]model.Order, int, error)
	SetExternalFn     func(context.Context, int64, string) error
	TransitionFn      func(context.Context, int64, model.OrderStatus) (*model.Order, error)
	CancelFn          func(context.Context, int64) (*model.Order, error)
	CancelForRefundFn func(context.Context, int64, bool) (*model.Order, error)
	RecordPaymentFn   func(context.Context, int64, model.PaymentInfo) (*model.Order, bool, error)
	SelectUnpaidFn    func(context.Context, int) ([]model.Order, error)
	SelectExpiredFn   func(context.Context, time.Time, int) ([]model.Order, error)
	ExpireUnpaidFn    func(context.Context, int64) (*model.Order, error)

	ExternalIDs []string
}

func (s *OrderRepositoryStub) stored() (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Order == nil {
		return nil, domainErrors.ErrNotFound
	}
	copied := *s.Order
	return &copied, nil
}

func (s *OrderRepositoryStub) CreateWithReservation(ctx context.Context, in repository.NewOrder) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, in)
	}
	return s.stored()
}

func (s *OrderRepositoryStub) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, orderID)
	}
	return s.stored()
}

func (s *OrderRepositoryStub) GetByExternalOrderID(ctx context.Context, externalOrderID string) (*model.Order, error) {
	if s.GetByExternalFn != nil {
		return s.GetByExternalFn(ctx, externalOrderID)
	}
	return s.stored()
}

func (s *OrderRepositoryStub) ListByBuyer(ctx context.Context, buyerID int64, page, limit int) ([]model.Order, int, error) {
	if s.ListByBuyerFn != nil {
		return s.ListByBuyerFn(ctx, buyerID, page, limit)
	}
	return nil, 0, nil
}

func (s *OrderRepositoryStub) ListBySeller(ctx context.Context, sellerID int64, status model.OrderStatus, page, limit int) ([]model.Order, int, error) {
	if s.ListBySellerFn != nil {
		return s.ListBySellerFn(ctx, sellerID, status, page, limit)
	}
	return nil, 0, nil
}

func (s *OrderRepositoryStub) SetExternalOrderID(ctx context.Context, orderID int64, externalOrderID string) error {
	if s.SetExternalFn != nil {
		return s.SetExternalFn(ctx, orderID, externalOrderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExternalIDs = append(s.ExternalIDs, externalOrderID)
	if s.Order != nil {
		s.Order.ExternalOrderID = externalOrderID
	}
	return nil
}

func (s *OrderRepositoryStub) Transition(ctx context.Context, orderID int64, to model.OrderStatus) (*model.Order, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, orderID, to)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Order == nil {
		return nil, domainErrors.ErrNotFound
	}
	if !model.CanTransition(s.Order.Status, to) {
		return nil, domainErrors.ErrInvalidTransition
	}
	s.Order.Status = to
	copied := *s.Order
	return &copied, nil
}

func (s *OrderRepositoryStub) Cancel(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Order == nil {
		return nil, domainErrors.ErrNotFound
	}
	if s.Order.Status != model.OrderStatusProcessing {
		return nil, domainErrors.ErrNotCancellable
	}
	s.Order.Status = model.OrderStatusCancelled
	copied := *s.Order
	return &copied, nil
}

func (s *OrderRepositoryStub) CancelForRefund(ctx context.Context, orderID int64, restock bool) (*model.Order, error) {
	if s.CancelForRefundFn != nil {
		return s.CancelForRefundFn(ctx, orderID, restock)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Order == nil {
		return nil, domainErrors.ErrNotFound
	}
	s.Order.Status = model.OrderStatusCancelled
	copied := *s.Order
	return &copied, nil
}

func (s *OrderRepositoryStub) RecordPayment(ctx context.Context, orderID int64, payment model.PaymentInfo) (*model.Order, bool, error) {
	if s.RecordPaymentFn != nil {
		return s.RecordPaymentFn(ctx, orderID, payment)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Order == nil {
		return nil, false, domainErrors.ErrNotFound
	}
	if s.Order.Payment != nil {
		if s.Order.Payment.ID == payment.ID {
			copied := *s.Order
			return &copied, false, nil
		}
		return nil, false, domainErrors.ErrPaymentConflict
	}
	s.Order.Payment = &payment
	copied := *s.Order
	return &copied, true, nil
}

func (s *OrderRepositoryStub) SelectUnpaidForReconciliation(ctx context.Context, limit int) ([]model.Order, error) {
	if s.SelectUnpaidFn != nil {
		return s.SelectUnpaidFn(ctx, limit)
	}
	return nil, nil
}

func (s *OrderRepositoryStub) SelectExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	if s.SelectExpiredFn != nil {
		return s.SelectExpiredFn(ctx, cutoff, limit)
	}
	return nil, nil
}

func (s *OrderRepositoryStub) ExpireUnpaid(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.ExpireUnpaidFn != nil {
		return s.ExpireUnpaidFn(ctx, orderID)
	}
	return s.Cancel(ctx, orderID)
}

// ProductRepositoryStub serves catalog lookups from a fixed map.
type ProductRepositoryStub struct {
	Products map[int64]model.Product

	GetFn    func(context.Context, int64) (*model.Product, error)
	AdjustFn func(context.Context, int64, int) error
}

func (s *ProductRepositoryStub) GetForPurchase(ctx context.Context, productID int64) (*model.Product, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, productID)
	}
	product, ok := s.Products[productID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &product, nil
}

func (s *ProductRepositoryStub) AdjustStock(ctx context.Context, productID int64, delta int) error {
	if s.AdjustFn != nil {
		return s.AdjustFn(ctx, productID, delta)
	}
	return nil
}

var (
	_ repository.OrderRepository   = (*OrderRepositoryStub)(nil)
	_ repository.ProductRepository = (*ProductRepositoryStub)(nil)
)
