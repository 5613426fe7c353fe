package repository

import (
	"context"
	"time"

	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// NewOrder is the input to order creation: requested lines plus the shipping
// address. Snapshots and prices are taken inside the reservation transaction.
type NewOrder struct {
	BuyerID         int64
	Lines           []LineRequest
	ShippingAddress model.Address
	Receipt         string
}

// LineRequest is one (product, quantity) pair from the cart.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// OrderRepository describes persistence operations with orders. Every method
// that touches more than one record runs as a single transaction.
type OrderRepository interface {
	// CreateWithReservation locks each product row, checks approval and stock,
	// decrements stock and inserts the order with snapshot lines, all in one
	// transaction. Any failed line aborts the whole operation.
	CreateWithReservation(ctx context.Context, in NewOrder) (*model.Order, error)

	GetByID(ctx context.Context, orderID int64) (*model.Order, error)
	GetByExternalOrderID(ctx context.Context, externalOrderID string) (*model.Order, error)
	ListByBuyer(ctx context.Context, buyerID int64, page, limit int) ([]model.Order, int, error)
	ListBySeller(ctx context.Context, sellerID int64, status model.OrderStatus, page, limit int) ([]model.Order, int, error)

	// SetExternalOrderID records the gateway intent created for the order.
	SetExternalOrderID(ctx context.Context, orderID int64, externalOrderID string) error

	// Transition moves the order along the status machine after re-reading the
	// current status under a row lock. Illegal steps fail with
	// ErrInvalidTransition and leave the order untouched.
	Transition(ctx context.Context, orderID int64, to model.OrderStatus) (*model.Order, error)

	// Cancel restores every line's stock and flips the status to Cancelled in
	// one transaction. Fails with ErrNotCancellable unless still Processing.
	Cancel(ctx context.Context, orderID int64) (*model.Order, error)

	// CancelForRefund flips the status to Cancelled after a successful gateway
	// refund, restoring stock only when restock is set (order never shipped).
	CancelForRefund(ctx context.Context, orderID int64, restock bool) (*model.Order, error)

	// RecordPayment applies a captured payment to the order. Reapplying the
	// same payment id is a no-op; applied reports whether state changed.
	RecordPayment(ctx context.Context, orderID int64, payment model.PaymentInfo) (order *model.Order, applied bool, err error)

	// SelectUnpaidForReconciliation claims a batch of orders that have a
	// payment intent but no recorded payment, skipping rows locked by
	// concurrent reconcilers.
	SelectUnpaidForReconciliation(ctx context.Context, limit int) ([]model.Order, error)

	// SelectExpiredUnpaid returns unpaid Processing orders created before the
	// cutoff, candidates for the reservation sweep.
	SelectExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)

	// ExpireUnpaid cancels an order and restores its stock, but only while it
	// is still Processing with no recorded payment. A payment racing in ahead
	// of the sweep makes it fail with ErrNotCancellable.
	ExpireUnpaid(ctx context.Context, orderID int64) (*model.Order, error)
}
