package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/scalekarrt/orderdesk/internal/adapter/stream"
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
)

// OrderUseCase owns the order lifecycle: creation with stock reservation,
// status transitions and cancellation.
type OrderUseCase struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	gateway  PaymentGateway
	events   stream.Publisher
	logger   *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, products repository.ProductRepository, gateway PaymentGateway, events stream.Publisher, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{orders: orders, products: products, gateway: gateway, events: events, logger: logger}
}

const orderCurrency = "INR"

type orderEventPayload struct {
	Status  string `json:"status"`
	BuyerID int64  `json:"buyer_id"`
	Total   string `json:"total"`
}

// Create reserves stock and persists the order in one transaction, then asks
// the gateway for a payment intent. A gateway failure after the reservation
// committed is returned alongside the created order: stock stays reserved and
// the payment step can be retried.
func (u *OrderUseCase) Create(ctx context.Context, buyerID int64, lines []repository.LineRequest, address model.Address) (*model.Order, *model.PaymentIntent, error) {
	if err := validateNewOrder(lines, address); err != nil {
		return nil, nil, err
	}

	order, err := u.orders.CreateWithReservation(ctx, repository.NewOrder{
		BuyerID:         buyerID,
		Lines:           lines,
		ShippingAddress: address,
		Receipt:         "rcpt_" + uuid.NewString(),
	})
	if err != nil {
		return nil, nil, err
	}

	u.events.Publish(ctx, stream.EventOrderCreated, order.ID, orderEventPayload{
		Status:  string(order.Status),
		BuyerID: order.BuyerID,
		Total:   order.TotalPrice.String(),
	})

	intent, err := u.createIntent(ctx, order)
	if err != nil {
		u.logger.Warn("payment intent creation failed after reservation",
			slog.Int64("order", order.ID), slog.String("error", err.Error()))
		return order, nil, err
	}
	return order, intent, nil
}

// RetryPaymentIntent creates a fresh gateway intent for an unpaid order.
func (u *OrderUseCase) RetryPaymentIntent(ctx context.Context, orderID int64, principal model.Principal) (*model.PaymentIntent, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(principal, ActionCancel, order); err != nil {
		return nil, err
	}
	if order.Status != model.OrderStatusProcessing {
		return nil, domainErrors.ErrInvalidTransition
	}
	if order.Paid() {
		return nil, domainErrors.ErrPaymentConflict
	}
	return u.createIntent(ctx, order)
}

func (u *OrderUseCase) createIntent(ctx context.Context, order *model.Order) (*model.PaymentIntent, error) {
	notes := map[string]string{
		"order_id": fmt.Sprintf("%d", order.ID),
		"buyer_id": fmt.Sprintf("%d", order.BuyerID),
	}
	intent, err := u.gateway.CreatePaymentIntent(ctx, order.TotalPrice, orderCurrency, order.Receipt, notes)
	if err != nil {
		return nil, err
	}
	if err := u.orders.SetExternalOrderID(ctx, order.ID, intent.ID); err != nil {
		return nil, err
	}
	order.ExternalOrderID = intent.ID
	return intent, nil
}

// Get loads one order, enforcing the visibility rule.
func (u *OrderUseCase) Get(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(principal, ActionView, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListForBuyer returns the principal's own orders, newest first.
func (u *OrderUseCase) ListForBuyer(ctx context.Context, principal model.Principal, page, limit int) ([]model.Order, int, error) {
	return u.orders.ListByBuyer(ctx, principal.UserID, page, normalizeLimit(limit))
}

// ListForSeller returns orders containing the seller's products.
func (u *OrderUseCase) ListForSeller(ctx context.Context, principal model.Principal, status model.OrderStatus, page, limit int) ([]model.Order, int, error) {
	if principal.Role != model.RoleSeller && principal.Role != model.RoleAdmin {
		return nil, 0, domainErrors.ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, 0, domainErrors.ErrValidation
	}
	return u.orders.ListBySeller(ctx, principal.UserID, status, page, normalizeLimit(limit))
}

// UpdateStatus advances the order along the shipment path. Cancelled is not
// reachable here: cancellation and refund have their own stock-aware paths.
func (u *OrderUseCase) UpdateStatus(ctx context.Context, orderID int64, principal model.Principal, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, domainErrors.ErrValidation
	}
	if status != model.OrderStatusShipped && status != model.OrderStatusDelivered {
		return nil, fmt.Errorf("status %s not reachable via update: %w", status, domainErrors.ErrInvalidTransition)
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(principal, ActionAdvance, order); err != nil {
		return nil, err
	}

	return u.orders.Transition(ctx, orderID, status)
}

// Cancel restores reserved stock and flips the order to Cancelled, provided
// it is still Processing and the caller may cancel it.
func (u *OrderUseCase) Cancel(ctx context.Context, orderID int64, principal model.Principal) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(principal, ActionCancel, order); err != nil {
		return nil, err
	}

	cancelled, err := u.orders.Cancel(ctx, orderID)
	if err != nil {
		return nil, err
	}

	u.events.Publish(ctx, stream.EventOrderCancelled, cancelled.ID, orderEventPayload{
		Status:  string(cancelled.Status),
		BuyerID: cancelled.BuyerID,
		Total:   cancelled.TotalPrice.String(),
	})
	return cancelled, nil
}

// UnpaidForReconciliation claims a batch of unpaid orders for the gateway
// poll. Claimed rows are pushed to the back of the queue so concurrent
// pollers do not fight over them.
func (u *OrderUseCase) UnpaidForReconciliation(ctx context.Context, limit int) ([]model.Order, error) {
	return u.orders.SelectUnpaidForReconciliation(ctx, limit)
}

// ExpiredUnpaid returns unpaid orders whose payment window closed before the
// cutoff.
func (u *OrderUseCase) ExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error) {
	return u.orders.SelectExpiredUnpaid(ctx, cutoff, limit)
}

// ExpireReservation cancels an unpaid order whose payment window lapsed and
// returns its stock. An order that got paid between the sweep's select and
// this call fails with ErrNotCancellable and is left alone.
func (u *OrderUseCase) ExpireReservation(ctx context.Context, orderID int64) (*model.Order, error) {
	expired, err := u.orders.ExpireUnpaid(ctx, orderID)
	if err != nil {
		return nil, err
	}

	u.events.Publish(ctx, stream.EventOrderCancelled, expired.ID, orderEventPayload{
		Status:  string(expired.Status),
		BuyerID: expired.BuyerID,
		Total:   expired.TotalPrice.String(),
	})
	return expired, nil
}

// QuoteCart validates cart lines against live products and prices them
// without reserving anything.
func (u *OrderUseCase) QuoteCart(ctx context.Context, lines []repository.LineRequest) ([]model.OrderLine, model.PriceBreakdown, error) {
	if err := validateLines(lines); err != nil {
		return nil, model.PriceBreakdown{}, err
	}

	quoted := make([]model.OrderLine, 0, len(lines))
	for _, req := range lines {
		product, err := u.products.GetForPurchase(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return nil, model.PriceBreakdown{}, fmt.Errorf("product %d: %w", req.ProductID, domainErrors.ErrProductUnavailable)
			}
			return nil, model.PriceBreakdown{}, err
		}
		if !product.Approved {
			return nil, model.PriceBreakdown{}, fmt.Errorf("product %q: %w", product.Name, domainErrors.ErrProductUnavailable)
		}
		if product.Stock < req.Quantity {
			return nil, model.PriceBreakdown{}, &domainErrors.StockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: req.Quantity,
				Available: product.Stock,
			}
		}
		quoted = append(quoted, model.OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  req.Quantity,
			ImageURL:  product.ImageURL,
			SellerID:  product.SellerID,
		})
	}

	return quoted, model.ComputePriceBreakdown(quoted), nil
}

func validateNewOrder(lines []repository.LineRequest, address model.Address) error {
	if err := validateLines(lines); err != nil {
		return err
	}
	if address.Street == "" || address.City == "" || address.State == "" ||
		address.Country == "" || address.PostalCode == "" {
		return fmt.Errorf("incomplete shipping address: %w", domainErrors.ErrValidation)
	}
	return nil
}

func validateLines(lines []repository.LineRequest) error {
	if len(lines) == 0 {
		return fmt.Errorf("cart is empty: %w", domainErrors.ErrValidation)
	}
	for _, line := range lines {
		if line.ProductID <= 0 || line.Quantity < 1 {
			return fmt.Errorf("bad line (product %d, quantity %d): %w",
				line.ProductID, line.Quantity, domainErrors.ErrValidation)
		}
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit < 1 || limit > 100 {
		return 10
	}
	return limit
}
