package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/scalekarrt/orderdesk/internal/adapter/stream"
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	"github.com/scalekarrt/orderdesk/internal/domain/repository"
	testhelpers "github.com/scalekarrt/orderdesk/internal/test"
	"github.com/scalekarrt/orderdesk/internal/usecase"
)

var discardLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

var testAddress = model.Address{
	Street: "1 Main St", City: "Pune", State: "MH", Country: "IN", PostalCode: "411001",
}

func sampleOrder() *model.Order {
	return &model.Order{
		ID:         10,
		BuyerID:    1,
		Status:     model.OrderStatusProcessing,
		Receipt:    "rcpt_1",
		TotalPrice: decimal.RequireFromString("275"),
		Lines: []model.OrderLine{
			{ProductID: 7, Name: "mug", UnitPrice: decimal.RequireFromString("250"), Quantity: 1, SellerID: 2},
		},
		ShippingAddress: testAddress,
	}
}

func newOrderUseCase(orders *testhelpers.OrderRepositoryStub, products *testhelpers.ProductRepositoryStub, gw testhelpers.GatewayStub) (*usecase.OrderUseCase, *testhelpers.PublisherStub) {
	if products == nil {
		products = &testhelpers.ProductRepositoryStub{}
	}
	events := &testhelpers.PublisherStub{}
	return usecase.NewOrderUseCase(orders, products, gw, events, discardLogger), events
}

func TestCreateOrder(t *testing.T) {
	orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
	uc, events := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

	order, intent, err := uc.Create(context.Background(), 1,
		[]repository.LineRequest{{ProductID: 7, Quantity: 1}}, testAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order == nil || order.ID != 10 {
		t.Fatalf("unexpected order %+v", order)
	}
	if intent == nil || intent.ID != "ext_1" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if len(orders.ExternalIDs) != 1 || orders.ExternalIDs[0] != "ext_1" {
		t.Fatalf("expected intent id persisted, got %v", orders.ExternalIDs)
	}

	published := events.Published()
	if len(published) != 1 || published[0].Type != stream.EventOrderCreated {
		t.Fatalf("expected one created event, got %+v", published)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	uc, _ := newOrderUseCase(&testhelpers.OrderRepositoryStub{}, nil, testhelpers.GatewayStub{})

	tests := []struct {
		name    string
		lines   []repository.LineRequest
		address model.Address
	}{
		{"empty cart", nil, testAddress},
		{"zero quantity", []repository.LineRequest{{ProductID: 7, Quantity: 0}}, testAddress},
		{"negative product id", []repository.LineRequest{{ProductID: -1, Quantity: 1}}, testAddress},
		{"missing address", []repository.LineRequest{{ProductID: 7, Quantity: 1}}, model.Address{Street: "1 Main St"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := uc.Create(context.Background(), 1, tc.lines, tc.address)
			if !errors.Is(err, domainErrors.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateOrderGatewayFailureKeepsReservation(t *testing.T) {
	orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
	gw := testhelpers.GatewayStub{
		IntentFn: func(context.Context, decimal.Decimal, string, string, map[string]string) (*model.PaymentIntent, error) {
			return nil, errors.New("gateway down")
		},
	}
	uc, events := newOrderUseCase(orders, nil, gw)

	order, intent, err := uc.Create(context.Background(), 1,
		[]repository.LineRequest{{ProductID: 7, Quantity: 1}}, testAddress)
	if err == nil {
		t.Fatal("expected gateway error")
	}
	if order == nil {
		t.Fatal("order must be returned so the client can retry the intent")
	}
	if intent != nil {
		t.Fatalf("expected no intent, got %+v", intent)
	}
	if len(events.Published()) != 1 {
		t.Fatal("created event must still be published")
	}
}

func TestCreateOrderOutOfStock(t *testing.T) {
	orders := &testhelpers.OrderRepositoryStub{
		CreateFn: func(context.Context, repository.NewOrder) (*model.Order, error) {
			return nil, &domainErrors.StockError{ProductID: 7, Name: "mug", Requested: 2, Available: 1}
		},
	}
	uc, events := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

	_, _, err := uc.Create(context.Background(), 1,
		[]repository.LineRequest{{ProductID: 7, Quantity: 2}}, testAddress)
	if !errors.Is(err, domainErrors.ErrOutOfStock) {
		t.Fatalf("expected out of stock, got %v", err)
	}
	if len(events.Published()) != 0 {
		t.Fatal("no events for a failed reservation")
	}
}

func TestCreateOrderConcurrentStock(t *testing.T) {
	const (
		stock  = 5
		buyers = 8
	)

	var (
		mu        sync.Mutex
		remaining = stock
		nextID    int64
	)
	orders := &testhelpers.OrderRepositoryStub{
		CreateFn: func(_ context.Context, in repository.NewOrder) (*model.Order, error) {
			mu.Lock()
			defer mu.Unlock()
			if remaining < in.Lines[0].Quantity {
				return nil, &domainErrors.StockError{
					ProductID: in.Lines[0].ProductID, Name: "mug",
					Requested: in.Lines[0].Quantity, Available: remaining,
				}
			}
			remaining -= in.Lines[0].Quantity
			nextID++
			order := sampleOrder()
			order.ID = nextID
			order.BuyerID = in.BuyerID
			return order, nil
		},
	}
	uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

	errs := make(chan error, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(buyerID int64) {
			defer wg.Done()
			_, _, err := uc.Create(context.Background(), buyerID,
				[]repository.LineRequest{{ProductID: 7, Quantity: 1}}, testAddress)
			errs <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(errs)

	var created, rejected int
	for err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, domainErrors.ErrOutOfStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != stock || rejected != buyers-stock {
		t.Fatalf("expected %d reservations and %d rejections, got %d and %d",
			stock, buyers-stock, created, rejected)
	}
	if remaining != 0 {
		t.Fatalf("expected stock exhausted, got %d left", remaining)
	}
}

func TestRetryPaymentIntent(t *testing.T) {
	buyer := model.Principal{UserID: 1, Role: model.RoleBuyer}

	t.Run("issues a fresh intent", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		intent, err := uc.RetryPaymentIntent(context.Background(), 10, buyer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if intent == nil || intent.ID != "ext_1" {
			t.Fatalf("unexpected intent %+v", intent)
		}
	})

	t.Run("another buyer is forbidden", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		_, err := uc.RetryPaymentIntent(context.Background(), 10, model.Principal{UserID: 99, Role: model.RoleBuyer})
		if !errors.Is(err, domainErrors.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("shipped order cannot retry", func(t *testing.T) {
		shipped := sampleOrder()
		shipped.Status = model.OrderStatusShipped
		orders := &testhelpers.OrderRepositoryStub{Order: shipped}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		_, err := uc.RetryPaymentIntent(context.Background(), 10, buyer)
		if !errors.Is(err, domainErrors.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
	})

	t.Run("paid order cannot retry", func(t *testing.T) {
		paid := sampleOrder()
		paid.Payment = &model.PaymentInfo{ID: "pay_1", Status: model.PaymentStatusCaptured}
		orders := &testhelpers.OrderRepositoryStub{Order: paid}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		_, err := uc.RetryPaymentIntent(context.Background(), 10, buyer)
		if !errors.Is(err, domainErrors.ErrPaymentConflict) {
			t.Fatalf("expected payment conflict, got %v", err)
		}
	})
}

func TestGetOrderVisibility(t *testing.T) {
	orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
	uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

	tests := []struct {
		name      string
		principal model.Principal
		wantErr   error
	}{
		{"buyer sees own order", model.Principal{UserID: 1, Role: model.RoleBuyer}, nil},
		{"seller sees order with own line", model.Principal{UserID: 2, Role: model.RoleSeller}, nil},
		{"admin sees everything", model.Principal{UserID: 99, Role: model.RoleAdmin}, nil},
		{"stranger is forbidden", model.Principal{UserID: 99, Role: model.RoleBuyer}, domainErrors.ErrForbidden},
		{"unrelated seller is forbidden", model.Principal{UserID: 99, Role: model.RoleSeller}, domainErrors.ErrForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Get(context.Background(), 10, tc.principal)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestListForSeller(t *testing.T) {
	var gotStatus model.OrderStatus
	var gotLimit int
	orders := &testhelpers.OrderRepositoryStub{
		ListBySellerFn: func(_ context.Context, _ int64, status model.OrderStatus, _ int, limit int) ([]model.Order, int, error) {
			gotStatus, gotLimit = status, limit
			return []model.Order{*sampleOrder()}, 1, nil
		},
	}
	uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})
	seller := model.Principal{UserID: 2, Role: model.RoleSeller}

	if _, _, err := uc.ListForSeller(context.Background(), seller, model.OrderStatusShipped, 1, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotStatus != model.OrderStatusShipped {
		t.Fatalf("status filter not passed through, got %q", gotStatus)
	}
	if gotLimit != 10 {
		t.Fatalf("expected out-of-range limit to normalize to 10, got %d", gotLimit)
	}

	if _, _, err := uc.ListForSeller(context.Background(), seller, "Refunded", 1, 10); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	buyer := model.Principal{UserID: 1, Role: model.RoleBuyer}
	if _, _, err := uc.ListForSeller(context.Background(), buyer, "", 1, 10); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected forbidden for buyer, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	seller := model.Principal{UserID: 2, Role: model.RoleSeller}

	t.Run("seller ships the order", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		order, err := uc.UpdateStatus(context.Background(), 10, seller, model.OrderStatusShipped)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.Status != model.OrderStatusShipped {
			t.Fatalf("expected Shipped, got %q", order.Status)
		}
	})

	t.Run("cancelled is not reachable via update", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		if _, err := uc.UpdateStatus(context.Background(), 10, seller, model.OrderStatusCancelled); !errors.Is(err, domainErrors.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		if _, err := uc.UpdateStatus(context.Background(), 10, seller, "Refunded"); !errors.Is(err, domainErrors.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("buyer may not advance", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})
		buyer := model.Principal{UserID: 1, Role: model.RoleBuyer}

		if _, err := uc.UpdateStatus(context.Background(), 10, buyer, model.OrderStatusShipped); !errors.Is(err, domainErrors.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("skipping to delivered fails", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		if _, err := uc.UpdateStatus(context.Background(), 10, seller, model.OrderStatusDelivered); !errors.Is(err, domainErrors.ErrInvalidTransition) {
			t.Fatalf("expected invalid transition, got %v", err)
		}
	})
}

func TestCancelOrder(t *testing.T) {
	buyer := model.Principal{UserID: 1, Role: model.RoleBuyer}

	t.Run("buyer cancels a processing order", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, events := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		order, err := uc.Cancel(context.Background(), 10, buyer)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.Status != model.OrderStatusCancelled {
			t.Fatalf("expected Cancelled, got %q", order.Status)
		}
		published := events.Published()
		if len(published) != 1 || published[0].Type != stream.EventOrderCancelled {
			t.Fatalf("expected one cancelled event, got %+v", published)
		}
	})

	t.Run("shipped order is not cancellable", func(t *testing.T) {
		shipped := sampleOrder()
		shipped.Status = model.OrderStatusShipped
		orders := &testhelpers.OrderRepositoryStub{Order: shipped}
		uc, events := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

		if _, err := uc.Cancel(context.Background(), 10, buyer); !errors.Is(err, domainErrors.ErrNotCancellable) {
			t.Fatalf("expected not cancellable, got %v", err)
		}
		if len(events.Published()) != 0 {
			t.Fatal("no event for a failed cancel")
		}
	})

	t.Run("seller may not cancel", func(t *testing.T) {
		orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
		uc, _ := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})
		seller := model.Principal{UserID: 2, Role: model.RoleSeller}

		if _, err := uc.Cancel(context.Background(), 10, seller); !errors.Is(err, domainErrors.ErrForbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestExpireReservation(t *testing.T) {
	orders := &testhelpers.OrderRepositoryStub{Order: sampleOrder()}
	uc, events := newOrderUseCase(orders, nil, testhelpers.GatewayStub{})

	order, err := uc.ExpireReservation(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %q", order.Status)
	}
	published := events.Published()
	if len(published) != 1 || published[0].Type != stream.EventOrderCancelled {
		t.Fatalf("expected one cancelled event, got %+v", published)
	}
}

func TestQuoteCart(t *testing.T) {
	products := &testhelpers.ProductRepositoryStub{
		Products: map[int64]model.Product{
			7: {ID: 7, SellerID: 2, Name: "mug", Price: decimal.RequireFromString("250.00"), Stock: 3, Approved: true},
			8: {ID: 8, SellerID: 2, Name: "poster", Price: decimal.RequireFromString("25.00"), Stock: 1, Approved: false},
		},
	}
	uc, _ := newOrderUseCase(&testhelpers.OrderRepositoryStub{}, products, testhelpers.GatewayStub{})

	t.Run("prices without reserving", func(t *testing.T) {
		lines, breakdown, err := uc.QuoteCart(context.Background(), []repository.LineRequest{{ProductID: 7, Quantity: 1}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(lines) != 1 || lines[0].Name != "mug" {
			t.Fatalf("unexpected lines %+v", lines)
		}
		if !breakdown.TotalPrice.Equal(decimal.RequireFromString("275")) {
			t.Fatalf("expected total 275, got %s", breakdown.TotalPrice)
		}
	})

	t.Run("unapproved product", func(t *testing.T) {
		_, _, err := uc.QuoteCart(context.Background(), []repository.LineRequest{{ProductID: 8, Quantity: 1}})
		if !errors.Is(err, domainErrors.ErrProductUnavailable) {
			t.Fatalf("expected product unavailable, got %v", err)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		_, _, err := uc.QuoteCart(context.Background(), []repository.LineRequest{{ProductID: 99, Quantity: 1}})
		if !errors.Is(err, domainErrors.ErrProductUnavailable) {
			t.Fatalf("expected product unavailable, got %v", err)
		}
	})

	t.Run("insufficient stock", func(t *testing.T) {
		_, _, err := uc.QuoteCart(context.Background(), []repository.LineRequest{{ProductID: 7, Quantity: 5}})
		var stockErr *domainErrors.StockError
		if !errors.As(err, &stockErr) || stockErr.Available != 3 {
			t.Fatalf("expected stock error with availability, got %v", err)
		}
	})
}
