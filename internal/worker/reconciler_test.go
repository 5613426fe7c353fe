package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/scalekarrt/orderdesk/internal/adapter/gateway"
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
	testhelpers "github.com/scalekarrt/orderdesk/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestReconcilerRecordsCapturedPayment(t *testing.T) {
	var served atomic.Bool
	facade := &testhelpers.WorkerFacadeStub{
		UnpaidFn: func(context.Context, int) ([]model.Order, error) {
			if served.Swap(true) {
				return nil, nil
			}
			return []model.Order{{ID: 7, ExternalOrderID: "ext_7", Status: model.OrderStatusProcessing}}, nil
		},
		PaymentsFn: func(_ context.Context, externalOrderID string) ([]model.PaymentInfo, error) {
			if externalOrderID != "ext_7" {
				t.Errorf("unexpected intent id %q", externalOrderID)
			}
			return []model.PaymentInfo{
				{ID: "pay_failed", Status: model.PaymentStatusFailed},
				{ID: "pay_ok", Status: model.PaymentStatusCaptured},
			}, nil
		},
	}

	rec := NewReconciler(facade, 10*time.Millisecond, 2, 2, time.Minute, discardLogger())
	rec.Start(context.Background())
	defer rec.Stop()

	waitFor(t, func() bool { return len(facade.RecordedCalls()) == 1 })
	call := facade.RecordedCalls()[0]
	if call.OrderID != 7 || call.Payment.ID != "pay_ok" {
		t.Fatalf("unexpected recorded call %+v", call)
	}
}

func TestReconcilerSkipsOrdersWithoutIntent(t *testing.T) {
	var served atomic.Bool
	var fetched atomic.Bool
	facade := &testhelpers.WorkerFacadeStub{
		UnpaidFn: func(context.Context, int) ([]model.Order, error) {
			if served.Swap(true) {
				return nil, nil
			}
			return []model.Order{{ID: 8, Status: model.OrderStatusProcessing}}, nil
		},
		PaymentsFn: func(context.Context, string) ([]model.PaymentInfo, error) {
			fetched.Store(true)
			return nil, nil
		},
	}

	rec := NewReconciler(facade, 10*time.Millisecond, 1, 1, time.Minute, discardLogger())
	rec.Start(context.Background())
	waitFor(t, func() bool { return served.Load() })
	time.Sleep(30 * time.Millisecond)
	rec.Stop()

	if fetched.Load() {
		t.Fatal("expected no gateway call for an order without an intent")
	}
}

func TestReconcilerToleratesTransientGatewayErrors(t *testing.T) {
	var calls atomic.Int32
	facade := &testhelpers.WorkerFacadeStub{
		UnpaidFn: func(context.Context, int) ([]model.Order, error) {
			return []model.Order{{ID: 9, ExternalOrderID: "ext_9", Status: model.OrderStatusProcessing}}, nil
		},
		PaymentsFn: func(context.Context, string) ([]model.PaymentInfo, error) {
			calls.Add(1)
			return nil, &gateway.TransientError{Err: errors.New("connection refused")}
		},
	}

	rec := NewReconciler(facade, 10*time.Millisecond, 1, 1, time.Minute, discardLogger())
	rec.Start(context.Background())
	waitFor(t, func() bool { return calls.Load() >= 2 })
	rec.Stop()

	if len(facade.RecordedCalls()) != 0 {
		t.Fatal("expected no payment recorded while the gateway is down")
	}
}

func TestReconcilerExpiresStaleReservations(t *testing.T) {
	var served atomic.Bool
	var gotCutoff atomic.Value
	facade := &testhelpers.WorkerFacadeStub{
		ExpiredFn: func(_ context.Context, cutoff time.Time, _ int) ([]model.Order, error) {
			if served.Swap(true) {
				return nil, nil
			}
			gotCutoff.Store(cutoff)
			return []model.Order{{ID: 11, Status: model.OrderStatusProcessing}}, nil
		},
	}
	rec := NewReconciler(facade, 10*time.Millisecond, 1, 1, 30*time.Minute, discardLogger())
	rec.Start(context.Background())
	defer rec.Stop()

	waitFor(t, func() bool { return len(facade.ExpiredCalls()) == 1 })
	if facade.ExpiredCalls()[0] != 11 {
		t.Fatalf("expected order 11 expired, got %v", facade.ExpiredCalls())
	}

	cutoff, _ := gotCutoff.Load().(time.Time)
	if time.Since(cutoff) < 29*time.Minute {
		t.Fatalf("expected cutoff about 30m in the past, got %v", cutoff)
	}
}

func TestReconcilerIgnoresPaymentRaceOnExpire(t *testing.T) {
	var served atomic.Bool
	var attempts atomic.Int32
	facade := &testhelpers.WorkerFacadeStub{
		ExpiredFn: func(context.Context, time.Time, int) ([]model.Order, error) {
			if served.Swap(true) {
				return nil, nil
			}
			return []model.Order{{ID: 12, Status: model.OrderStatusProcessing}}, nil
		},
		ExpireFn: func(context.Context, int64) (*model.Order, error) {
			attempts.Add(1)
			return nil, domainErrors.ErrNotCancellable
		},
	}

	rec := NewReconciler(facade, 10*time.Millisecond, 1, 1, time.Minute, discardLogger())
	rec.Start(context.Background())
	defer rec.Stop()

	waitFor(t, func() bool { return attempts.Load() == 1 })
}

func TestReconcilerStopDrainsWorkers(t *testing.T) {
	facade := &testhelpers.WorkerFacadeStub{}
	rec := NewReconciler(facade, 5*time.Millisecond, 2, 3, time.Minute, discardLogger())
	rec.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		rec.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Stop to return")
	}
}
