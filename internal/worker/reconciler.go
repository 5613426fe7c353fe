package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/scalekarrt/orderdesk/internal/adapter/gateway"
	domainErrors "github.com/scalekarrt/orderdesk/internal/domain/errors"
	"github.com/scalekarrt/orderdesk/internal/domain/model"
)

// CommerceFacade exposes the subset of application functionality required by
// the worker.
type CommerceFacade interface {
	UnpaidOrders(ctx context.Context, limit int) ([]model.Order, error)
	ExpiredUnpaid(ctx context.Context, cutoff time.Time, limit int) ([]model.Order, error)
	PaymentsForIntent(ctx context.Context, externalOrderID string) ([]model.PaymentInfo, error)
	RecordPayment(ctx context.Context, orderID int64, payment model.PaymentInfo) (*model.Order, error)
	ExpireOrder(ctx context.Context, orderID int64) (*model.Order, error)
}

type job struct {
	order  model.Order
	expire bool
}

// Reconciler polls the payment gateway for captures the webhook missed and
// releases reservations whose payment window lapsed.
type Reconciler struct {
	facade        CommerceFacade
	pollInterval  time.Duration
	batchSize     int
	workers       int
	paymentWindow time.Duration
	logger        *slog.Logger

	jobs   chan job
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs the reconciliation worker pool.
func NewReconciler(facade CommerceFacade, pollInterval time.Duration, batchSize, workers int, paymentWindow time.Duration, logger *slog.Logger) *Reconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Reconciler{
		facade:        facade,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		workers:       workers,
		paymentWindow: paymentWindow,
		logger:        logger,
		jobs:          make(chan job, batchSize*workers),
	}
}

// Start launches background processing.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *Reconciler) fetchAndDispatch(ctx context.Context) {
	unpaid, err := r.facade.UnpaidOrders(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("fetch unpaid orders failed", slog.String("error", err.Error()))
	} else {
		r.enqueue(ctx, unpaid, false)
	}

	expired, err := r.facade.ExpiredUnpaid(ctx, time.Now().Add(-r.paymentWindow), r.batchSize)
	if err != nil {
		r.logger.Error("fetch expired orders failed", slog.String("error", err.Error()))
		return
	}
	r.enqueue(ctx, expired, true)
}

func (r *Reconciler) enqueue(ctx context.Context, orders []model.Order, expire bool) {
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- job{order: order, expire: expire}:
		}
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-r.jobs:
			if !ok {
				return
			}
			if j.expire {
				r.expireOrder(ctx, j.order)
			} else {
				r.reconcileOrder(ctx, j.order)
			}
		}
	}
}

func (r *Reconciler) reconcileOrder(ctx context.Context, order model.Order) {
	if order.ExternalOrderID == "" {
		return
	}

	payments, err := r.facade.PaymentsForIntent(ctx, order.ExternalOrderID)
	if err != nil {
		if gateway.IsTransient(err) {
			r.logger.Warn("gateway unavailable, will retry",
				slog.Int64("order", order.ID), slog.String("error", err.Error()))
			return
		}
		r.logger.Error("gateway payments fetch failed",
			slog.Int64("order", order.ID), slog.String("error", err.Error()))
		return
	}

	for _, payment := range payments {
		if payment.Status != model.PaymentStatusCaptured {
			continue
		}
		if _, err := r.facade.RecordPayment(ctx, order.ID, payment); err != nil {
			r.logger.Error("record reconciled payment failed",
				slog.Int64("order", order.ID), slog.String("payment", payment.ID), slog.String("error", err.Error()))
		}
		return
	}
}

func (r *Reconciler) expireOrder(ctx context.Context, order model.Order) {
	if _, err := r.facade.ExpireOrder(ctx, order.ID); err != nil {
		// A payment landing between the sweep's select and the cancel is
		// expected; the next reconcile pass picks the order up as paid.
		if errors.Is(err, domainErrors.ErrNotCancellable) {
			return
		}
		r.logger.Error("expire reservation failed",
			slog.Int64("order", order.ID), slog.String("error", err.Error()))
		return
	}
	r.logger.Info("reservation expired", slog.Int64("order", order.ID))
}
