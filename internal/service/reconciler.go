package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reconciler periodically repairs the gap between the local order store
// and the payment gateway: orders committed without a payment intent get
// one retried, and orders whose payment never arrived get expired.
type Reconciler struct {
	orders   OrderService
	interval time.Duration
	logger   zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewReconciler creates a reconciler sweeping at the given interval.
func NewReconciler(orders OrderService, interval time.Duration, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		orders:   orders,
		interval: interval,
		logger:   logger.With().Str("component", "reconciler").Logger(),
	}
}

// Start launches the background sweep loop. Safe to call once.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)

		r.logger.Info().Dur("interval", r.interval).Msg("reconciler started")

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("reconciler stopped")
				return
			case <-ticker.C:
				r.sweep(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight sweep.
func (r *Reconciler) Stop() {
	r.once.Do(func() {
		if r.cancel == nil {
			return
		}
		r.cancel()
		<-r.done
	})
}

// Sweep runs one reconciliation pass immediately.
func (r *Reconciler) Sweep(ctx context.Context) {
	r.sweep(ctx)
}

func (r *Reconciler) sweep(ctx context.Context) {
	if _, err := r.orders.ReconcileMissingIntents(ctx); err != nil {
		r.logger.Error().Err(err).Msg("intent reconciliation sweep failed")
	}
	if _, err := r.orders.ExpireStalePendingOrders(ctx); err != nil {
		r.logger.Error().Err(err).Msg("expiry sweep failed")
	}
}
