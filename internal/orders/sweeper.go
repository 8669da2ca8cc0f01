package orders

import (
	"context"
	"time"

	"ticketly/pkg/logger"
)

// Sweeper runs the order-expiry job on a fixed interval. One instance per
// process; the status guard in the cancel transition keeps overlapping sweeps
// and racing payment callbacks safe.
type Sweeper struct {
	service  Service
	interval time.Duration
	log      *logger.Logger
	done     chan struct{}
}

func NewSweeper(service Service, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Returns immediately.
func (sw *Sweeper) Start(ctx context.Context) {
	go sw.run(ctx)
	sw.log.Info("order expiry sweeper started", "interval", sw.interval.String())
}

// Stop shuts the loop down. Safe to call once.
func (sw *Sweeper) Stop() {
	close(sw.done)
	sw.log.Info("order expiry sweeper stopped")
}

func (sw *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep(ctx)
		case <-sw.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	swept, err := sw.service.SweepExpiredOrders(ctx)
	if err != nil {
		sw.log.ErrorWithContext(ctx, "order expiry sweep failed", err, nil)
		return
	}
	if swept > 0 {
		sw.log.Info("expired pending orders reclaimed", "count", swept)
	}
}
