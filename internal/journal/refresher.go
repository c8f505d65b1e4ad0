package journal

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Refresher periodically re-syncs subscription credits and expiry.
type Refresher struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

// NewRefresher creates a new Refresher.
func NewRefresher(service *Service, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		service:  service,
		interval: interval,
		logger:   logger.Named("refresher"),
	}
}

// Run refreshes once immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("Subscription refresh disabled")
		return
	}

	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Starting subscription refresh loop", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping subscription refresh loop...")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	n, err := r.service.RefreshSubscriptions(ctx)
	if err != nil {
		r.logger.Error("Subscription refresh failed", zap.Error(err))
		return
	}
	r.logger.Debug("Subscriptions refreshed", zap.Int("count", n))
}
