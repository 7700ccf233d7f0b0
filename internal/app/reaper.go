package app

import (
	"context"
	"time"

	"github.com/prperemyshlev/otp-auth-service/internal/repository"
	"go.uber.org/zap"
)

// Reaper periodically deletes OTPs and reset tokens that expired more than
// grace ago. Recently expired rows are kept so their owners still get
// CodeExpired or TokenExpired instead of an invalid-code error.
type Reaper struct {
	store    repository.Store
	interval time.Duration
	grace    time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewReaper(store repository.Store, interval, grace time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{
		store:    store,
		interval: interval,
		grace:    grace,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps on every tick until ctx is done. A non-positive interval disables the reaper.
func (r *Reaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("Expired artifact reaper disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	before := r.now().Add(-r.grace)

	otps, err := r.store.OTPs().DeleteExpired(ctx, before)
	if err != nil {
		r.logger.Error("Failed to delete expired OTPs", zap.Error(err))
	}

	tokens, err := r.store.ResetTokens().DeleteExpired(ctx, before)
	if err != nil {
		r.logger.Error("Failed to delete expired reset tokens", zap.Error(err))
	}

	if otps > 0 || tokens > 0 {
		r.logger.Info("Expired artifacts deleted",
			zap.Int64("otps", otps),
			zap.Int64("reset_tokens", tokens),
		)
	}
}
