package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const sweepTimeout = 30 * time.Second

// Sweeper runs one breach detection pass.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunBreachSweeper calls sweeper every interval until ctx is cancelled. A
// non-positive interval disables the loop.
func RunBreachSweeper(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) {
	if sweeper == nil || interval <= 0 {
		logger.Info("sla breach sweeper disabled")
		return
	}

	logger.Info("sla breach sweeper started", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("sla breach sweeper stopped")
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
			reported, err := sweeper.Sweep(sweepCtx)
			cancel()
			if err != nil {
				logger.Error("sla breach sweep failed", zap.Error(err))
				continue
			}
			if reported > 0 {
				logger.Info("sla breaches reported", zap.Int("count", reported))
			}
		}
	}
}
