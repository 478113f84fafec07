// Package scheduler runs periodic work on independent tickers. Each call to
// Every owns one goroutine and one ticker; nothing is shared between them, so
// a slow task only delays its own next run.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Task is invoked once per tick.
type Task func(ctx context.Context)

// Scheduler starts periodic tasks and logs their lifecycle.
type Scheduler struct {
	logger *zap.Logger
}

// New creates a new Scheduler with the given logger.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Every runs task every interval on a dedicated goroutine until ctx is
// cancelled. The first run happens one interval after the call; missed ticks
// are dropped rather than queued. Panics in task are not recovered.
func (s *Scheduler) Every(ctx context.Context, name string, interval time.Duration, task Task) {
	s.logger.Info("Scheduling collector",
		zap.String("collector", name),
		zap.Duration("interval", interval))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Collector stopped", zap.String("collector", name))
				return
			case <-ticker.C:
				task(ctx)
			}
		}
	}()
}
