// Package noshow periodically marks confirmed appointments whose start passed long ago
// without a check-in.
package noshow

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is implemented by *scheduler.Scheduler.
type Sweeper interface {
	SweepNoShows(ctx context.Context, now time.Time, grace time.Duration) (int, error)
}

type Worker struct {
	sweeper  Sweeper
	logger   *slog.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

type WorkerConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

func NewWorker(sweeper Sweeper, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 15 * time.Minute
	}
	return &Worker{
		sweeper:  sweeper,
		logger:   logger,
		interval: cfg.Interval,
		grace:    cfg.Grace,
		now:      time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep and returns how many appointments were marked.
func (w *Worker) RunOnce(ctx context.Context) int {
	n, err := w.sweeper.SweepNoShows(ctx, w.now(), w.grace)
	if err != nil {
		w.logger.Error("no-show sweep failed", "err", err, "marked", n)
		return n
	}
	if n > 0 {
		w.logger.Info("no-show sweep", "marked", n)
	}
	return n
}
