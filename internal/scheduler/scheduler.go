package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Loop runs a job once at startup and then on every tick of Interval.
type Loop struct {
	Interval time.Duration
	Job      func(ctx context.Context) error
	Logger   *zap.Logger
}

// Run blocks until ctx is cancelled or a run fails with an error for which
// stop returns true.
// Runs never overlap.
// Errors for which stop returns false are logged and the loop continues.
func (l *Loop) Run(ctx context.Context, stop func(error) bool) error {
	// Run immediately once at startup
	if err := l.runOnce(ctx, stop); err != nil {
		return err
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.runOnce(ctx, stop); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) runOnce(ctx context.Context, stop func(error) bool) error {
	start := time.Now()
	err := l.Job(ctx)
	if err == nil {
		l.Logger.Debug("scheduled run finished", zap.Duration("took", time.Since(start)))
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	if stop != nil && stop(err) {
		return err
	}
	l.Logger.Warn("scheduled run failed", zap.Error(err), zap.Time("next", time.Now().Add(l.Interval)))
	return nil
}
