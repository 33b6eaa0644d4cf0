package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Loop runs Fn every Interval until ctx is cancelled. Each periodic
// concern gets its own Loop so a slow pass never delays another task.
type Loop struct {
	Name     string
	Interval time.Duration
	// Immediate runs one pass before the first tick.
	Immediate bool
	Fn        func(ctx context.Context)
	Logger    *zap.Logger
}

// Run blocks until ctx is done. A zero Interval disables the loop.
func (l *Loop) Run(ctx context.Context) {
	if l.Interval <= 0 {
		l.Logger.Info("loop_disabled", zap.String("loop", l.Name))
		return
	}
	t := time.NewTicker(l.Interval)
	defer t.Stop()

	if l.Immediate {
		l.runOnce(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			l.Logger.Info("loop_stopped", zap.String("loop", l.Name))
			return
		case <-t.C:
			l.runOnce(ctx)
		}
	}
}

// runOnce contains panics so one bad pass skips a cycle instead of
// killing the task.
func (l *Loop) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.Logger.Error("loop_panic", zap.String("loop", l.Name), zap.Any("panic", r))
		}
	}()
	l.Fn(ctx)
}
