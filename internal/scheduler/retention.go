package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/repo"
)

// Pruner deletes events older than the retention window.
type Pruner struct {
	Store  repo.EventStore
	Keep   time.Duration
	Logger *zap.Logger
	Now    func() time.Time
}

func NewPruner(store repo.EventStore, retentionDays int, logger *zap.Logger) *Pruner {
	return &Pruner{
		Store:  store,
		Keep:   time.Duration(retentionDays) * 24 * time.Hour,
		Logger: logger,
		Now:    time.Now,
	}
}

// Loop returns a daily loop that prunes once at startup too.
func (p *Pruner) Loop() *Loop {
	return &Loop{
		Name:      "retention",
		Interval:  24 * time.Hour,
		Immediate: true,
		Fn:        p.RunOnce,
		Logger:    p.Logger,
	}
}

func (p *Pruner) RunOnce(ctx context.Context) {
	if p.Keep <= 0 {
		return
	}
	cutoff := p.Now().Add(-p.Keep)
	n, err := p.Store.Prune(ctx, cutoff)
	if err != nil {
		p.Logger.Warn("retention_prune_error", zap.Error(err))
		return
	}
	if n > 0 {
		p.Logger.Info("retention_pruned", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
}
