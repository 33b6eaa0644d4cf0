package repo

import (
	"context"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

// EventStore is the append-only event log. Append is idempotent on Event.ID
// so at-least-once delivery from the reporter is safe.
type EventStore interface {
	Append(ctx context.Context, e domain.Event) error
	// Range returns events with from <= ObservedAt <= to, oldest first.
	// An empty typ matches every type.
	Range(ctx context.Context, from, to time.Time, typ domain.EventType) ([]domain.Event, error)
	// Prune deletes events observed before the cutoff.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
