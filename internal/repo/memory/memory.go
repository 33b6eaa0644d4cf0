package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/repo"
)

var _ repo.EventStore = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	ids    map[string]struct{}
	events []domain.Event
}

func New() *Store {
	return &Store{
		ids:    make(map[string]struct{}),
		events: make([]domain.Event, 0, 128),
	}
}

func (m *Store) Append(ctx context.Context, e domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID != "" {
		if _, dup := m.ids[e.ID]; dup {
			return nil
		}
		m.ids[e.ID] = struct{}{}
	}
	m.events = append(m.events, e)
	return nil
}

func (m *Store) Range(ctx context.Context, from, to time.Time, typ domain.EventType) ([]domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Event, 0)
	for _, e := range m.events {
		if e.ObservedAt.Before(from) || e.ObservedAt.After(to) {
			continue
		}
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

func (m *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if e.ObservedAt.Before(before) {
			delete(m.ids, e.ID)
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

func (m *Store) Close() error { return nil }
