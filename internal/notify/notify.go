package notify

import (
	"context"

	"go.uber.org/multierr"
)

type Priority string

const (
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
	PriorityUrgent  Priority = "urgent"
)

// rank orders priorities so sinks can filter; unknown values rank as default.
func (p Priority) rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 2
}

// AtLeast reports whether p is as urgent as min.
func (p Priority) AtLeast(min Priority) bool { return p.rank() >= min.rank() }

type Message struct {
	Title    string
	Text     string
	Priority Priority
	Tags     []string
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Multi fans a message out to every sink. One sink failing does not stop
// the others; all errors are returned combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, msg))
	}
	return err
}

// Close closes every sink that holds a connection.
func (m Multi) Close() error {
	var err error
	for _, n := range m {
		if c, ok := n.(interface{ Close() error }); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// Nop drops everything. Used when no sink is configured.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }
