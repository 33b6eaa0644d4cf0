package pushclient

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
)

// Item is one queued delivery. Exactly one of Event or Outage is set.
type Item struct {
	ID     string
	Event  *domain.Event
	Outage *domain.OutageReport
}

func EventItem(e domain.Event) Item {
	return Item{ID: e.ID, Event: &e}
}

func OutageItem(r domain.OutageReport) Item {
	return Item{ID: uuid.NewString(), Outage: &r}
}

// ring is a fixed-capacity FIFO. Not safe for concurrent use.
type ring struct {
	buf      []Item
	head     int // oldest item
	count    int
	overflow bool // set once per overflow run, cleared when the ring empties
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]Item, capacity)}
}

// push appends it, dropping the oldest item when full. It returns the
// dropped item and whether this is the first drop since the ring was empty.
func (r *ring) push(it Item) (dropped Item, firstDrop, didDrop bool) {
	c := len(r.buf)
	if r.count == c {
		dropped = r.buf[r.head]
		r.buf[r.head] = it
		r.head = (r.head + 1) % c
		firstDrop = !r.overflow
		r.overflow = true
		return dropped, firstDrop, true
	}
	r.buf[(r.head+r.count)%c] = it
	r.count++
	return Item{}, false, false
}

func (r *ring) peek() (Item, bool) {
	if r.count == 0 {
		return Item{}, false
	}
	return r.buf[r.head], true
}

func (r *ring) pop() {
	if r.count == 0 {
		return
	}
	r.buf[r.head] = Item{}
	r.head = (r.head + 1) % len(r.buf)
	r.count--
	if r.count == 0 {
		r.overflow = false
	}
}

// Outbox buffers items while the collector is unreachable and replays
// them in order. Delivery is at-least-once; the collector drops
// duplicates by ID.
type Outbox struct {
	log *zap.Logger

	mu     sync.Mutex
	ring   *ring
	queued map[string]struct{}

	flushMu sync.Mutex
}

func NewOutbox(capacity int, log *zap.Logger) *Outbox {
	return &Outbox{
		log:    log,
		ring:   newRing(capacity),
		queued: make(map[string]struct{}),
	}
}

// Push queues it unless an item with the same ID is already waiting.
func (o *Outbox) Push(it Item) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, dup := o.queued[it.ID]; dup {
		return
	}
	dropped, first, did := o.ring.push(it)
	o.queued[it.ID] = struct{}{}
	if did {
		delete(o.queued, dropped.ID)
		if first {
			o.log.Warn("outbox_full_dropping_oldest", zap.Int("capacity", len(o.ring.buf)))
		}
	}
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ring.count
}

// Flush sends queued items oldest first and stops at the first failure,
// leaving that item and everything after it queued. Concurrent flushes
// are serialised.
func (o *Outbox) Flush(ctx context.Context, send func(context.Context, Item) error) (int, error) {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	sent := 0
	for {
		o.mu.Lock()
		it, ok := o.ring.peek()
		o.mu.Unlock()
		if !ok {
			return sent, nil
		}
		if err := send(ctx, it); err != nil {
			return sent, err
		}
		sent++
		o.mu.Lock()
		// the item may have been pushed out by an overflow while sending
		if head, ok := o.ring.peek(); ok && head.ID == it.ID {
			o.ring.pop()
		}
		delete(o.queued, it.ID)
		o.mu.Unlock()
	}
}
