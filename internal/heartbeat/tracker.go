// Package heartbeat decides from heartbeat arrival timing alone whether the
// monitored link is up, and attributes a cause when it comes back.
//
// Time is always passed in; the package never reads the wall clock.
// Calls are linearised under one mutex in call order: when a late heartbeat
// races a timeout tick, whichever acquires the lock last decides the state.
package heartbeat

import (
	"sync"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

type Config struct {
	Timeout      time.Duration // max silence before the link is declared down
	StartupGrace time.Duration // no down transitions this soon after startup
}

type EventKind string

const (
	EventNone      EventKind = ""
	EventHeartbeat EventKind = "heartbeat"
	EventRestored  EventKind = "restored"
	EventDown      EventKind = "down"
)

type Reason string

const (
	ReasonNoHeartbeat Reason = "no_heartbeat_received"
	ReasonTimeout     Reason = "heartbeat_timeout"
)

// Transition is the result of feeding one heartbeat or one tick.
type Transition struct {
	Event EventKind
	At    time.Time

	// restored
	DurationDown time.Duration
	Cause        domain.Cause
	BootID       string

	// down
	Reason           Reason
	OutageStartedAt  time.Time
	LastHeartbeatAge time.Duration
}

type Tracker struct {
	mu    sync.Mutex
	cfg   Config
	state domain.ConnectivityState
}

// NewTracker starts online: no down alarm can fire before the first tick
// past the grace period.
func NewTracker(cfg Config, startup time.Time) *Tracker {
	return &Tracker{
		cfg: cfg,
		state: domain.ConnectivityState{
			IsOnline:  true,
			StartupAt: startup,
		},
	}
}

func (t *Tracker) RecordHeartbeat(s domain.HeartbeatSample) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := s.ReceivedAt
	wasOffline := !t.state.IsOnline

	t.state.IsOnline = true
	t.state.LastHeartbeatAt = &now
	if s.BootID != "" {
		t.state.LastBootID = s.BootID
	}

	if !wasOffline || t.state.OutageStartedAt == nil {
		return Transition{Event: EventHeartbeat, At: now, BootID: s.BootID}
	}

	down := now.Sub(*t.state.OutageStartedAt)
	if down < 0 {
		down = 0
	}
	cause := ClassifyCause(t.state.BootIDAtOutageStart, s.BootID)
	t.state.OutageStartedAt = nil
	t.state.BootIDAtOutageStart = ""

	return Transition{
		Event:        EventRestored,
		At:           now,
		DurationDown: down,
		Cause:        cause,
		BootID:       s.BootID,
	}
}

// Tick checks for missed heartbeats. It must be called periodically.
func (t *Tracker) Tick(now time.Time) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.state.StartupAt) < t.cfg.StartupGrace {
		return Transition{At: now}
	}
	if !t.state.IsOnline {
		return Transition{At: now}
	}

	if t.state.LastHeartbeatAt == nil {
		t.goOffline(now)
		return Transition{
			Event:           EventDown,
			At:              now,
			Reason:          ReasonNoHeartbeat,
			OutageStartedAt: now,
		}
	}

	age := now.Sub(*t.state.LastHeartbeatAt)
	if age <= t.cfg.Timeout {
		return Transition{At: now}
	}
	// The outage began at the last proof of life, not at detection.
	started := *t.state.LastHeartbeatAt
	t.goOffline(started)
	return Transition{
		Event:            EventDown,
		At:               now,
		Reason:           ReasonTimeout,
		OutageStartedAt:  started,
		LastHeartbeatAge: age,
	}
}

func (t *Tracker) goOffline(started time.Time) {
	t.state.IsOnline = false
	t.state.OutageStartedAt = &started
	t.state.BootIDAtOutageStart = t.state.LastBootID
}

// ResumeOutage seeds an offline state recovered from storage after a
// collector restart. It is a no-op once any heartbeat has been recorded.
func (t *Tracker) ResumeOutage(startedAt time.Time, bootID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.LastHeartbeatAt != nil {
		return
	}
	t.state.IsOnline = false
	t.state.OutageStartedAt = &startedAt
	t.state.BootIDAtOutageStart = bootID
	t.state.LastBootID = bootID
}

// CurrentStatus returns a copy safe to hand to other goroutines.
func (t *Tracker) CurrentStatus() domain.ConnectivityState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.state
	if t.state.LastHeartbeatAt != nil {
		v := *t.state.LastHeartbeatAt
		out.LastHeartbeatAt = &v
	}
	if t.state.OutageStartedAt != nil {
		v := *t.state.OutageStartedAt
		out.OutageStartedAt = &v
	}
	return out
}
