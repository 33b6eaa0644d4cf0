// Package agent is the reporting node: it probes the link, tracks its own
// outages, runs and triages bandwidth tests, and pushes everything to the
// collector through an outbox.
package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/notify"
	"github.com/hamed0406/linkwatch/internal/probe"
	"github.com/hamed0406/linkwatch/internal/pushclient"
	"github.com/hamed0406/linkwatch/internal/repo"
	"github.com/hamed0406/linkwatch/internal/scheduler"
	"github.com/hamed0406/linkwatch/internal/triage"
)

type Config struct {
	PingInterval       time.Duration
	HeartbeatInterval  time.Duration
	HighLatencyMS      float64
	SlowThresholdMbps  float64
	SlowRetestInterval time.Duration
	ScheduledInterval  time.Duration
}

// Prober checks the link once.
type Prober interface {
	Run(ctx context.Context) probe.CheckResult
}

// Pusher is the collector side of the wire.
type Pusher interface {
	Heartbeat(ctx context.Context, bootID string, uptimeSeconds float64) error
	Deliver(ctx context.Context, it pushclient.Item) error
}

// Deps bundles the agent's collaborators. Authoritative may be nil when no
// confirmation tester is available.
type Deps struct {
	Prober        Prober
	Quick         triage.Tester
	Authoritative triage.Tester
	Pusher        Pusher
	Outbox        *pushclient.Outbox
	Store         repo.EventStore
	Notifier      notify.Notifier
	System        SystemInfo
	Logger        *zap.Logger
	Now           func() time.Time
}

type Agent struct {
	cfg    Config
	d      Deps
	triage *triage.Triage
	log    *zap.Logger
	now    func() time.Time

	requests chan domain.Trigger
	reqMu    sync.Mutex
	queued   map[domain.Trigger]bool // pending in requests
	testMu   sync.Mutex              // one bandwidth test at a time

	mu          sync.Mutex
	online      bool
	outageStart *time.Time
	lastProbe   *probe.CheckResult
	lastTest    *domain.SpeedTestOutcome
	lastTestAt  time.Time
	lastBeatAt  time.Time
}

func New(cfg Config, d Deps) *Agent {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if cfg.ScheduledInterval <= 0 {
		cfg.ScheduledInterval = time.Hour
	}
	if cfg.SlowRetestInterval <= 0 {
		cfg.SlowRetestInterval = 5 * time.Minute
	}
	if d.System == nil {
		d.System = ProcInfo{}
	}
	return &Agent{
		cfg:      cfg,
		d:        d,
		triage:   triage.New(d.Authoritative, d.Logger),
		log:      d.Logger,
		now:      d.Now,
		requests: make(chan domain.Trigger, 8),
		queued:   make(map[domain.Trigger]bool),
		online:   true,
	}
}

// Status is the reporter's self view served on GET /status.
type Status struct {
	Online          bool                     `json:"online"`
	OutageStartedAt *time.Time               `json:"outage_started_at,omitempty"`
	SlowMode        bool                     `json:"slow_mode"`
	LastTarget      string                   `json:"last_target,omitempty"`
	LastPingMS      *float64                 `json:"last_ping_ms,omitempty"`
	LastTest        *domain.SpeedTestOutcome `json:"last_test,omitempty"`
	LastHeartbeatAt *time.Time               `json:"last_heartbeat_at,omitempty"`
	OutboxPending   int                      `json:"outbox_pending"`
}

func (a *Agent) Status() Status {
	a.mu.Lock()
	st := Status{
		Online:   a.online,
		SlowMode: a.triage.SlowMode(),
	}
	if a.outageStart != nil {
		v := *a.outageStart
		st.OutageStartedAt = &v
	}
	if a.lastProbe != nil {
		st.LastTarget = a.lastProbe.Target
		st.LastPingMS = a.lastProbe.LatencyMS
	}
	if a.lastTest != nil {
		v := *a.lastTest
		st.LastTest = &v
	}
	if !a.lastBeatAt.IsZero() {
		v := a.lastBeatAt
		st.LastHeartbeatAt = &v
	}
	a.mu.Unlock()
	if a.d.Outbox != nil {
		st.OutboxPending = a.d.Outbox.Len()
	}
	return st
}

// Run starts every periodic task and blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) {
	loops := []*scheduler.Loop{
		{Name: "probe", Interval: a.cfg.PingInterval, Immediate: true, Fn: a.ProbeOnce, Logger: a.log},
		{Name: "heartbeat", Interval: a.cfg.HeartbeatInterval, Immediate: true, Fn: a.HeartbeatOnce, Logger: a.log},
	}
	var wg sync.WaitGroup
	for _, l := range loops {
		wg.Add(1)
		go func(l *scheduler.Loop) {
			defer wg.Done()
			l.Run(ctx)
		}(l)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.SpeedWorker(ctx)
	}()
	wg.Wait()
}

// record stores e locally and queues it for the collector. A local store
// failure is logged and the event still goes out.
func (a *Agent) record(ctx context.Context, e domain.Event) {
	if a.d.Store != nil {
		if err := a.d.Store.Append(ctx, e); err != nil {
			a.log.Error("event_persist_error", zap.String("type", string(e.Type)), zap.Error(err))
		}
	}
	if a.d.Outbox != nil {
		a.d.Outbox.Push(pushclient.EventItem(e))
	}
}

func (a *Agent) notify(ctx context.Context, msg notify.Message) {
	if err := a.d.Notifier.Send(ctx, msg); err != nil {
		a.log.Warn("notify_error", zap.String("title", msg.Title), zap.Error(err))
	}
}
