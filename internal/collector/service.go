// Package collector is the collector node: it feeds heartbeats and timeout
// ticks into the tracker, persists the resulting transitions and pushed
// events, notifies, and answers dashboard queries.
package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/heartbeat"
	"github.com/hamed0406/linkwatch/internal/incident"
	"github.com/hamed0406/linkwatch/internal/notify"
	"github.com/hamed0406/linkwatch/internal/repo"
	"github.com/hamed0406/linkwatch/internal/scheduler"
)

type RestartPolicy string

const (
	RestartDiscard RestartPolicy = "discard"
	RestartResume  RestartPolicy = "resume"
)

type Config struct {
	Heartbeat     heartbeat.Config
	CheckInterval time.Duration
	RestartPolicy RestartPolicy
	Incidents     incident.Config
	// ResumeLookback bounds the store scan for an open outage on start.
	ResumeLookback time.Duration
}

type Service struct {
	cfg      Config
	tracker  *heartbeat.Tracker
	store    repo.EventStore
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func New(cfg Config, store repo.EventStore, n notify.Notifier, log *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if n == nil {
		n = notify.Nop{}
	}
	if cfg.ResumeLookback <= 0 {
		cfg.ResumeLookback = 30 * 24 * time.Hour
	}
	return &Service{
		cfg:      cfg,
		tracker:  heartbeat.NewTracker(cfg.Heartbeat, now()),
		store:    store,
		notifier: n,
		log:      log,
		now:      now,
	}
}

// Resume applies the restart policy. Under "resume" the latest stored down
// with no later restored seeds the tracker offline, so the eventual
// restore reports the full outage duration.
func (s *Service) Resume(ctx context.Context) error {
	if s.cfg.RestartPolicy != RestartResume {
		return nil
	}
	now := s.now()
	evs, err := s.store.Range(ctx, now.Add(-s.cfg.ResumeLookback), now, "")
	if err != nil {
		return fmt.Errorf("resume scan: %w", err)
	}
	var open *domain.Event
	for i := range evs {
		switch evs[i].Type {
		case domain.EventDown:
			open = &evs[i]
		case domain.EventRestored:
			open = nil
		}
	}
	if open == nil {
		return nil
	}
	boot := open.Str(domain.KeyBootID)
	s.tracker.ResumeOutage(open.ObservedAt, boot)
	s.log.Info("outage_resumed", zap.Time("started_at", open.ObservedAt), zap.String("boot_id", boot))
	return nil
}

func (s *Service) Status() domain.ConnectivityState { return s.tracker.CurrentStatus() }

// Heartbeat records one heartbeat stamped with the receive time.
func (s *Service) Heartbeat(ctx context.Context, bootID string, uptimeSeconds float64) heartbeat.Transition {
	tr := s.tracker.RecordHeartbeat(domain.HeartbeatSample{
		ReceivedAt:    s.now().UTC(),
		BootID:        bootID,
		UptimeSeconds: uptimeSeconds,
	})
	if tr.Event != heartbeat.EventRestored {
		s.log.Debug("heartbeat", zap.String("boot_id", bootID), zap.Float64("uptime_seconds", uptimeSeconds))
		return tr
	}

	s.log.Info("heartbeat_restored",
		zap.Duration("down_for", tr.DurationDown),
		zap.String("cause", string(tr.Cause)),
		zap.String("boot_id", tr.BootID),
	)
	s.persist(ctx, domain.NewEvent(domain.EventRestored, tr.At, map[string]any{
		domain.KeyCause:           string(tr.Cause),
		domain.KeyDurationSeconds: tr.DurationDown.Seconds(),
		domain.KeyBootID:          tr.BootID,
	}))
	s.send(ctx, RestoredMessage(tr))
	return tr
}

// Tick runs one watchdog check.
func (s *Service) Tick(ctx context.Context) {
	tr := s.tracker.Tick(s.now().UTC())
	if tr.Event != heartbeat.EventDown {
		return
	}
	s.log.Warn("link_down",
		zap.String("reason", string(tr.Reason)),
		zap.Time("outage_started_at", tr.OutageStartedAt),
		zap.Duration("last_heartbeat_age", tr.LastHeartbeatAge),
	)
	st := s.tracker.CurrentStatus()
	s.persist(ctx, domain.NewEvent(domain.EventDown, tr.OutageStartedAt, map[string]any{
		domain.KeyReason: string(tr.Reason),
		domain.KeyBootID: st.BootIDAtOutageStart,
		"detected_at":    tr.At.Format(time.RFC3339),
	}))
	s.send(ctx, DownMessage(tr))
}

// WatchdogLoop ticks the tracker on the configured interval.
func (s *Service) WatchdogLoop() *scheduler.Loop {
	return &scheduler.Loop{
		Name:     "watchdog",
		Interval: s.cfg.CheckInterval,
		Fn:       s.Tick,
		Logger:   s.log,
	}
}

// OutageReport stores the reporter's own view of an outage it lived through.
func (s *Service) OutageReport(ctx context.Context, id string, r domain.OutageReport) error {
	e := domain.NewEvent(domain.EventOutageReport, r.EndedAt, map[string]any{
		domain.KeyStartedAt:       r.StartedAt.UTC().Format(time.RFC3339),
		domain.KeyEndedAt:         r.EndedAt.UTC().Format(time.RFC3339),
		domain.KeyDurationSeconds: r.DurationSeconds,
	})
	if id != "" {
		e.ID = id
	}
	if e.ObservedAt.IsZero() {
		e.ObservedAt = s.now().UTC()
	}
	s.log.Info("outage_report", zap.Time("started_at", r.StartedAt), zap.Float64("duration_seconds", r.DurationSeconds))
	return s.store.Append(ctx, e)
}

// Ingest stores a pushed event verbatim. Missing identity or time is
// filled in rather than rejected.
func (s *Service) Ingest(ctx context.Context, e domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ObservedAt.IsZero() {
		e.ObservedAt = s.now().UTC()
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	return s.store.Append(ctx, e)
}

// History returns the window's events newest first.
func (s *Service) History(ctx context.Context, hours int, typ domain.EventType) ([]domain.Event, error) {
	evs, err := s.window(ctx, hours, typ)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].ObservedAt.After(evs[j].ObservedAt) })
	return evs, nil
}

func (s *Service) Summary(ctx context.Context, hours int) (incident.Summary, error) {
	evs, err := s.window(ctx, hours, "")
	if err != nil {
		return incident.Summary{}, err
	}
	return incident.Summarize(s.Status(), evs), nil
}

func (s *Service) Incidents(ctx context.Context, hours int) ([]domain.Incident, error) {
	evs, err := s.window(ctx, hours, "")
	if err != nil {
		return nil, err
	}
	return incident.Aggregate(evs, s.cfg.Incidents), nil
}

func (s *Service) window(ctx context.Context, hours int, typ domain.EventType) ([]domain.Event, error) {
	now := s.now()
	return s.store.Range(ctx, now.Add(-time.Duration(hours)*time.Hour), now, typ)
}

// persist failures are logged; the in-memory transition already happened.
func (s *Service) persist(ctx context.Context, e domain.Event) {
	if err := s.store.Append(ctx, e); err != nil {
		s.log.Error("event_persist_error", zap.String("type", string(e.Type)), zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, msg notify.Message) {
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Warn("notify_error", zap.String("title", msg.Title), zap.Error(err))
	}
}
