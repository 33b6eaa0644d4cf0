// Package triage decides when a quick bandwidth reading needs an
// authoritative confirmation, and keeps the slow-mode flag that drives test
// cadence on the reporter.
package triage

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
)

// Tester runs one bandwidth test.
type Tester interface {
	Run(ctx context.Context, trigger domain.Trigger) (domain.SpeedTestOutcome, error)
}

type ModeChange int

const (
	ModeUnchanged ModeChange = iota
	ModeEnter
	ModeExit
)

func (m ModeChange) String() string {
	switch m {
	case ModeEnter:
		return "enter"
	case ModeExit:
		return "exit"
	}
	return "unchanged"
}

type Decision struct {
	Quick        domain.SpeedTestOutcome
	Confirmation *domain.SpeedTestOutcome // authoritative result, when one ran
	GroundTruth  domain.SpeedTestOutcome
	Escalated    bool // an authoritative test was attempted
	Slow         bool // ground truth below threshold
	ModeChange   ModeChange
	SlowMode     bool // flag value after this decision
	Report       bool // persist and notify
}

type Triage struct {
	authoritative Tester
	log           *zap.Logger

	mu   sync.Mutex
	slow bool
}

// New builds a Triage. A nil authoritative tester means confirmation is
// unavailable and quick results stand as ground truth.
func New(authoritative Tester, log *zap.Logger) *Triage {
	if log == nil {
		log = zap.NewNop()
	}
	return &Triage{authoritative: authoritative, log: log}
}

// Evaluate triages a quick result. It may block for as long as the
// authoritative test takes; the slow-mode lock is not held meanwhile.
func (t *Triage) Evaluate(ctx context.Context, quick domain.SpeedTestOutcome, thresholdMbps float64) Decision {
	d := Decision{Quick: quick, GroundTruth: quick}

	if quick.DownloadMbps < thresholdMbps && t.authoritative != nil {
		d.Escalated = true
		t.log.Info("speedtest_escalate",
			zap.Float64("quick_mbps", quick.DownloadMbps),
			zap.Float64("threshold_mbps", thresholdMbps),
			zap.String("trigger", string(quick.Trigger)),
		)
		conf, err := t.authoritative.Run(ctx, quick.Trigger.Confirm())
		if err != nil {
			t.log.Warn("speedtest_confirm_failed", zap.Error(err))
		} else {
			d.Confirmation = &conf
			d.GroundTruth = conf
		}
	}

	d.Slow = d.GroundTruth.DownloadMbps < thresholdMbps
	d.ModeChange, d.SlowMode = t.apply(d.GroundTruth.DownloadMbps, thresholdMbps)
	d.Report = d.Slow || !quick.Trigger.LowPriority()
	return d
}

// Observe applies hysteresis to a result that was not triaged, such as a
// manual authoritative test.
func (t *Triage) Observe(o domain.SpeedTestOutcome, thresholdMbps float64) ModeChange {
	mc, _ := t.apply(o.DownloadMbps, thresholdMbps)
	return mc
}

func (t *Triage) apply(mbps, threshold float64) (ModeChange, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case mbps < threshold && !t.slow:
		t.slow = true
		t.log.Warn("slow_mode_enter", zap.Float64("mbps", mbps), zap.Float64("threshold_mbps", threshold))
		return ModeEnter, true
	case mbps >= threshold && t.slow:
		t.slow = false
		t.log.Info("slow_mode_exit", zap.Float64("mbps", mbps))
		return ModeExit, false
	}
	return ModeUnchanged, t.slow
}

func (t *Triage) SlowMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slow
}
