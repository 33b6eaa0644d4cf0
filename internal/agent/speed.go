package agent

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/triage"
)

var ErrNoAuthoritative = errors.New("authoritative speed test not configured")

// Request queues an ad hoc triaged test. Requests coalesce per trigger:
// while one of a kind is pending, repeats are no-ops, so a burst of one
// trigger never crowds out another.
func (a *Agent) Request(trigger domain.Trigger) {
	a.reqMu.Lock()
	defer a.reqMu.Unlock()
	if a.queued[trigger] {
		return
	}
	select {
	case a.requests <- trigger:
		a.queued[trigger] = true
	default:
		a.log.Warn("speedtest_request_dropped", zap.String("trigger", string(trigger)))
	}
}

func (a *Agent) dequeued(trigger domain.Trigger) {
	a.reqMu.Lock()
	delete(a.queued, trigger)
	a.reqMu.Unlock()
}

// SpeedWorker runs queued tests plus the two cadence timers: the hourly
// scheduled test and the short retest while slow mode is active. It runs a
// scheduled test at start.
func (a *Agent) SpeedWorker(ctx context.Context) {
	scheduled := time.NewTicker(a.cfg.ScheduledInterval)
	defer scheduled.Stop()
	retest := time.NewTicker(a.cfg.SlowRetestInterval)
	defer retest.Stop()

	a.RunTriaged(ctx, domain.TriggerScheduled)
	for {
		select {
		case <-ctx.Done():
			a.log.Info("speed_worker_stopped")
			return
		case trig := <-a.requests:
			a.dequeued(trig)
			a.RunTriaged(ctx, trig)
		case <-retest.C:
			if a.triage.SlowMode() && a.sinceLastTest() >= a.cfg.SlowRetestInterval {
				a.RunTriaged(ctx, domain.TriggerSlowSpeedRetest)
			}
		case <-scheduled.C:
			a.RunTriaged(ctx, domain.TriggerScheduled)
		}
	}
}

func (a *Agent) sinceLastTest() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastTestAt.IsZero() {
		return time.Duration(math.MaxInt64)
	}
	return a.now().Sub(a.lastTestAt)
}

func (a *Agent) noteTest(o domain.SpeedTestOutcome) {
	a.mu.Lock()
	a.lastTest = &o
	a.lastTestAt = a.now()
	a.mu.Unlock()
}

// RunTriaged runs a quick test, escalates through triage when it reads
// slow, then records and notifies per the decision. It returns false when
// the quick test itself failed.
func (a *Agent) RunTriaged(ctx context.Context, trigger domain.Trigger) (triage.Decision, bool) {
	a.testMu.Lock()
	defer a.testMu.Unlock()

	quick, err := a.d.Quick.Run(ctx, trigger)
	if err != nil {
		a.log.Warn("speedtest_failed", zap.String("trigger", string(trigger)), zap.Error(err))
		return triage.Decision{}, false
	}
	d := a.triage.Evaluate(ctx, quick, a.cfg.SlowThresholdMbps)
	a.noteTest(d.GroundTruth)

	a.log.Info("speedtest",
		zap.String("trigger", string(trigger)),
		zap.Float64("quick_mbps", quick.DownloadMbps),
		zap.Float64("mbps", d.GroundTruth.DownloadMbps),
		zap.Bool("escalated", d.Escalated),
		zap.Bool("slow", d.Slow),
		zap.Bool("slow_mode", d.SlowMode),
	)
	if !d.Report {
		return d, true
	}

	e := d.GroundTruth.Event()
	if d.Confirmation != nil {
		e.Payload[domain.KeyQuickMbps] = quick.DownloadMbps
		e.Payload["confirmed_slow"] = d.Slow
	}
	a.record(ctx, e)
	a.notify(ctx, SpeedMessage(d, a.cfg.SlowThresholdMbps))
	return d, true
}

// RunAuthoritative runs an authoritative test on request. It is recorded
// and feeds slow-mode hysteresis but is never escalated.
func (a *Agent) RunAuthoritative(ctx context.Context, trigger domain.Trigger) (domain.SpeedTestOutcome, error) {
	if a.d.Authoritative == nil {
		return domain.SpeedTestOutcome{}, ErrNoAuthoritative
	}
	a.testMu.Lock()
	defer a.testMu.Unlock()

	o, err := a.d.Authoritative.Run(ctx, trigger)
	if err != nil {
		a.log.Warn("speedtest_failed", zap.String("trigger", string(trigger)), zap.Error(err))
		return o, err
	}
	a.triage.Observe(o, a.cfg.SlowThresholdMbps)
	a.noteTest(o)
	a.record(ctx, o.Event())
	a.notify(ctx, OutcomeMessage(o, a.cfg.SlowThresholdMbps))
	return o, nil
}

// FullResult is the combined outcome of GET /speedtest/full.
type FullResult struct {
	Quick         *domain.SpeedTestOutcome `json:"quick,omitempty"`
	Authoritative *domain.SpeedTestOutcome `json:"authoritative,omitempty"`
}

// RunFull runs both testers with the manual_full trigger, records each
// result and sends one combined notification.
func (a *Agent) RunFull(ctx context.Context) FullResult {
	a.testMu.Lock()
	defer a.testMu.Unlock()

	var out FullResult
	if q, err := a.d.Quick.Run(ctx, domain.TriggerManualFull); err != nil {
		a.log.Warn("speedtest_failed", zap.String("trigger", string(domain.TriggerManualFull)), zap.Error(err))
	} else {
		out.Quick = &q
		a.record(ctx, q.Event())
	}
	if a.d.Authoritative != nil {
		if o, err := a.d.Authoritative.Run(ctx, domain.TriggerManualFull); err != nil {
			a.log.Warn("speedtest_failed", zap.String("trigger", "manual_full_authoritative"), zap.Error(err))
		} else {
			out.Authoritative = &o
			a.record(ctx, o.Event())
		}
	}

	truth := out.Authoritative
	if truth == nil {
		truth = out.Quick
	}
	if truth == nil {
		return out
	}
	a.triage.Observe(*truth, a.cfg.SlowThresholdMbps)
	a.noteTest(*truth)
	a.notify(ctx, FullMessage(out, a.cfg.SlowThresholdMbps))
	return out
}
