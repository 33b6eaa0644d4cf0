package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

type fakeTester struct {
	mbps     float64
	err      error
	calls    int
	triggers []domain.Trigger
}

func (f *fakeTester) Run(_ context.Context, trigger domain.Trigger) (domain.SpeedTestOutcome, error) {
	f.calls++
	f.triggers = append(f.triggers, trigger)
	if f.err != nil {
		return domain.SpeedTestOutcome{}, f.err
	}
	return domain.SpeedTestOutcome{
		MeasuredAt:   time.Now(),
		DownloadMbps: f.mbps,
		Trigger:      trigger,
		Method:       domain.MethodAuthoritative,
	}, nil
}

func quick(mbps float64, trig domain.Trigger) domain.SpeedTestOutcome {
	return domain.SpeedTestOutcome{MeasuredAt: time.Now(), DownloadMbps: mbps, Trigger: trig, Method: domain.MethodQuick}
}

func TestEvaluate_FastNeverEscalates(t *testing.T) {
	auth := &fakeTester{mbps: 10}
	tr := New(auth, nil)
	d := tr.Evaluate(context.Background(), quick(50, domain.TriggerManual), 50)
	if auth.calls != 0 || d.Escalated {
		t.Fatalf("authoritative test must not run at threshold")
	}
	if d.ModeChange != ModeUnchanged || tr.SlowMode() {
		t.Fatalf("slow mode changed: %v", d.ModeChange)
	}
	if d.Slow || !d.Report {
		t.Fatalf("manual fast result should be reported, not slow: %+v", d)
	}
}

func TestEvaluate_AuthoritativeIsGroundTruth(t *testing.T) {
	auth := &fakeTester{mbps: 55}
	tr := New(auth, nil)
	d := tr.Evaluate(context.Background(), quick(20, domain.TriggerHighLatency), 50)
	if auth.calls != 1 || auth.triggers[0] != "high_latency_confirm" {
		t.Fatalf("want one confirm run, got %d %v", auth.calls, auth.triggers)
	}
	if d.GroundTruth.DownloadMbps != 55 || d.Confirmation == nil {
		t.Fatalf("ground truth=%v", d.GroundTruth.DownloadMbps)
	}
	if d.Slow || tr.SlowMode() || d.ModeChange != ModeUnchanged {
		t.Fatalf("slow mode must not activate on a passing confirmation: %+v", d)
	}
	if !d.Report {
		t.Fatalf("high_latency tests are always reported")
	}
}

func TestEvaluate_ConfirmedSlowEntersThenExits(t *testing.T) {
	auth := &fakeTester{mbps: 12}
	tr := New(auth, nil)
	d := tr.Evaluate(context.Background(), quick(10, domain.TriggerScheduled), 50)
	if !d.Slow || d.ModeChange != ModeEnter || !tr.SlowMode() || !d.Report {
		t.Fatalf("want slow/enter/report, got %+v", d)
	}
	// still slow: no second enter
	d = tr.Evaluate(context.Background(), quick(10, domain.TriggerSlowSpeedRetest), 50)
	if d.ModeChange != ModeUnchanged || !d.SlowMode {
		t.Fatalf("want unchanged while slow, got %v", d.ModeChange)
	}
	d = tr.Evaluate(context.Background(), quick(80, domain.TriggerSlowSpeedRetest), 50)
	if d.ModeChange != ModeExit || tr.SlowMode() {
		t.Fatalf("want exit, got %v", d.ModeChange)
	}
}

func TestEvaluate_NoAuthoritativeQuickStands(t *testing.T) {
	tr := New(nil, nil)
	d := tr.Evaluate(context.Background(), quick(20, domain.TriggerManual), 50)
	if d.Escalated || d.GroundTruth.DownloadMbps != 20 || !d.Slow || d.ModeChange != ModeEnter {
		t.Fatalf("unexpected %+v", d)
	}
}

func TestEvaluate_AuthoritativeFailureFallsBack(t *testing.T) {
	auth := &fakeTester{err: errors.New("no servers")}
	tr := New(auth, nil)
	d := tr.Evaluate(context.Background(), quick(20, domain.TriggerPostOutage), 50)
	if !d.Escalated || d.Confirmation != nil || d.GroundTruth.DownloadMbps != 20 || !d.Slow {
		t.Fatalf("unexpected %+v", d)
	}
}

func TestEvaluate_ScheduledOnlyReportedWhenSlow(t *testing.T) {
	auth := &fakeTester{mbps: 70}
	tr := New(auth, nil)
	if d := tr.Evaluate(context.Background(), quick(90, domain.TriggerScheduled), 50); d.Report {
		t.Fatalf("fast scheduled test must not be reported")
	}
	if d := tr.Evaluate(context.Background(), quick(30, domain.TriggerScheduled), 50); d.Report {
		t.Fatalf("scheduled test confirmed fast must not be reported")
	}
	auth.mbps = 30
	if d := tr.Evaluate(context.Background(), quick(30, domain.TriggerScheduled), 50); !d.Report {
		t.Fatalf("slow scheduled test must be reported")
	}
}

func TestObserve(t *testing.T) {
	tr := New(nil, nil)
	if mc := tr.Observe(quick(5, domain.TriggerManual), 50); mc != ModeEnter {
		t.Fatalf("want enter, got %v", mc)
	}
	if mc := tr.Observe(quick(60, domain.TriggerManual), 50); mc != ModeExit {
		t.Fatalf("want exit, got %v", mc)
	}
}
