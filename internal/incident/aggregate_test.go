package incident

import (
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func ev(t domain.EventType, when time.Time, payload map[string]any) domain.Event {
	return domain.NewEvent(t, when, payload)
}

func down(min int) domain.Event { return ev(domain.EventDown, at(min), nil) }

func restored(min int, cause domain.Cause) domain.Event {
	return ev(domain.EventRestored, at(min), map[string]any{domain.KeyCause: string(cause)})
}

func speed(min int, mbps float64, trig domain.Trigger) domain.Event {
	return ev(domain.EventSpeedTest, at(min), map[string]any{
		domain.KeyDownloadMbps: mbps,
		domain.KeyTrigger:      string(trig),
	})
}

func TestAggregate_OutagesTenMinutesApartMerge(t *testing.T) {
	events := []domain.Event{
		down(0), restored(2, domain.CauseISP),
		down(10), restored(12, domain.CausePowerCut),
	}
	got := Aggregate(events, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("want 1 incident, got %d: %+v", len(got), got)
	}
	inc := got[0]
	if inc.Kind != domain.KindMerged || inc.MemberCount != 2 {
		t.Fatalf("want merged with 2 members, got %+v", inc)
	}
	if !inc.StartedAt.Equal(at(0)) || inc.ResolvedAt == nil || !inc.ResolvedAt.Equal(at(12)) {
		t.Fatalf("bounds wrong: start=%v resolved=%v", inc.StartedAt, inc.ResolvedAt)
	}
	if inc.Cause != domain.CausePowerCut {
		t.Fatalf("dominant cause=%q want most recent outage's", inc.Cause)
	}
	if !strings.Contains(inc.Summary, "2 outages") || !strings.Contains(inc.Summary, "total downtime") {
		t.Fatalf("summary=%q", inc.Summary)
	}
}

func TestAggregate_OutagesFortyMinutesApartStaySeparate(t *testing.T) {
	events := []domain.Event{
		down(0), restored(2, domain.CauseISP),
		down(40), restored(42, domain.CauseISP),
	}
	got := Aggregate(events, DefaultConfig())
	if len(got) != 2 {
		t.Fatalf("want 2 incidents, got %d", len(got))
	}
	if !got[0].StartedAt.Equal(at(40)) || !got[1].StartedAt.Equal(at(0)) {
		t.Fatalf("want newest first, got %v then %v", got[0].StartedAt, got[1].StartedAt)
	}
	for _, inc := range got {
		if inc.Kind != domain.KindOutage || inc.Cause != domain.CauseISP {
			t.Fatalf("unexpected %+v", inc)
		}
		if inc.DurationSeconds == nil || *inc.DurationSeconds != 120 {
			t.Fatalf("duration=%v", inc.DurationSeconds)
		}
	}
}

func TestAggregate_MergeGapMeasuredFromResolution(t *testing.T) {
	// long outage 0..50, next starts at 70: 20 min after resolution
	events := []domain.Event{down(0), restored(50, domain.CauseISP), down(70)}
	got := Aggregate(events, DefaultConfig())
	if len(got) != 1 || got[0].MemberCount != 2 {
		t.Fatalf("want one merged incident, got %+v", got)
	}
	if got[0].ResolvedAt != nil {
		t.Fatalf("open member must leave merged incident unresolved")
	}
}

func TestAggregate_OpenOutage(t *testing.T) {
	got := Aggregate([]domain.Event{ev(domain.EventOutageStart, at(0), nil)}, DefaultConfig())
	if len(got) != 1 || got[0].Kind != domain.KindOutage || got[0].ResolvedAt != nil || got[0].Cause != domain.CauseUnknown {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestAggregate_PairingConsumesFirstLaterEnd(t *testing.T) {
	// restored before any down is ignored; two downs, one restore
	events := []domain.Event{
		restored(-5, domain.CauseISP),
		down(0), down(100), restored(101, domain.CausePowerCut),
	}
	got := Aggregate(events, DefaultConfig())
	if len(got) != 1 || got[0].MemberCount != 2 {
		t.Fatalf("want one merged incident, got %+v", got)
	}
	// down(0) is closed by restored(101); down(100) stays open
	first, second := got[0].Members[0], got[0].Members[1]
	if first.ResolvedAt == nil || !first.ResolvedAt.Equal(at(101)) || first.Cause != domain.CausePowerCut {
		t.Fatalf("first outage=%+v", first)
	}
	if second.ResolvedAt != nil {
		t.Fatalf("second outage must stay open: %+v", second)
	}
	if got[0].ResolvedAt != nil {
		t.Fatalf("merged incident with an open member must be unresolved")
	}
}

func TestAggregate_OutOfOrderInput(t *testing.T) {
	events := []domain.Event{restored(2, domain.CauseISP), down(0)}
	got := Aggregate(events, DefaultConfig())
	if len(got) != 1 || got[0].ResolvedAt == nil {
		t.Fatalf("pairing must not depend on input order: %+v", got)
	}
}

func TestAggregate_SlowWithPassingRetest(t *testing.T) {
	events := []domain.Event{
		speed(0, 20, domain.TriggerScheduled.Confirm()),
		speed(5, 80, domain.TriggerSlowSpeedRetest),
	}
	got := Aggregate(events, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("retest must not be its own incident: %+v", got)
	}
	inc := got[0]
	if inc.Kind != domain.KindSlowSpeed || inc.Retest == nil || !inc.Retest.Passed {
		t.Fatalf("unexpected %+v", inc)
	}
	if inc.ResolvedAt == nil || !inc.ResolvedAt.Equal(at(5)) {
		t.Fatalf("resolved=%v", inc.ResolvedAt)
	}
	if inc.Trigger != "scheduled_confirm" || inc.DownloadMbps != 20 {
		t.Fatalf("fields lost: %+v", inc)
	}
}

func TestAggregate_SlowWithFailingOrMissingRetest(t *testing.T) {
	failing := Aggregate([]domain.Event{
		speed(0, 20, domain.TriggerHighLatency),
		speed(5, 30, domain.TriggerSlowSpeedRetest.Confirm()),
	}, DefaultConfig())
	if len(failing) != 1 || failing[0].Retest == nil || failing[0].Retest.Passed || failing[0].ResolvedAt != nil {
		t.Fatalf("failing retest: %+v", failing)
	}

	none := Aggregate([]domain.Event{speed(0, 20, domain.TriggerManual)}, DefaultConfig())
	if len(none) != 1 || none[0].Retest != nil || none[0].ResolvedAt != nil {
		t.Fatalf("no retest: %+v", none)
	}

	late := Aggregate([]domain.Event{
		speed(0, 20, domain.TriggerManual),
		speed(16, 90, domain.TriggerSlowSpeedRetest),
	}, DefaultConfig())
	if len(late) != 1 || late[0].Retest != nil {
		t.Fatalf("retest outside lookahead must not attach: %+v", late)
	}
}

func TestAggregate_NearestRetestWins(t *testing.T) {
	got := Aggregate([]domain.Event{
		speed(0, 20, domain.TriggerManual),
		speed(5, 25, domain.TriggerSlowSpeedRetest),
		speed(10, 90, domain.TriggerSlowSpeedRetest),
	}, DefaultConfig())
	if len(got) != 1 || got[0].Retest == nil || got[0].Retest.DownloadMbps != 25 {
		t.Fatalf("want nearest retest attached, got %+v", got)
	}
}

func TestAggregate_FastAndMalformedSpeedTestsIgnored(t *testing.T) {
	got := Aggregate([]domain.Event{
		speed(0, 90, domain.TriggerManual),
		ev(domain.EventSpeedTest, at(1), map[string]any{"trigger": "manual"}),
		ev(domain.EventHighLatency, at(2), map[string]any{domain.KeyPingMS: 400.0}),
		ev(domain.EventType("custom"), at(3), nil),
	}, DefaultConfig())
	if len(got) != 0 {
		t.Fatalf("want no incidents, got %+v", got)
	}
}

func TestAggregate_MixedGroup(t *testing.T) {
	events := []domain.Event{
		down(0), restored(3, domain.CauseUnknown),
		speed(4, 10, domain.TriggerPostOutage.Confirm()),
		speed(9, 60, domain.TriggerSlowSpeedRetest),
		speed(20, 15, domain.TriggerScheduled),
	}
	got := Aggregate(events, DefaultConfig())
	if len(got) != 1 {
		t.Fatalf("want 1 merged, got %d", len(got))
	}
	inc := got[0]
	if inc.MemberCount != 3 || inc.Cause != domain.CauseUnknown {
		t.Fatalf("unexpected %+v", inc)
	}
	if inc.ResolvedAt != nil {
		t.Fatalf("last slow test has no retest, must be unresolved")
	}
	if !strings.HasPrefix(inc.Summary, "1 outage, 2 slow speed tests") {
		t.Fatalf("summary=%q", inc.Summary)
	}
	if len(inc.Members) != 3 || inc.Members[0].Kind != domain.KindOutage {
		t.Fatalf("members=%+v", inc.Members)
	}
}

func TestAggregate_TunableGap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeGap = 5 * time.Minute
	got := Aggregate([]domain.Event{down(0), restored(1, domain.CauseISP), down(10), restored(11, domain.CauseISP)}, cfg)
	if len(got) != 2 {
		t.Fatalf("want 2 with a 5m gap, got %d", len(got))
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[time.Duration]string{
		45 * time.Second: "45 seconds",
		90 * time.Second: "1.5 minutes",
		3 * time.Hour:    "3.0 hours",
	}
	for d, want := range cases {
		if got := FormatDuration(d); got != want {
			t.Fatalf("FormatDuration(%v)=%q want %q", d, got, want)
		}
	}
}
