package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTrigger_ConfirmAndRetest(t *testing.T) {
	if got := TriggerScheduled.Confirm(); got != "scheduled_confirm" {
		t.Fatalf("confirm=%q", got)
	}
	if got := TriggerScheduled.Confirm().Confirm(); got != "scheduled_confirm" {
		t.Fatalf("double confirm=%q", got)
	}
	if !TriggerSlowSpeedRetest.IsRetest() || !TriggerSlowSpeedRetest.Confirm().IsRetest() {
		t.Fatalf("retest triggers not recognised")
	}
	if TriggerHighLatency.Confirm().IsRetest() {
		t.Fatalf("high_latency_confirm is not a retest")
	}
	if !TriggerScheduled.Confirm().LowPriority() || TriggerManual.LowPriority() {
		t.Fatalf("low priority wrong")
	}
	if ParseTrigger("") != TriggerManual || ParseTrigger(" Scheduled ") != TriggerScheduled {
		t.Fatalf("parse trigger wrong")
	}
}

func TestEvent_FloatAcceptsDecodedJSON(t *testing.T) {
	var e Event
	raw := `{"id":"x","type":"speed_test","observed_at":"2025-08-18T12:00:00Z","payload":{"speed_mbps":42.5,"trigger":"scheduled","bad":"n/a"}}`
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := e.DownloadMbps()
	if !ok || got != 42.5 {
		t.Fatalf("download=%v ok=%v", got, ok)
	}
	if _, ok := e.Float("bad"); ok {
		t.Fatalf("non-numeric string should not parse")
	}
	if _, ok := e.Float("missing"); ok {
		t.Fatalf("missing key should not parse")
	}
	if e.Trigger() != TriggerScheduled {
		t.Fatalf("trigger=%q", e.Trigger())
	}
}

func TestSpeedTestOutcome_Event(t *testing.T) {
	up := 9.5
	o := SpeedTestOutcome{
		MeasuredAt:   time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC),
		DownloadMbps: 55,
		UploadMbps:   &up,
		Trigger:      TriggerScheduled.Confirm(),
		Method:       MethodAuthoritative,
	}
	e := o.Event()
	if e.Type != EventSpeedTest || e.ID == "" {
		t.Fatalf("bad event %+v", e)
	}
	if v, _ := e.DownloadMbps(); v != 55 {
		t.Fatalf("download=%v", v)
	}
	if v, _ := e.Float(KeyUploadMbps); v != 9.5 {
		t.Fatalf("upload=%v", v)
	}
	if e.Trigger() != "scheduled_confirm" {
		t.Fatalf("trigger=%q", e.Trigger())
	}
}

func TestParseCause(t *testing.T) {
	if ParseCause("power_cut") != CausePowerCut || ParseCause("isp_issue") != CauseISP || ParseCause("zzz") != CauseUnknown {
		t.Fatalf("parse cause wrong")
	}
}
