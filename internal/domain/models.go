package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSpeedTest    EventType = "speed_test"
	EventHighLatency  EventType = "high_latency"
	EventOutageStart  EventType = "outage_start"
	EventOutageEnd    EventType = "outage_end"
	EventOutageReport EventType = "outage_report"
	EventDown         EventType = "down"
	EventRestored     EventType = "restored"
)

// Payload keys shared by producers and the aggregator.
const (
	KeyDownloadMbps    = "download_mbps"
	KeyUploadMbps      = "upload_mbps"
	KeyQuickMbps       = "quick_mbps"
	KeyTrigger         = "trigger"
	KeyMethod          = "method"
	KeyCause           = "cause"
	KeyReason          = "reason"
	KeyDurationSeconds = "duration_seconds"
	KeyBootID          = "boot_id"
	KeyPingMS          = "ping_ms"
	KeyStartedAt       = "started_at"
	KeyEndedAt         = "ended_at"
)

// Event is the unit persisted by both nodes. Events are append-only and
// keyed by ID, so re-delivery of the same event is a no-op.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	ObservedAt time.Time      `json:"observed_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func NewEvent(t EventType, at time.Time, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		ObservedAt: at.UTC(),
		Payload:    payload,
	}
}

// Float reads a numeric payload field. Strings and json.Number are accepted;
// anything else reports ok=false.
func (e Event) Float(key string) (float64, bool) {
	v, ok := e.Payload[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func (e Event) Str(key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

// DownloadMbps returns the measured download of a speed_test event. Older
// producers wrote speed_mbps or ookla_speed_mbps instead.
func (e Event) DownloadMbps() (float64, bool) {
	for _, k := range []string{KeyDownloadMbps, "ookla_speed_mbps", "speed_mbps"} {
		if v, ok := e.Float(k); ok {
			return v, true
		}
	}
	return 0, false
}

func (e Event) Trigger() Trigger {
	return ParseTrigger(e.Str(KeyTrigger))
}

type Trigger string

const (
	TriggerManual          Trigger = "manual"
	TriggerManualFull      Trigger = "manual_full"
	TriggerPostOutage      Trigger = "post_outage"
	TriggerHighLatency     Trigger = "high_latency"
	TriggerSlowSpeedRetest Trigger = "slow_speed_retest"
	TriggerScheduled       Trigger = "scheduled"

	confirmSuffix = "_confirm"
)

// ParseTrigger maps a stored trigger string to a Trigger; an empty value
// becomes TriggerManual.
func ParseTrigger(s string) Trigger {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return TriggerManual
	}
	return Trigger(s)
}

func (t Trigger) Confirm() Trigger {
	if t.IsConfirm() {
		return t
	}
	return t + confirmSuffix
}

func (t Trigger) IsConfirm() bool { return strings.HasSuffix(string(t), confirmSuffix) }

func (t Trigger) Base() Trigger { return Trigger(strings.TrimSuffix(string(t), confirmSuffix)) }

// IsRetest reports whether the test was run to re-check an earlier slow
// reading. Retests are correlation targets, never incidents of their own.
func (t Trigger) IsRetest() bool { return t.Base() == TriggerSlowSpeedRetest }

// LowPriority triggers are only recorded when the result is slow.
func (t Trigger) LowPriority() bool { return t.Base() == TriggerScheduled }

type Cause string

const (
	CausePowerCut Cause = "power_cut"
	CauseISP      Cause = "isp_issue"
	CauseUnknown  Cause = "unknown"
)

func ParseCause(s string) Cause {
	switch Cause(s) {
	case CausePowerCut, CauseISP:
		return Cause(s)
	}
	return CauseUnknown
}

type Method string

const (
	MethodQuick         Method = "quick"
	MethodAuthoritative Method = "authoritative"
)
