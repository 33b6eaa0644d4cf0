package domain

import "time"

type HeartbeatSample struct {
	ReceivedAt    time.Time `json:"received_at"`
	BootID        string    `json:"boot_id"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

// ConnectivityState is the collector's view of the monitored link.
// OutageStartedAt is set iff IsOnline is false.
type ConnectivityState struct {
	IsOnline            bool       `json:"is_online"`
	LastHeartbeatAt     *time.Time `json:"last_heartbeat_at"`
	LastBootID          string     `json:"last_boot_id,omitempty"`
	OutageStartedAt     *time.Time `json:"outage_started_at"`
	BootIDAtOutageStart string     `json:"boot_id_at_outage_start,omitempty"`
	StartupAt           time.Time  `json:"startup_at"`
}

type SpeedTestOutcome struct {
	MeasuredAt   time.Time     `json:"measured_at"`
	DownloadMbps float64       `json:"download_mbps"`
	UploadMbps   *float64      `json:"upload_mbps,omitempty"`
	Trigger      Trigger       `json:"trigger"`
	Method       Method        `json:"method"`
	Duration     time.Duration `json:"duration"`
	Bytes        int64         `json:"bytes,omitempty"`
}

// Event renders the outcome as a speed_test event.
func (o SpeedTestOutcome) Event() Event {
	p := map[string]any{
		KeyDownloadMbps:    o.DownloadMbps,
		KeyTrigger:         string(o.Trigger),
		KeyMethod:          string(o.Method),
		KeyDurationSeconds: o.Duration.Seconds(),
	}
	if o.UploadMbps != nil {
		p[KeyUploadMbps] = *o.UploadMbps
	}
	return NewEvent(EventSpeedTest, o.MeasuredAt, p)
}

// OutageReport is what the reporter sends once its link is back.
type OutageReport struct {
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
}
