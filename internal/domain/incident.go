package domain

import "time"

type IncidentKind string

const (
	KindOutage    IncidentKind = "outage"
	KindSlowSpeed IncidentKind = "slow_speed"
	KindMerged    IncidentKind = "merged"
)

type Retest struct {
	ConfirmedAt  time.Time `json:"confirmed_at"`
	DownloadMbps float64   `json:"download_mbps"`
	Passed       bool      `json:"passed"`
}

// Incident is computed on every query and never stored.
type Incident struct {
	Kind       IncidentKind `json:"kind"`
	StartedAt  time.Time    `json:"started_at"`
	ResolvedAt *time.Time   `json:"resolved_at"`

	// outage; for merged incidents Cause is the dominant cause
	Cause           Cause    `json:"cause,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`

	// slow_speed
	DownloadMbps float64 `json:"download_mbps,omitempty"`
	Trigger      Trigger `json:"trigger,omitempty"`
	Retest       *Retest `json:"retest,omitempty"`

	// merged
	MemberCount int        `json:"member_count,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	Members     []Incident `json:"members,omitempty"`
}
