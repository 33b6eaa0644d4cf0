package incident

import (
	"math"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

type SpeedStats struct {
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

type OutageStats struct {
	Count                int     `json:"count"`
	TotalDowntimeSeconds float64 `json:"total_downtime_seconds"`
}

type Summary struct {
	Status            domain.ConnectivityState `json:"status"`
	SpeedStats        SpeedStats               `json:"speed_stats"`
	OutageStats       OutageStats              `json:"outage_stats"`
	LatencyEventCount int                      `json:"latency_event_count"`
}

// Summarize computes window statistics. Outages are counted after pairing
// and overlap merging, so an unresolved outage counts but adds no downtime.
func Summarize(status domain.ConnectivityState, events []domain.Event) Summary {
	s := Summary{Status: status}

	sum := 0.0
	s.SpeedStats.Min = math.Inf(1)
	for _, e := range events {
		switch e.Type {
		case domain.EventSpeedTest:
			v, ok := e.DownloadMbps()
			if !ok {
				continue
			}
			s.SpeedStats.Count++
			sum += v
			s.SpeedStats.Min = math.Min(s.SpeedStats.Min, v)
			s.SpeedStats.Max = math.Max(s.SpeedStats.Max, v)
		case domain.EventHighLatency:
			s.LatencyEventCount++
		}
	}
	if s.SpeedStats.Count > 0 {
		s.SpeedStats.Avg = sum / float64(s.SpeedStats.Count)
	} else {
		s.SpeedStats.Min = 0
	}

	for _, sp := range outageSpans(outageCandidates(sortedByTime(events))) {
		s.OutageStats.Count++
		if sp.end != nil {
			s.OutageStats.TotalDowntimeSeconds += sp.end.Sub(sp.start).Seconds()
		}
	}
	return s
}

type span struct {
	start time.Time
	end   *time.Time // nil while open
}

// outageSpans unions overlapping outage candidates, so the collector's
// down/restored pair and the reporter's outage_start/outage_end pair for
// the same outage count once. Candidates arrive in start order; an open
// candidate extends to the end of the window.
func outageSpans(cands []candidate) []span {
	var out []span
	for _, c := range cands {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.end == nil || !c.start.After(*last.end) {
				switch {
				case last.end == nil:
				case c.end == nil:
					last.end = nil
				case c.end.After(*last.end):
					e := *c.end
					last.end = &e
				}
				continue
			}
		}
		out = append(out, span{start: c.start, end: c.end})
	}
	return out
}
