// Package incident turns the raw event stream of a time window into the
// operator-facing incident list. Everything here is a pure function of the
// events passed in; nothing is cached or stored.
package incident

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

type Config struct {
	SlowThresholdMbps float64
	MergeGap          time.Duration
	RetestLookahead   time.Duration
}

func DefaultConfig() Config {
	return Config{
		SlowThresholdMbps: 50,
		MergeGap:          30 * time.Minute,
		RetestLookahead:   15 * time.Minute,
	}
}

type candidate struct {
	kind  domain.IncidentKind
	start time.Time

	// outage
	end   *time.Time
	cause domain.Cause

	// slow speed
	mbps    float64
	trigger domain.Trigger
	retest  *domain.Retest
}

func (c candidate) resolvedAt() *time.Time {
	switch c.kind {
	case domain.KindOutage:
		return c.end
	case domain.KindSlowSpeed:
		if c.retest != nil && c.retest.Passed {
			t := c.retest.ConfirmedAt
			return &t
		}
	}
	return nil
}

// lastKnown is the latest point in time the candidate tells us anything
// about: its end, its retest (passing or not), or its own start.
func (c candidate) lastKnown() time.Time {
	if c.end != nil {
		return *c.end
	}
	if c.retest != nil {
		return c.retest.ConfirmedAt
	}
	return c.start
}

// Aggregate builds incidents from events, most recent first.
func Aggregate(events []domain.Event, cfg Config) []domain.Incident {
	sorted := sortedByTime(events)

	cands := outageCandidates(sorted)
	cands = append(cands, slowCandidates(sorted, cfg)...)
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].start.Before(cands[j].start) })

	var out []domain.Incident
	for _, g := range group(cands, cfg.MergeGap) {
		out = append(out, render(g))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func sortedByTime(events []domain.Event) []domain.Event {
	s := make([]domain.Event, len(events))
	copy(s, events)
	sort.SliceStable(s, func(i, j int) bool { return s[i].ObservedAt.Before(s[j].ObservedAt) })
	return s
}

func isOutageStart(t domain.EventType) bool {
	return t == domain.EventDown || t == domain.EventOutageStart
}

func isOutageEnd(t domain.EventType) bool {
	return t == domain.EventRestored || t == domain.EventOutageEnd
}

// outageCandidates pairs each start with the first unconsumed end at or
// after it. A start with no end is an open outage.
func outageCandidates(sorted []domain.Event) []candidate {
	var ends []domain.Event
	for _, e := range sorted {
		if isOutageEnd(e.Type) {
			ends = append(ends, e)
		}
	}
	used := make([]bool, len(ends))

	var out []candidate
	for _, e := range sorted {
		if !isOutageStart(e.Type) {
			continue
		}
		c := candidate{kind: domain.KindOutage, start: e.ObservedAt, cause: domain.CauseUnknown}
		for i, end := range ends {
			if used[i] || end.ObservedAt.Before(e.ObservedAt) {
				continue
			}
			used[i] = true
			t := end.ObservedAt
			c.end = &t
			c.cause = domain.ParseCause(end.Str(domain.KeyCause))
			break
		}
		out = append(out, c)
	}
	return out
}

func slowCandidates(sorted []domain.Event, cfg Config) []candidate {
	var out []candidate
	for i, e := range sorted {
		if e.Type != domain.EventSpeedTest {
			continue
		}
		mbps, ok := e.DownloadMbps()
		if !ok || mbps >= cfg.SlowThresholdMbps {
			continue
		}
		trig := e.Trigger()
		if trig.IsRetest() {
			continue
		}
		c := candidate{kind: domain.KindSlowSpeed, start: e.ObservedAt, mbps: mbps, trigger: trig}
		c.retest = findRetest(sorted[i+1:], e.ObservedAt, cfg)
		out = append(out, c)
	}
	return out
}

// findRetest returns the nearest retest after 'after' within the lookahead.
// rest must be sorted ascending.
func findRetest(rest []domain.Event, after time.Time, cfg Config) *domain.Retest {
	limit := after.Add(cfg.RetestLookahead)
	for _, e := range rest {
		if e.ObservedAt.After(limit) {
			return nil
		}
		if e.Type != domain.EventSpeedTest || !e.ObservedAt.After(after) || !e.Trigger().IsRetest() {
			continue
		}
		mbps, ok := e.DownloadMbps()
		if !ok {
			continue
		}
		return &domain.Retest{
			ConfirmedAt:  e.ObservedAt,
			DownloadMbps: mbps,
			Passed:       mbps >= cfg.SlowThresholdMbps,
		}
	}
	return nil
}

// group clusters start-sorted candidates: a candidate joins the open group
// when it starts within gap of the group's latest known point.
func group(cands []candidate, gap time.Duration) [][]candidate {
	var groups [][]candidate
	var cur []candidate
	var reach time.Time
	for _, c := range cands {
		if len(cur) > 0 && !c.start.After(reach.Add(gap)) {
			cur = append(cur, c)
			if lk := c.lastKnown(); lk.After(reach) {
				reach = lk
			}
			continue
		}
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
		cur = []candidate{c}
		reach = c.lastKnown()
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func single(c candidate) domain.Incident {
	inc := domain.Incident{
		Kind:       c.kind,
		StartedAt:  c.start,
		ResolvedAt: c.resolvedAt(),
	}
	switch c.kind {
	case domain.KindOutage:
		inc.Cause = c.cause
		if c.end != nil {
			d := c.end.Sub(c.start).Seconds()
			inc.DurationSeconds = &d
		}
	case domain.KindSlowSpeed:
		inc.DownloadMbps = c.mbps
		inc.Trigger = c.trigger
		inc.Retest = c.retest
	}
	return inc
}

func render(g []candidate) domain.Incident {
	if len(g) == 1 {
		return single(g[0])
	}

	inc := domain.Incident{
		Kind:        domain.KindMerged,
		StartedAt:   g[0].start,
		MemberCount: len(g),
		Cause:       domain.CauseUnknown,
	}

	var (
		outages, slow int
		downtime      time.Duration
		resolved      *time.Time
		open          bool
	)
	for _, c := range g {
		if c.start.Before(inc.StartedAt) {
			inc.StartedAt = c.start
		}
		r := c.resolvedAt()
		if r == nil {
			open = true
		} else if resolved == nil || r.After(*resolved) {
			v := *r
			resolved = &v
		}
		if c.kind == domain.KindOutage {
			outages++
			if c.end != nil {
				downtime += c.end.Sub(c.start)
			}
		} else {
			slow++
		}
		inc.Members = append(inc.Members, single(c))
	}
	if !open {
		inc.ResolvedAt = resolved
	}

	// most recent outage with a known cause wins
	for i := len(g) - 1; i >= 0; i-- {
		if g[i].kind == domain.KindOutage && g[i].cause != domain.CauseUnknown {
			inc.Cause = g[i].cause
			break
		}
	}
	inc.Summary = summaryText(outages, slow, downtime)
	return inc
}

func summaryText(outages, slow int, downtime time.Duration) string {
	var parts []string
	if outages > 0 {
		parts = append(parts, plural(outages, "outage", "outages"))
	}
	if slow > 0 {
		parts = append(parts, plural(slow, "slow speed test", "slow speed tests"))
	}
	s := strings.Join(parts, ", ")
	if downtime > 0 {
		s += fmt.Sprintf(" (total downtime %s)", FormatDuration(downtime))
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

// FormatDuration renders a duration the way notifications show it.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
