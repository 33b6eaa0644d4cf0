package probe

import (
	"context"
	"strings"
)

// CheckResult is the unified result of a single probe.
//
// LatencyMS is nil when the probe failed or the latency could not be
// measured; callers treat that as an absent measurement.
type CheckResult struct {
	Target     string
	Success    bool
	LatencyMS  *float64
	Message    string
	StatusCode int
}

// Checker performs a single check for a given target.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

func latency(ms float64) *float64 { return &ms }

// SchemeChecker routes http(s) targets to HTTP and everything else to ICMP.
type SchemeChecker struct {
	HTTP Checker
	ICMP Checker
}

func (s *SchemeChecker) Check(ctx context.Context, target string) CheckResult {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return s.HTTP.Check(ctx, target)
	}
	return s.ICMP.Check(ctx, target)
}
