package probe

import "context"

// MultiChecker walks Targets in order and stops at the first success.
// The link counts as online if any target answered.
type MultiChecker struct {
	Inner   Checker
	Targets []string
}

func NewMultiChecker(inner Checker, targets ...string) *MultiChecker {
	return &MultiChecker{Inner: inner, Targets: targets}
}

func (m *MultiChecker) Run(ctx context.Context) CheckResult {
	var last CheckResult
	for _, t := range m.Targets {
		if ctx.Err() != nil {
			break
		}
		last = m.Inner.Check(ctx, t)
		if last.Success {
			return last
		}
	}
	if len(m.Targets) == 0 {
		return CheckResult{Message: "no targets"}
	}
	// report the first target on total failure
	last.Target = m.Targets[0]
	last.Success = false
	last.LatencyMS = nil
	return last
}
