package probe

import (
	"context"
	"net/http"
	"time"
)

// HTTPChecker probes http(s) targets with a HEAD request.
type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return CheckResult{Target: target, Message: err.Error()}
	}

	resp, err := h.Client.Do(req)
	ms := time.Since(start).Seconds() * 1000
	if err != nil {
		return CheckResult{Target: target, Message: err.Error()}
	}
	defer resp.Body.Close()

	// any response proves the link; the status is informational
	return CheckResult{
		Target:     target,
		Success:    true,
		LatencyMS:  latency(ms),
		Message:    resp.Status,
		StatusCode: resp.StatusCode,
	}
}
