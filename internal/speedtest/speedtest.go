// Package speedtest holds the two bandwidth testers used by the reporter:
// a quick HTTP download from the collector and an authoritative Ookla run.
package speedtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/linkwatch/internal/domain"
)

// Mbps converts a byte count over a wall-clock interval to megabits per second.
func Mbps(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) * 8 / (elapsed.Seconds() * 1_000_000)
}

// QuickTester downloads the collector's /speedtest payload.
type QuickTester struct {
	URL    string
	Client *http.Client
	Now    func() time.Time
}

func NewQuickTester(collectorURL string, timeout time.Duration) *QuickTester {
	return &QuickTester{
		URL:    strings.TrimRight(collectorURL, "/") + "/speedtest",
		Client: &http.Client{Timeout: timeout},
		Now:    time.Now,
	}
}

func (q *QuickTester) Run(ctx context.Context, trigger domain.Trigger) (domain.SpeedTestOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.URL, nil)
	if err != nil {
		return domain.SpeedTestOutcome{}, err
	}
	start := q.Now()
	resp, err := q.Client.Do(req)
	if err != nil {
		return domain.SpeedTestOutcome{}, fmt.Errorf("quick speedtest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.SpeedTestOutcome{}, fmt.Errorf("quick speedtest: HTTP %d", resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		// a truncated download is a failed test, not a slow one
		return domain.SpeedTestOutcome{}, fmt.Errorf("quick speedtest read: %w", err)
	}
	elapsed := q.Now().Sub(start)
	if n == 0 {
		return domain.SpeedTestOutcome{}, errors.New("quick speedtest: empty body")
	}
	return domain.SpeedTestOutcome{
		MeasuredAt:   start.UTC(),
		DownloadMbps: Mbps(n, elapsed),
		Trigger:      trigger,
		Method:       domain.MethodQuick,
		Duration:     elapsed,
		Bytes:        n,
	}, nil
}
