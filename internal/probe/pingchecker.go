package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ping/ping"
)

// PingChecker sends Count ICMP echoes and succeeds if any reply arrives.
// Unprivileged (UDP) mode is used unless Privileged is set.
type PingChecker struct {
	Count      int
	Timeout    time.Duration
	Privileged bool
}

func NewPingChecker(count int, timeout time.Duration) *PingChecker {
	if count < 1 {
		count = 1
	}
	return &PingChecker{Count: count, Timeout: timeout}
}

func (p *PingChecker) Check(ctx context.Context, target string) CheckResult {
	pinger, err := ping.NewPinger(target)
	if err != nil {
		return CheckResult{Target: target, Message: err.Error()}
	}
	pinger.Count = p.Count
	pinger.Timeout = p.Timeout
	pinger.SetPrivileged(p.Privileged)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()
	err = pinger.Run()
	close(done)
	if err != nil {
		return CheckResult{Target: target, Message: err.Error()}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return CheckResult{Target: target, Message: fmt.Sprintf("%d/%d lost", stats.PacketsSent, stats.PacketsSent)}
	}
	return CheckResult{
		Target:    target,
		Success:   true,
		LatencyMS: latency(float64(stats.AvgRtt) / float64(time.Millisecond)),
		Message:   fmt.Sprintf("%d/%d received", stats.PacketsRecv, stats.PacketsSent),
	}
}
