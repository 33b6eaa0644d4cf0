package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/pushclient"
)

// ProbeOnce checks connectivity and handles online/outage transitions and
// high latency.
func (a *Agent) ProbeOnce(ctx context.Context) {
	res := a.d.Prober.Run(ctx)
	now := a.now().UTC()

	a.mu.Lock()
	wasOnline := a.online
	a.online = res.Success
	a.lastProbe = &res
	var started *domain.OutageReport
	switch {
	case wasOnline && !res.Success:
		a.outageStart = &now
	case !wasOnline && res.Success && a.outageStart != nil:
		started = &domain.OutageReport{
			StartedAt:       *a.outageStart,
			EndedAt:         now,
			DurationSeconds: now.Sub(*a.outageStart).Seconds(),
		}
		a.outageStart = nil
	}
	a.mu.Unlock()

	switch {
	case wasOnline && !res.Success:
		a.log.Warn("outage_detected", zap.String("target", res.Target), zap.String("message", res.Message))
		a.record(ctx, domain.NewEvent(domain.EventOutageStart, now, nil))
	case started != nil:
		a.log.Info("outage_ended", zap.Float64("duration_seconds", started.DurationSeconds))
		a.record(ctx, domain.NewEvent(domain.EventOutageEnd, now, map[string]any{
			domain.KeyDurationSeconds: started.DurationSeconds,
			domain.KeyStartedAt:       started.StartedAt.Format(time.RFC3339),
		}))
		if a.d.Outbox != nil {
			a.d.Outbox.Push(pushclient.OutageItem(*started))
		}
		a.Request(domain.TriggerPostOutage)
	}

	if res.Success && res.LatencyMS != nil && *res.LatencyMS > a.cfg.HighLatencyMS {
		a.log.Warn("high_latency", zap.String("target", res.Target), zap.Float64("ping_ms", *res.LatencyMS))
		a.record(ctx, domain.NewEvent(domain.EventHighLatency, now, map[string]any{
			domain.KeyPingMS: *res.LatencyMS,
			"target":         res.Target,
		}))
		a.Request(domain.TriggerHighLatency)
	}
}

func (a *Agent) Online() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.online
}
