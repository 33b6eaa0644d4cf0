package agent

import (
	"context"

	"go.uber.org/zap"
)

// HeartbeatOnce proves liveness to the collector while the link is up and,
// on success, drains the outbox. Nothing is sent during an outage.
func (a *Agent) HeartbeatOnce(ctx context.Context) {
	if !a.Online() {
		return
	}
	boot := a.d.System.BootID()
	if err := a.d.Pusher.Heartbeat(ctx, boot, a.d.System.UptimeSeconds()); err != nil {
		a.log.Warn("heartbeat_failed", zap.Error(err))
		return
	}
	a.mu.Lock()
	a.lastBeatAt = a.now().UTC()
	a.mu.Unlock()

	if a.d.Outbox == nil || a.d.Outbox.Len() == 0 {
		return
	}
	n, err := a.d.Outbox.Flush(ctx, a.d.Pusher.Deliver)
	if err != nil {
		a.log.Warn("outbox_flush_incomplete", zap.Int("sent", n), zap.Int("pending", a.d.Outbox.Len()), zap.Error(err))
		return
	}
	a.log.Info("outbox_flushed", zap.Int("sent", n))
}
