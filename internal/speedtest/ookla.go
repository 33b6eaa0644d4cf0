package speedtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/showwin/speedtest-go/speedtest"
	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/domain"
)

// OoklaTester runs a full download and upload test against the nearest
// speedtest.net server. It takes 30-60 seconds.
type OoklaTester struct {
	Timeout time.Duration
	log     *zap.Logger
}

func NewOoklaTester(timeout time.Duration, log *zap.Logger) *OoklaTester {
	return &OoklaTester{Timeout: timeout, log: log}
}

func (o *OoklaTester) Run(ctx context.Context, trigger domain.Trigger) (domain.SpeedTestOutcome, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	start := time.Now()

	client := speedtest.New()
	servers, err := client.FetchServerListContext(ctx)
	if err != nil {
		return domain.SpeedTestOutcome{}, fmt.Errorf("ookla server list: %w", err)
	}
	targets, err := servers.FindServer(nil)
	if err != nil {
		return domain.SpeedTestOutcome{}, fmt.Errorf("ookla find server: %w", err)
	}
	if len(targets) == 0 {
		return domain.SpeedTestOutcome{}, errors.New("ookla: no servers")
	}
	s := targets[0]
	o.log.Info("ookla_start", zap.String("server", s.Name), zap.String("sponsor", s.Sponsor))

	if err := s.DownloadTestContext(ctx); err != nil {
		return domain.SpeedTestOutcome{}, fmt.Errorf("ookla download: %w", err)
	}
	if err := s.UploadTestContext(ctx); err != nil {
		return domain.SpeedTestOutcome{}, fmt.Errorf("ookla upload: %w", err)
	}
	up := s.ULSpeed.Mbps()
	out := domain.SpeedTestOutcome{
		MeasuredAt:   start.UTC(),
		DownloadMbps: s.DLSpeed.Mbps(),
		UploadMbps:   &up,
		Trigger:      trigger,
		Method:       domain.MethodAuthoritative,
		Duration:     time.Since(start),
	}
	s.Context.Reset()
	return out, nil
}
