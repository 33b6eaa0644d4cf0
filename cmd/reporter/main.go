package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/agent"
	"github.com/hamed0406/linkwatch/internal/config"
	"github.com/hamed0406/linkwatch/internal/httpapi"
	"github.com/hamed0406/linkwatch/internal/logging"
	"github.com/hamed0406/linkwatch/internal/notify"
	"github.com/hamed0406/linkwatch/internal/probe"
	"github.com/hamed0406/linkwatch/internal/pushclient"
	"github.com/hamed0406/linkwatch/internal/repo/sqlite"
	"github.com/hamed0406/linkwatch/internal/scheduler"
	"github.com/hamed0406/linkwatch/internal/speedtest"
	"github.com/hamed0406/linkwatch/internal/triage"
)

func main() {
	cfg, warnings := config.ReporterFromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, "reporter")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	for _, w := range warnings {
		logger.Warn("config_warning", zap.String("detail", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.StorePath, logger)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	notifier := notify.Build(cfg.Notify, logger)

	ping := probe.NewPingChecker(cfg.PingCount, cfg.PingTimeout())
	ping.Privileged = cfg.PingPrivileged
	checker := &probe.RetryChecker{
		Inner:    &probe.SchemeChecker{HTTP: probe.NewHTTPChecker(cfg.PingTimeout()), ICMP: ping},
		Attempts: 2,
		Backoff:  time.Second,
	}

	var authoritative triage.Tester
	if cfg.AuthoritativeTestEnabled {
		authoritative = speedtest.NewOoklaTester(cfg.AuthoritativeTimeout(), logger)
	}

	a := agent.New(agent.Config{
		PingInterval:       cfg.PingInterval(),
		HeartbeatInterval:  cfg.HeartbeatInterval(),
		HighLatencyMS:      cfg.HighLatencyThresholdMS,
		SlowThresholdMbps:  cfg.SlowSpeedThresholdMbps,
		SlowRetestInterval: cfg.SlowRetestInterval(),
		ScheduledInterval:  cfg.ScheduledInterval(),
	}, agent.Deps{
		Prober:        probe.NewMultiChecker(checker, cfg.PingTargets...),
		Quick:         speedtest.NewQuickTester(cfg.CollectorURL, cfg.QuickTestTimeout()),
		Authoritative: authoritative,
		Pusher:        pushclient.New(cfg.CollectorURL, cfg.APIKey, cfg.PushTimeout()),
		Outbox:        pushclient.NewOutbox(cfg.OutboxCapacity, logger),
		Store:         store,
		Notifier:      notifier,
		System:        agent.ProcInfo{},
		Logger:        logger,
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		scheduler.NewPruner(store, cfg.RetentionDays, logger).Loop().Run(ctx)
	}()

	// Manual tests may take minutes, so there is no write timeout.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewReporterServer(logger, a).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("reporter_start",
		zap.String("collector", cfg.CollectorURL),
		zap.Strings("targets", cfg.PingTargets),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.Bool("authoritative", cfg.AuthoritativeTestEnabled),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen_failed", zap.Error(err))
	}

	wg.Wait()
	if err := multierr.Append(store.Close(), notifier.Close()); err != nil {
		logger.Warn("shutdown_close_error", zap.Error(err))
	}
	logger.Info("reporter_stopped")
}
