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

	"github.com/hamed0406/linkwatch/internal/collector"
	"github.com/hamed0406/linkwatch/internal/config"
	"github.com/hamed0406/linkwatch/internal/heartbeat"
	"github.com/hamed0406/linkwatch/internal/httpapi"
	apimw "github.com/hamed0406/linkwatch/internal/httpapi/middleware"
	"github.com/hamed0406/linkwatch/internal/incident"
	"github.com/hamed0406/linkwatch/internal/logging"
	"github.com/hamed0406/linkwatch/internal/notify"
	"github.com/hamed0406/linkwatch/internal/repo"
	"github.com/hamed0406/linkwatch/internal/repo/postgres"
	"github.com/hamed0406/linkwatch/internal/repo/sqlite"
	"github.com/hamed0406/linkwatch/internal/scheduler"
)

func main() {
	cfg, warnings := config.CollectorFromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, "collector")
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	for _, w := range warnings {
		logger.Warn("config_warning", zap.String("detail", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	notifier := notify.Build(cfg.Notify, logger)

	svc := collector.New(collector.Config{
		Heartbeat: heartbeat.Config{
			Timeout:      cfg.HeartbeatTimeout(),
			StartupGrace: cfg.StartupGrace(),
		},
		CheckInterval: cfg.CheckInterval(),
		RestartPolicy: collector.RestartPolicy(cfg.OutageRestartPolicy),
		Incidents: incident.Config{
			SlowThresholdMbps: cfg.SlowSpeedThresholdMbps,
			MergeGap:          cfg.MergeGap(),
			RetestLookahead:   cfg.RetestLookahead(),
		},
	}, store, notifier, logger, time.Now)
	if err := svc.Resume(ctx); err != nil {
		logger.Warn("outage_resume_failed", zap.Error(err))
	}

	var wg sync.WaitGroup
	for _, l := range []*scheduler.Loop{
		svc.WatchdogLoop(),
		scheduler.NewPruner(store, cfg.RetentionDays, logger).Loop(),
	} {
		wg.Add(1)
		go func(l *scheduler.Loop) {
			defer wg.Done()
			l.Run(ctx)
		}(l)
	}

	api := httpapi.NewServer(logger, svc, cfg.SpeedtestPayloadBytes)
	keys := apimw.Keys{
		Public:   cfg.PublicAPIKeys,
		Reporter: cfg.ReporterAPIKeys,
		Admin:    cfg.AdminAPIKeys,
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.CORSOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.ReporterRPM, cfg.ReporterBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("collector_listen",
		zap.String("addr", cfg.Addr),
		zap.Duration("heartbeat_timeout", cfg.HeartbeatTimeout()),
		zap.Duration("startup_grace", cfg.StartupGrace()),
		zap.String("restart_policy", cfg.OutageRestartPolicy),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen_failed", zap.Error(err))
	}

	wg.Wait()
	if err := multierr.Append(store.Close(), notifier.Close()); err != nil {
		logger.Warn("shutdown_close_error", zap.Error(err))
	}
	logger.Info("collector_stopped")
}

// openStore prefers Postgres when DATABASE_URL is set.
func openStore(ctx context.Context, cfg config.Collector, logger *zap.Logger) (repo.EventStore, error) {
	if cfg.DatabaseURL != "" {
		logger.Info("store_postgres")
		return postgres.New(ctx, cfg.DatabaseURL, logger)
	}
	logger.Info("store_sqlite", zap.String("path", cfg.SQLitePath))
	return sqlite.New(ctx, cfg.SQLitePath, logger)
}
