// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/linkwatch/internal/config"
	"github.com/hamed0406/linkwatch/internal/repo/postgres"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	role := "collector"
	if len(os.Args) > 1 {
		role = os.Args[1]
	}

	switch role {
	case "collector":
		cfg, warnings := config.CollectorFromEnv()
		for _, w := range warnings {
			warn(w)
		}
		if len(cfg.ReporterAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
			warn("REPORTER_API_KEYS is empty; anyone can push heartbeats.")
		} else {
			ok("reporter keys configured")
		}
		if len(cfg.PublicAPIKeys) == 0 {
			warn("PUBLIC_API_KEYS is empty; read routes are open.")
		}
		if cfg.DatabaseURL != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			st, err := postgres.New(ctx, cfg.DatabaseURL, zap.NewNop())
			if err != nil {
				fail("DATABASE_URL unreachable: " + err.Error())
			}
			_ = st.Close()
			ok("DATABASE_URL reachable")
		} else {
			ok("store: sqlite at " + cfg.SQLitePath)
		}
		if cfg.Notify.NtfyTopic == "" && cfg.Notify.SlackWebhook == "" && cfg.Notify.MQTTBroker == "" && cfg.Notify.BrevoAPIKey == "" {
			warn("no notifier configured; DOWN/RESTORED alerts go nowhere.")
		}
		ok(fmt.Sprintf("timeout=%s grace=%s policy=%s", cfg.HeartbeatTimeout(), cfg.StartupGrace(), cfg.OutageRestartPolicy))

	case "reporter":
		cfg, warnings := config.ReporterFromEnv()
		for _, w := range warnings {
			warn(w)
		}
		if strings.TrimSpace(cfg.APIKey) == "" {
			warn("REPORTER_API_KEY is empty; a keyed collector will reject pushes.")
		}
		c := &http.Client{Timeout: 5 * time.Second}
		resp, err := c.Get(strings.TrimRight(cfg.CollectorURL, "/") + "/health")
		if err != nil {
			fail("collector unreachable at " + cfg.CollectorURL + ": " + err.Error())
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fail("collector /health returned " + resp.Status)
		}
		ok("collector reachable at " + cfg.CollectorURL)
		ok("ping targets: " + strings.Join(cfg.PingTargets, ","))

	default:
		fail("usage: preflight collector|reporter")
	}

	ok("preflight passed")
}
