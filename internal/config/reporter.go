package config

import (
	"time"

	"github.com/hamed0406/linkwatch/internal/notify"
)

type Reporter struct {
	CollectorURL string `yaml:"collector_url"`
	APIKey       string `yaml:"api_key"`
	LogDir       string `yaml:"log_dir"`
	StorePath    string `yaml:"store_path"`
	HTTPAddr     string `yaml:"http_addr"`

	PingTargets         []string `yaml:"ping_targets"`
	PingIntervalSeconds int      `yaml:"ping_interval_seconds"`
	PingTimeoutSeconds  int      `yaml:"ping_timeout_seconds"`
	PingCount           int      `yaml:"ping_count"`
	PingPrivileged      bool     `yaml:"ping_privileged"`

	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_seconds"`
	PushTimeoutSeconds       int `yaml:"push_timeout_seconds"`
	OutboxCapacity           int `yaml:"outbox_capacity"`

	HighLatencyThresholdMS         float64 `yaml:"high_latency_threshold_ms"`
	SlowSpeedThresholdMbps         float64 `yaml:"slow_speed_threshold_mbps"`
	SlowSpeedTestIntervalSeconds   int     `yaml:"slow_speed_test_interval_seconds"`
	ScheduledSpeedTestIntervalSecs int     `yaml:"scheduled_speed_test_interval_seconds"`
	QuickTestTimeoutSeconds        int     `yaml:"quick_test_timeout_seconds"`
	AuthoritativeTestEnabled       bool    `yaml:"authoritative_test_enabled"`
	AuthoritativeTimeoutSeconds    int     `yaml:"authoritative_timeout_seconds"`

	RetentionDays int `yaml:"retention_days"`

	Notify notify.Settings `yaml:"notify"`
}

func DefaultReporter() Reporter {
	return Reporter{
		CollectorURL:                   "http://100.64.0.1:5000",
		LogDir:                         "logs",
		StorePath:                      "data/reporter.db",
		HTTPAddr:                       ":8080",
		PingTargets:                    []string{"1.1.1.1", "8.8.8.8"},
		PingIntervalSeconds:            30,
		PingTimeoutSeconds:             5,
		PingCount:                      3,
		HeartbeatIntervalSeconds:       60,
		PushTimeoutSeconds:             10,
		OutboxCapacity:                 1000,
		HighLatencyThresholdMS:         200,
		SlowSpeedThresholdMbps:         50,
		SlowSpeedTestIntervalSeconds:   300,
		ScheduledSpeedTestIntervalSecs: 3600,
		QuickTestTimeoutSeconds:        60,
		AuthoritativeTestEnabled:       true,
		AuthoritativeTimeoutSeconds:    120,
		RetentionDays:                  365,
		Notify:                         notify.Settings{NtfyServer: "https://ntfy.sh"},
	}
}

func ReporterFromEnv() (Reporter, []string) {
	cfg := DefaultReporter()
	def := DefaultReporter()
	warn := loadFile(configPath(), &cfg)
	warn = append(warn, loadDotEnv(".env")...)

	e := &env{}
	e.str("COLLECTOR_URL", &cfg.CollectorURL)
	e.str("REPORTER_API_KEY", &cfg.APIKey)
	e.str("LOG_DIR", &cfg.LogDir)
	e.str("STORE_PATH", &cfg.StorePath)
	e.str("HTTP_ADDR", &cfg.HTTPAddr)
	e.list("PING_TARGETS", &cfg.PingTargets)
	e.int("PING_INTERVAL", &cfg.PingIntervalSeconds, 1)
	e.int("PING_TIMEOUT", &cfg.PingTimeoutSeconds, 1)
	e.int("PING_COUNT", &cfg.PingCount, 1)
	e.bool("PING_PRIVILEGED", &cfg.PingPrivileged)
	e.int("HEARTBEAT_INTERVAL", &cfg.HeartbeatIntervalSeconds, 1)
	e.int("PUSH_TIMEOUT", &cfg.PushTimeoutSeconds, 1)
	e.int("OUTBOX_CAPACITY", &cfg.OutboxCapacity, 1)
	e.float("HIGH_LATENCY_THRESHOLD", &cfg.HighLatencyThresholdMS)
	e.float("SLOW_SPEED_THRESHOLD", &cfg.SlowSpeedThresholdMbps)
	e.int("SLOW_SPEED_TEST_INTERVAL", &cfg.SlowSpeedTestIntervalSeconds, 1)
	e.int("SCHEDULED_SPEED_TEST_INTERVAL", &cfg.ScheduledSpeedTestIntervalSecs, 1)
	e.int("QUICK_TEST_TIMEOUT", &cfg.QuickTestTimeoutSeconds, 1)
	e.bool("AUTHORITATIVE_TEST_ENABLED", &cfg.AuthoritativeTestEnabled)
	e.int("AUTHORITATIVE_TIMEOUT", &cfg.AuthoritativeTimeoutSeconds, 1)
	e.int("RETENTION_DAYS", &cfg.RetentionDays, 0)
	notifyFromEnv(e, &cfg.Notify)
	warn = append(warn, e.warnings...)

	if len(cfg.PingTargets) == 0 {
		warn = append(warn, "no ping_targets configured, using defaults")
		cfg.PingTargets = def.PingTargets
	}
	clampInt("ping_interval_seconds", &cfg.PingIntervalSeconds, 1, def.PingIntervalSeconds, &warn)
	clampInt("ping_timeout_seconds", &cfg.PingTimeoutSeconds, 1, def.PingTimeoutSeconds, &warn)
	clampInt("ping_count", &cfg.PingCount, 1, def.PingCount, &warn)
	clampInt("heartbeat_interval_seconds", &cfg.HeartbeatIntervalSeconds, 1, def.HeartbeatIntervalSeconds, &warn)
	clampInt("push_timeout_seconds", &cfg.PushTimeoutSeconds, 1, def.PushTimeoutSeconds, &warn)
	clampInt("outbox_capacity", &cfg.OutboxCapacity, 1, def.OutboxCapacity, &warn)
	clampInt("slow_speed_test_interval_seconds", &cfg.SlowSpeedTestIntervalSeconds, 1, def.SlowSpeedTestIntervalSeconds, &warn)
	clampInt("scheduled_speed_test_interval_seconds", &cfg.ScheduledSpeedTestIntervalSecs, 1, def.ScheduledSpeedTestIntervalSecs, &warn)
	clampInt("quick_test_timeout_seconds", &cfg.QuickTestTimeoutSeconds, 1, def.QuickTestTimeoutSeconds, &warn)
	clampInt("authoritative_timeout_seconds", &cfg.AuthoritativeTimeoutSeconds, 1, def.AuthoritativeTimeoutSeconds, &warn)
	clampInt("retention_days", &cfg.RetentionDays, 0, def.RetentionDays, &warn)
	clampFloat("high_latency_threshold_ms", &cfg.HighLatencyThresholdMS, def.HighLatencyThresholdMS, &warn)
	clampFloat("slow_speed_threshold_mbps", &cfg.SlowSpeedThresholdMbps, def.SlowSpeedThresholdMbps, &warn)
	return cfg, warn
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func (r Reporter) PingInterval() time.Duration       { return secs(r.PingIntervalSeconds) }
func (r Reporter) PingTimeout() time.Duration        { return secs(r.PingTimeoutSeconds) }
func (r Reporter) HeartbeatInterval() time.Duration  { return secs(r.HeartbeatIntervalSeconds) }
func (r Reporter) PushTimeout() time.Duration        { return secs(r.PushTimeoutSeconds) }
func (r Reporter) SlowRetestInterval() time.Duration { return secs(r.SlowSpeedTestIntervalSeconds) }
func (r Reporter) ScheduledInterval() time.Duration  { return secs(r.ScheduledSpeedTestIntervalSecs) }
func (r Reporter) QuickTestTimeout() time.Duration   { return secs(r.QuickTestTimeoutSeconds) }
func (r Reporter) AuthoritativeTimeout() time.Duration {
	return secs(r.AuthoritativeTimeoutSeconds)
}
