package config

import (
	"time"

	"github.com/hamed0406/linkwatch/internal/notify"
)

type Collector struct {
	Addr        string `yaml:"listen_addr"`
	LogDir      string `yaml:"log_dir"`
	DatabaseURL string `yaml:"database_url"` // postgres when set, sqlite otherwise
	SQLitePath  string `yaml:"sqlite_path"`

	PublicAPIKeys   []string `yaml:"public_api_keys"`
	ReporterAPIKeys []string `yaml:"reporter_api_keys"`
	AdminAPIKeys    []string `yaml:"admin_api_keys"`
	CORSOrigins     []string `yaml:"cors_origins"`
	PublicRPM       int      `yaml:"public_rpm"`
	PublicBurst     int      `yaml:"public_burst"`
	ReporterRPM     int      `yaml:"reporter_rpm"`
	ReporterBurst   int      `yaml:"reporter_burst"`

	HeartbeatTimeoutSeconds int     `yaml:"heartbeat_timeout_seconds"`
	CheckIntervalSeconds    int     `yaml:"check_interval_seconds"`
	StartupGraceSeconds     int     `yaml:"startup_grace_seconds"`
	OutageRestartPolicy     string  `yaml:"outage_restart_policy"`
	SlowSpeedThresholdMbps  float64 `yaml:"slow_speed_threshold_mbps"`
	MergeGapMinutes         int     `yaml:"merge_gap_minutes"`
	RetestLookaheadMinutes  int     `yaml:"retest_lookahead_minutes"`
	RetentionDays           int     `yaml:"retention_days"`
	SpeedtestPayloadBytes   int     `yaml:"speedtest_payload_bytes"`

	Notify notify.Settings `yaml:"notify"`
}

func DefaultCollector() Collector {
	return Collector{
		Addr:                    ":5000",
		LogDir:                  "logs",
		SQLitePath:              "data/collector.db",
		CORSOrigins:             []string{"*"},
		PublicRPM:               120,
		PublicBurst:             60,
		ReporterRPM:             600,
		ReporterBurst:           120,
		HeartbeatTimeoutSeconds: 180,
		CheckIntervalSeconds:    30,
		StartupGraceSeconds:     120,
		OutageRestartPolicy:     "discard",
		SlowSpeedThresholdMbps:  50,
		MergeGapMinutes:         30,
		RetestLookaheadMinutes:  15,
		RetentionDays:           365,
		SpeedtestPayloadBytes:   10 << 20,
		Notify:                  notify.Settings{NtfyServer: "https://ntfy.sh"},
	}
}

// CollectorFromEnv loads the collector settings. The returned warnings
// describe every field that fell back to its default.
func CollectorFromEnv() (Collector, []string) {
	cfg := DefaultCollector()
	def := DefaultCollector()
	warn := loadFile(configPath(), &cfg)
	warn = append(warn, loadDotEnv(".env")...)

	e := &env{}
	e.str("LISTEN_ADDR", &cfg.Addr)
	e.str("LOG_DIR", &cfg.LogDir)
	e.str("DATABASE_URL", &cfg.DatabaseURL)
	e.str("SQLITE_PATH", &cfg.SQLitePath)
	e.list("PUBLIC_API_KEYS", &cfg.PublicAPIKeys)
	e.list("REPORTER_API_KEYS", &cfg.ReporterAPIKeys)
	e.list("ADMIN_API_KEYS", &cfg.AdminAPIKeys)
	e.list("CORS_ORIGINS", &cfg.CORSOrigins)
	e.int("PUBLIC_RPM", &cfg.PublicRPM, 0)
	e.int("PUBLIC_BURST", &cfg.PublicBurst, 1)
	e.int("REPORTER_RPM", &cfg.ReporterRPM, 0)
	e.int("REPORTER_BURST", &cfg.ReporterBurst, 1)
	e.int("HEARTBEAT_TIMEOUT", &cfg.HeartbeatTimeoutSeconds, 1)
	e.int("CHECK_INTERVAL", &cfg.CheckIntervalSeconds, 1)
	e.int("STARTUP_GRACE", &cfg.StartupGraceSeconds, 0)
	e.str("OUTAGE_RESTART_POLICY", &cfg.OutageRestartPolicy)
	e.float("SLOW_SPEED_THRESHOLD", &cfg.SlowSpeedThresholdMbps)
	e.int("MERGE_GAP_MINUTES", &cfg.MergeGapMinutes, 0)
	e.int("RETEST_LOOKAHEAD_MINUTES", &cfg.RetestLookaheadMinutes, 0)
	e.int("RETENTION_DAYS", &cfg.RetentionDays, 0)
	e.int("SPEEDTEST_PAYLOAD_BYTES", &cfg.SpeedtestPayloadBytes, 1)
	notifyFromEnv(e, &cfg.Notify)
	warn = append(warn, e.warnings...)

	clampInt("heartbeat_timeout_seconds", &cfg.HeartbeatTimeoutSeconds, 1, def.HeartbeatTimeoutSeconds, &warn)
	clampInt("check_interval_seconds", &cfg.CheckIntervalSeconds, 1, def.CheckIntervalSeconds, &warn)
	clampInt("startup_grace_seconds", &cfg.StartupGraceSeconds, 0, def.StartupGraceSeconds, &warn)
	clampInt("merge_gap_minutes", &cfg.MergeGapMinutes, 0, def.MergeGapMinutes, &warn)
	clampInt("retest_lookahead_minutes", &cfg.RetestLookaheadMinutes, 0, def.RetestLookaheadMinutes, &warn)
	clampInt("retention_days", &cfg.RetentionDays, 0, def.RetentionDays, &warn)
	clampInt("speedtest_payload_bytes", &cfg.SpeedtestPayloadBytes, 1, def.SpeedtestPayloadBytes, &warn)
	clampFloat("slow_speed_threshold_mbps", &cfg.SlowSpeedThresholdMbps, def.SlowSpeedThresholdMbps, &warn)
	if cfg.OutageRestartPolicy != "discard" && cfg.OutageRestartPolicy != "resume" {
		warn = append(warn, "invalid outage_restart_policy="+cfg.OutageRestartPolicy+", using discard")
		cfg.OutageRestartPolicy = "discard"
	}
	return cfg, warn
}

func (c Collector) HeartbeatTimeout() time.Duration {
	return time.Duration(c.HeartbeatTimeoutSeconds) * time.Second
}

func (c Collector) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

func (c Collector) StartupGrace() time.Duration {
	return time.Duration(c.StartupGraceSeconds) * time.Second
}

func (c Collector) MergeGap() time.Duration {
	return time.Duration(c.MergeGapMinutes) * time.Minute
}

func (c Collector) RetestLookahead() time.Duration {
	return time.Duration(c.RetestLookaheadMinutes) * time.Minute
}

func notifyFromEnv(e *env, n *notify.Settings) {
	e.str("NTFY_SERVER_URL", &n.NtfyServer)
	e.str("NTFY_TOPIC", &n.NtfyTopic)
	e.str("SLACK_WEBHOOK", &n.SlackWebhook)
	e.str("MQTT_BROKER", &n.MQTTBroker)
	e.str("MQTT_TOPIC", &n.MQTTTopic)
	e.str("MQTT_CLIENT_ID", &n.MQTTClientID)
	e.str("BREVO_API_KEY", &n.BrevoAPIKey)
	e.str("EMAIL_FROM", &n.EmailFrom)
	e.str("EMAIL_TO", &n.EmailTo)
	var p string
	e.str("EMAIL_MIN_PRIORITY", &p)
	if p != "" {
		n.EmailMinPriority = notify.Priority(p)
	}
}
