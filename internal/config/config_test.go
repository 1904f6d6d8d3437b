package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/keywatch/internal/watch"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
logging:
  development: false
  level: warn
http:
  timeout_seconds: 45
  user_agent: test-agent
  headers:
    accept-language: en-US
    x-empty: ""
monitor:
  interval_seconds: 30
  jitter_min_seconds: 2
  jitter_max_seconds: 4
  recovery_delay_seconds: 90
  seen_limit: 1000
  autostart: true
target:
  url: https://news.example/list
keywords:
  max: 5
  fallback: ["세일", "쿠폰"]
telegram:
  token: "123:abc"
  chat_id: "-100"
  rate_per_second: 0.5
run:
  mode: Ranking
  keywords: "대란, 품절,"
headless:
  enabled: true
  max_parallel: 2
  nav_timeout_seconds: 30
  promotion_threshold: 4096
pubsub:
  project_id: proj
  topic_name: hits
progress:
  ring_size: 50
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
	if cfg.Monitor.SeenLimit != 1000 || !cfg.Monitor.Autostart {
		t.Fatalf("expected monitor overrides, got %+v", cfg.Monitor)
	}
	if got := strings.Join(cfg.Keywords.Fallback, ","); got != "세일,쿠폰" {
		t.Fatalf("expected fallback override, got %q", got)
	}
	if cfg.Keywords.RankingTokens != 2 || cfg.Keywords.RankingClassFragment != "title" {
		t.Fatalf("expected keyword defaults to survive partial override: %+v", cfg.Keywords)
	}
	if cfg.Telegram.RatePerSecond != 0.5 {
		t.Fatalf("expected rate 0.5, got %v", cfg.Telegram.RatePerSecond)
	}
	if got := cfg.HTTPTimeout(); got != 45*time.Second {
		t.Fatalf("expected http timeout 45s, got %v", got)
	}
	headers := cfg.RequestHeaders()
	if got := headers.Get("Accept-Language"); got != "en-US" {
		t.Fatalf("expected Accept-Language override, got %q", got)
	}
	if _, ok := headers["X-Empty"]; ok {
		t.Fatalf("expected empty header to be skipped, got %v", headers)
	}

	run, err := cfg.RunConfig()
	if err != nil {
		t.Fatalf("RunConfig() error = %v", err)
	}
	if run.Mode != watch.ModeRanking || run.TargetURL != "https://news.example/list" {
		t.Fatalf("unexpected run config: %+v", run)
	}
	if len(run.ManualKeywords) != 2 || run.ManualKeywords[1] != "품절" {
		t.Fatalf("expected trimmed manual keywords, got %q", run.ManualKeywords)
	}
	if err := run.Validate(); err != nil {
		t.Fatalf("expected autostart run config to validate: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 || !cfg.Logging.Development {
		t.Fatalf("unexpected server/logging defaults: %+v %+v", cfg.Server, cfg.Logging)
	}
	if cfg.Monitor.IntervalSeconds != 60 || cfg.Monitor.JitterMinSeconds != 1 ||
		cfg.Monitor.JitterMaxSeconds != 10 || cfg.Monitor.RecoveryDelaySeconds != 60 {
		t.Fatalf("unexpected monitor defaults: %+v", cfg.Monitor)
	}
	if cfg.HTTP.UserAgent != DefaultUserAgent {
		t.Fatalf("unexpected user agent %q", cfg.HTTP.UserAgent)
	}
	if got := cfg.RequestHeaders().Get("Accept-Language"); !strings.HasPrefix(got, "ko-KR") {
		t.Fatalf("unexpected default Accept-Language %q", got)
	}
	if len(cfg.Keywords.Fallback) != 5 || cfg.Keywords.Fallback[0] != "특가" {
		t.Fatalf("unexpected fallback defaults: %q", cfg.Keywords.Fallback)
	}
	if cfg.Telegram.APIEndpoint != "https://api.telegram.org/bot%s/%s" {
		t.Fatalf("unexpected telegram endpoint %q", cfg.Telegram.APIEndpoint)
	}
	if cfg.Headless.PromotionThresh != 2048 || cfg.Progress.RingSize != 500 {
		t.Fatalf("unexpected headless/progress defaults")
	}
	if cfg.Database.DSN != "" || cfg.Database.MaxConns != 4 || cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 1 {
		t.Fatalf("unexpected database/tracing defaults: %+v %+v", cfg.Database, cfg.Tracing)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("KEYWATCH_SERVER_PORT", "9999")
	t.Setenv("KEYWATCH_RUN_KEYWORDS", "특가,할인")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("expected env port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Run.Keywords != "특가,할인" {
		t.Fatalf("expected env keywords, got %q", cfg.Run.Keywords)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080},
		HTTP:     HTTPConfig{TimeoutSeconds: 10},
		Monitor:  MonitorConfig{IntervalSeconds: 60, JitterMinSeconds: 1, JitterMaxSeconds: 10},
		Target:   TargetConfig{URL: "https://news.example"},
		Keywords: KeywordsConfig{Max: 10},
		Run:      RunConfig{Mode: "manual"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"invalid interval", func(c *Config) { c.Monitor.IntervalSeconds = 0 }, "monitor.interval_seconds"},
		{"inverted jitter", func(c *Config) { c.Monitor.JitterMinSeconds = 20 }, "monitor.jitter_min_seconds"},
		{"negative recovery", func(c *Config) { c.Monitor.RecoveryDelaySeconds = -1 }, "monitor.recovery_delay_seconds"},
		{"negative seen limit", func(c *Config) { c.Monitor.SeenLimit = -1 }, "monitor.seen_limit"},
		{"missing target", func(c *Config) { c.Target.URL = " " }, "target.url"},
		{"invalid keyword max", func(c *Config) { c.Keywords.Max = 0 }, "keywords.max"},
		{"unknown mode", func(c *Config) { c.Run.Mode = "weekly" }, "run.mode"},
		{"headless missing max parallel", func(c *Config) {
			c.Headless.Enabled = true
			c.Headless.MaxParallel = 0
		}, "headless.max_parallel"},
		{"topic without project", func(c *Config) { c.PubSub.TopicName = "hits" }, "pubsub.project_id"},
		{"autostart without telegram", func(c *Config) { c.Monitor.Autostart = true }, "telegram.token"},
		{"sample ratio above one", func(c *Config) { c.Tracing.SampleRatio = 1.5 }, "tracing.sample_ratio"},
		{"inverted db pool", func(c *Config) { c.Database.MinConns = 5 }, "database.min_conns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
