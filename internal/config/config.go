// Package config loads and validates keywatch configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/keywatch/internal/watch"
)

// DefaultUserAgent is a desktop browser string; the target and ranking pages
// reject obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Target   TargetConfig   `mapstructure:"target"`
	Keywords KeywordsConfig `mapstructure:"keywords"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Run      RunConfig      `mapstructure:"run"`
	Headless HeadlessConfig `mapstructure:"headless"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Database DatabaseConfig `mapstructure:"database"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Progress ProgressConfig `mapstructure:"progress"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	// Level overrides the default level (debug in development, info otherwise).
	Level string `mapstructure:"level"`
}

// HTTPConfig configures outbound page requests.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	// Headers are sent with every page and ranking request. Keys are
	// case-insensitive.
	Headers map[string]string `mapstructure:"headers"`
}

// MonitorConfig controls the poll loop.
type MonitorConfig struct {
	IntervalSeconds      int  `mapstructure:"interval_seconds"`
	JitterMinSeconds     int  `mapstructure:"jitter_min_seconds"`
	JitterMaxSeconds     int  `mapstructure:"jitter_max_seconds"`
	RecoveryDelaySeconds int  `mapstructure:"recovery_delay_seconds"`
	SeenLimit            int  `mapstructure:"seen_limit"`
	Autostart            bool `mapstructure:"autostart"`
}

// TargetConfig names the default page to watch.
type TargetConfig struct {
	URL string `mapstructure:"url"`
}

// KeywordsConfig configures the ranking and trend sources.
type KeywordsConfig struct {
	RankingURL           string   `mapstructure:"ranking_url"`
	RankingClassFragment string   `mapstructure:"ranking_class_fragment"`
	RankingTokens        int      `mapstructure:"ranking_tokens"`
	TrendURL             string   `mapstructure:"trend_url"`
	Max                  int      `mapstructure:"max"`
	Fallback             []string `mapstructure:"fallback"`
}

// TelegramConfig configures notification delivery. Token and ChatID are only
// used for autostart; API callers pass their own.
type TelegramConfig struct {
	Token          string  `mapstructure:"token"`
	ChatID         string  `mapstructure:"chat_id"`
	APIEndpoint    string  `mapstructure:"api_endpoint"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// RunConfig holds the autostart run parameters.
type RunConfig struct {
	Mode string `mapstructure:"mode"`
	// Keywords is a comma separated manual keyword list.
	Keywords string `mapstructure:"keywords"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// PubSubConfig holds the optional hit fan-out topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// DatabaseConfig enables the Postgres hit history when DSN is set.
type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
}

// TracingConfig controls OpenTelemetry spans for monitor passes.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ProjectID   string  `mapstructure:"project_id"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// ProgressConfig sizes the event hub and the recent-line ring.
type ProgressConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	RingSize   int `mapstructure:"ring_size"`
	// Stdout also prints every status line to standard output.
	Stdout bool `mapstructure:"stdout"`
}

// Load builds a Config from disk/environment. Environment variables use the
// KEYWATCH_ prefix with dots replaced by underscores.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KEYWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", DefaultUserAgent)
	v.SetDefault("http.headers", map[string]string{"accept-language": "ko-KR,ko;q=0.9,en;q=0.8"})
	v.SetDefault("monitor.interval_seconds", 60)
	v.SetDefault("monitor.jitter_min_seconds", 1)
	v.SetDefault("monitor.jitter_max_seconds", 10)
	v.SetDefault("monitor.recovery_delay_seconds", 60)
	v.SetDefault("monitor.seen_limit", 0)
	v.SetDefault("monitor.autostart", false)
	v.SetDefault("target.url", "https://news.naver.com/main/list.naver?mode=LS2D&mid=shm&sid1=105&sid2=230")
	v.SetDefault("keywords.ranking_url", "https://search.shopping.naver.com/best/today")
	v.SetDefault("keywords.ranking_class_fragment", "title")
	v.SetDefault("keywords.ranking_tokens", 2)
	v.SetDefault("keywords.trend_url", "https://trends.google.co.kr/trending/rss?geo=KR")
	v.SetDefault("keywords.max", 10)
	v.SetDefault("keywords.fallback", []string{"특가", "할인", "대란", "품절", "이벤트"})
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_endpoint", "https://api.telegram.org/bot%s/%s")
	v.SetDefault("telegram.rate_per_second", 1.0)
	v.SetDefault("telegram.timeout_seconds", 10)
	v.SetDefault("run.mode", string(watch.ModeManual))
	v.SetDefault("run.keywords", "")
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime_seconds", 1800)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.project_id", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.ring_size", 500)
	v.SetDefault("progress.stdout", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return errors.New("http.timeout_seconds must be > 0")
	}
	if c.Monitor.IntervalSeconds <= 0 {
		return errors.New("monitor.interval_seconds must be > 0")
	}
	if c.Monitor.JitterMinSeconds < 0 || c.Monitor.JitterMaxSeconds < c.Monitor.JitterMinSeconds {
		return errors.New("monitor.jitter_min_seconds must be >= 0 and <= monitor.jitter_max_seconds")
	}
	if c.Monitor.RecoveryDelaySeconds < 0 {
		return errors.New("monitor.recovery_delay_seconds must be >= 0")
	}
	if c.Monitor.SeenLimit < 0 {
		return errors.New("monitor.seen_limit must be >= 0")
	}
	if strings.TrimSpace(c.Target.URL) == "" {
		return errors.New("target.url must be set")
	}
	if c.Keywords.Max <= 0 {
		return errors.New("keywords.max must be > 0")
	}
	if _, err := watch.ParseMode(c.Run.Mode); err != nil {
		return fmt.Errorf("run.mode: %w", err)
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return errors.New("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return errors.New("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.Database.MaxConns < 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return errors.New("database.min_conns must be >= 0 and <= database.max_conns")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return errors.New("tracing.sample_ratio must be within [0, 1]")
	}
	if c.Monitor.Autostart && (c.Telegram.Token == "" || c.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id must be set when monitor.autostart is enabled")
	}
	return nil
}

// RunConfig builds the watch.Config used for autostart.
func (c Config) RunConfig() (watch.Config, error) {
	mode, err := watch.ParseMode(c.Run.Mode)
	if err != nil {
		return watch.Config{}, fmt.Errorf("run.mode: %w", err)
	}
	return watch.Config{
		NotifierToken:  c.Telegram.Token,
		ChatID:         c.Telegram.ChatID,
		TargetURL:      c.Target.URL,
		Mode:           mode,
		ManualKeywords: watch.SplitKeywords(c.Run.Keywords),
	}, nil
}

// HTTPTimeout is the per-request budget for page and keyword fetches.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RequestHeaders returns HTTP.Headers with canonical header keys. Empty
// values are skipped.
func (c Config) RequestHeaders() http.Header {
	h := make(http.Header, len(c.HTTP.Headers))
	for k, v := range c.HTTP.Headers {
		if strings.TrimSpace(k) == "" || v == "" {
			continue
		}
		h.Set(k, v)
	}
	return h
}

// Seconds converts a whole-second knob to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
