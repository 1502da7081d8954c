// Package config defines the top-level configuration for the equilibrium
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by EQUILIBRIUM_* environment
// variables.
type Config struct {
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	PriceFeed PriceFeedConfig `toml:"price_feed"`
	Tracker   TrackerConfig   `toml:"tracker"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Local     LocalConfig     `toml:"local"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. When neither DSN nor
// Host is set, the application falls back to the local file store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a database connection is configured at all.
func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

// RedisConfig holds Redis connection parameters. Redis is optional; with no
// address configured the latest-price cache and the poll lock are disabled.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Enabled reports whether a Redis connection is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// S3Config holds S3-compatible object storage parameters for the snapshot
// archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PriceFeedConfig holds upstream price provider parameters and the
// request-serving cache TTL.
type PriceFeedConfig struct {
	BaseURL  string   `toml:"base_url"`
	Timeout  duration `toml:"timeout"`
	CacheTTL duration `toml:"cache_ttl"`
}

// TrackerConfig holds live position tracker parameters. The poll interval is
// independent of (and longer than) the price cache TTL, so request bursts and
// background polling never multiply upstream calls.
type TrackerConfig struct {
	Interval duration `toml:"interval"`
	// LiquidationAlertPct raises an alert when the distance to the
	// liquidation price drops below this percentage.
	LiquidationAlertPct float64 `toml:"liquidation_alert_pct"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// PriceRateLimit caps /api/prices requests per client IP per minute.
	PriceRateLimit int `toml:"price_rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// LocalConfig holds parameters for the local JSON file store used when no
// database is configured.
type LocalConfig struct {
	Path string `toml:"path"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "10s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "10s" or "1m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "equilibrium",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "equilibrium-snapshots",
			ForcePathStyle: true,
		},
		PriceFeed: PriceFeedConfig{
			Timeout:  duration{30 * time.Second},
			CacheTTL: duration{10 * time.Second},
		},
		Tracker: TrackerConfig{
			Interval:            duration{60 * time.Second},
			LiquidationAlertPct: 10,
		},
		Server: ServerConfig{
			Port:           8080,
			PriceRateLimit: 60,
		},
		Local: LocalConfig{
			Path: "positions.json",
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies that would only
// surface later at runtime.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "serve", "track", "full":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	if c.PriceFeed.CacheTTL.Duration <= 0 {
		return fmt.Errorf("config: price_feed.cache_ttl must be positive")
	}
	if c.Tracker.Interval.Duration < time.Second {
		return fmt.Errorf("config: tracker.interval %s too short", c.Tracker.Interval)
	}
	if c.Tracker.Interval.Duration <= c.PriceFeed.CacheTTL.Duration {
		return fmt.Errorf("config: tracker.interval %s must exceed price_feed.cache_ttl %s",
			c.Tracker.Interval, c.PriceFeed.CacheTTL)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: s3.bucket required when s3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("config: s3.region required when s3 is enabled")
		}
	}

	if !c.Postgres.Enabled() && strings.TrimSpace(c.Local.Path) == "" {
		return fmt.Errorf("config: local.path required when postgres is not configured")
	}

	return nil
}

// Redacted returns a copy of the config with sensitive fields replaced by a
// placeholder, safe for logging.
func (c *Config) Redacted() Config {
	out := *c
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
