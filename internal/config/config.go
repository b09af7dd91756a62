// Package config defines the top-level configuration for primeflip and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PRIMEFLIP_* environment
// variables.
type Config struct {
	Market    MarketConfig    `toml:"market"`
	Pricing   PricingConfig   `toml:"pricing"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Auth      AuthConfig      `toml:"auth"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// MarketConfig holds Warframe Market API client parameters.
type MarketConfig struct {
	BaseURL        string   `toml:"base_url"`
	Platform       string   `toml:"platform"`
	UserAgent      string   `toml:"user_agent"`
	RequestTimeout duration `toml:"request_timeout"`
	MaxRetries     int      `toml:"max_retries"`
	BackoffBase    duration `toml:"backoff_base"`
	BackoffCap     duration `toml:"backoff_cap"`
	// RequestsPerSecond paces outbound requests so a full cycle stays
	// under the upstream rate limit.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// PricingConfig holds pricing-strategy parameters.
type PricingConfig struct {
	Strategy       string  `toml:"strategy"`
	PlatformFeePct float64 `toml:"platform_fee_pct"`
}

// SchedulerConfig holds the market-data refresh loop parameters.
type SchedulerConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
	// AlertMinProfit is the profit threshold (in platinum) above which an
	// opportunity alert is broadcast.
	AlertMinProfit float64 `toml:"alert_min_profit"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimitRPS caps requests per second per client IP; 0 disables
	// the limiter.
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
}

// AuthConfig holds JWT signing parameters for the trade-session API.
type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  duration `toml:"token_ttl"`
}

// NotifyConfig holds notification channel credentials for threshold
// alerts.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "45s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder
// can parse duration strings like "45s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// knownPlatforms enumerates the marketplaces platforms.
var knownPlatforms = map[string]bool{
	"pc":     true,
	"ps4":    true,
	"xbox":   true,
	"switch": true,
}

// knownStrategies enumerates the named pricing strategies. Unknown names
// fall back to "balanced" at compute time, but the configured strategy is
// validated strictly so typos surface at startup.
var knownStrategies = map[string]bool{
	"conservative": true,
	"balanced":     true,
	"aggressive":   true,
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			BaseURL:           "https://api.warframe.market/v1",
			Platform:          "pc",
			UserAgent:         "primeflip/1.0",
			RequestTimeout:    duration{30 * time.Second},
			MaxRetries:        5,
			BackoffBase:       duration{1 * time.Second},
			BackoffCap:        duration{60 * time.Second},
			RequestsPerSecond: 2,
		},
		Pricing: PricingConfig{
			Strategy:       "balanced",
			PlatformFeePct: 0,
		},
		Scheduler: SchedulerConfig{
			RefreshInterval: duration{45 * time.Second},
			AlertMinProfit:  50,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "primeflip",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "primeflip-archive",
			UseSSL:         false,
			ForcePathStyle: true,
			RetentionDays:  90,
		},
		Server: ServerConfig{
			Enabled:        true,
			Port:           8000,
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Auth: AuthConfig{
			TokenTTL: duration{7 * 24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity_alert"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"full":   true, // scheduler + HTTP/WS server
	"poll":   true, // scheduler only, no HTTP surface
	"server": true, // HTTP/WS server only, opportunities read from cache
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, poll, server)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Market
	if c.Market.BaseURL == "" {
		errs = append(errs, "market: base_url must not be empty")
	}
	if !knownPlatforms[strings.ToLower(c.Market.Platform)] {
		errs = append(errs, fmt.Sprintf("market: unknown platform %q (valid: pc, ps4, xbox, switch)", c.Market.Platform))
	}
	if c.Market.MaxRetries < 1 {
		errs = append(errs, "market: max_retries must be >= 1")
	}
	if c.Market.BackoffBase.Duration <= 0 {
		errs = append(errs, "market: backoff_base must be positive")
	}
	if c.Market.BackoffCap.Duration < c.Market.BackoffBase.Duration {
		errs = append(errs, "market: backoff_cap must be >= backoff_base")
	}
	if c.Market.RequestsPerSecond <= 0 {
		errs = append(errs, "market: requests_per_second must be > 0")
	}

	// Pricing
	if !knownStrategies[strings.ToLower(c.Pricing.Strategy)] {
		errs = append(errs, fmt.Sprintf("pricing: unknown strategy %q (valid: conservative, balanced, aggressive)", c.Pricing.Strategy))
	}
	if c.Pricing.PlatformFeePct < 0 || c.Pricing.PlatformFeePct >= 1 {
		errs = append(errs, fmt.Sprintf("pricing: platform_fee_pct must be in [0, 1), got %v", c.Pricing.PlatformFeePct))
	}

	// Scheduler
	if c.Scheduler.RefreshInterval.Duration <= 0 {
		errs = append(errs, "scheduler: refresh_interval must be positive")
	}
	// The retry loop's worst case must stay well under the refresh
	// interval or cycles would permanently overrun during an outage.
	worst := time.Duration(c.Market.MaxRetries) * c.Market.BackoffCap.Duration
	if c.Scheduler.RefreshInterval.Duration > 0 && worst > 20*c.Scheduler.RefreshInterval.Duration {
		errs = append(errs, fmt.Sprintf(
			"scheduler: max_retries*backoff_cap (%s) is far above refresh_interval (%s); lower retries or the cap",
			worst, c.Scheduler.RefreshInterval.Duration))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1 when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitRPS < 0 {
			errs = append(errs, "server: rate_limit_rps must be >= 0")
		}
		if c.Auth.JWTSecret == "" {
			errs = append(errs, "auth: jwt_secret must be set when the server is enabled")
		}
		if c.Auth.TokenTTL.Duration <= 0 {
			errs = append(errs, "auth: token_ttl must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
