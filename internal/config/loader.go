package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PRIMEFLIP_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PRIMEFLIP_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Market ──
	setStr(&cfg.Market.BaseURL, "PRIMEFLIP_MARKET_BASE_URL")
	setStr(&cfg.Market.Platform, "PRIMEFLIP_MARKET_PLATFORM")
	setStr(&cfg.Market.UserAgent, "PRIMEFLIP_MARKET_USER_AGENT")
	setDuration(&cfg.Market.RequestTimeout, "PRIMEFLIP_MARKET_REQUEST_TIMEOUT")
	setInt(&cfg.Market.MaxRetries, "PRIMEFLIP_MARKET_MAX_RETRIES")
	setDuration(&cfg.Market.BackoffBase, "PRIMEFLIP_MARKET_BACKOFF_BASE")
	setDuration(&cfg.Market.BackoffCap, "PRIMEFLIP_MARKET_BACKOFF_CAP")
	setFloat64(&cfg.Market.RequestsPerSecond, "PRIMEFLIP_MARKET_REQUESTS_PER_SECOND")

	// ── Pricing ──
	setStr(&cfg.Pricing.Strategy, "PRIMEFLIP_PRICING_STRATEGY")
	setFloat64(&cfg.Pricing.PlatformFeePct, "PRIMEFLIP_PRICING_PLATFORM_FEE_PCT")

	// ── Scheduler ──
	setDuration(&cfg.Scheduler.RefreshInterval, "PRIMEFLIP_SCHEDULER_REFRESH_INTERVAL")
	setFloat64(&cfg.Scheduler.AlertMinProfit, "PRIMEFLIP_SCHEDULER_ALERT_MIN_PROFIT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PRIMEFLIP_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "PRIMEFLIP_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PRIMEFLIP_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PRIMEFLIP_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PRIMEFLIP_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PRIMEFLIP_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PRIMEFLIP_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PRIMEFLIP_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PRIMEFLIP_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PRIMEFLIP_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PRIMEFLIP_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PRIMEFLIP_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PRIMEFLIP_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PRIMEFLIP_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PRIMEFLIP_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PRIMEFLIP_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PRIMEFLIP_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PRIMEFLIP_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PRIMEFLIP_S3_REGION")
	setStr(&cfg.S3.Bucket, "PRIMEFLIP_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PRIMEFLIP_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PRIMEFLIP_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PRIMEFLIP_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PRIMEFLIP_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "PRIMEFLIP_S3_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PRIMEFLIP_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PRIMEFLIP_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PRIMEFLIP_SERVER_CORS_ORIGINS")
	setFloat64(&cfg.Server.RateLimitRPS, "PRIMEFLIP_SERVER_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateLimitBurst, "PRIMEFLIP_SERVER_RATE_LIMIT_BURST")

	// ── Auth ──
	setStr(&cfg.Auth.JWTSecret, "PRIMEFLIP_AUTH_JWT_SECRET")
	setDuration(&cfg.Auth.TokenTTL, "PRIMEFLIP_AUTH_TOKEN_TTL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PRIMEFLIP_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PRIMEFLIP_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PRIMEFLIP_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PRIMEFLIP_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PRIMEFLIP_MODE")
	setStr(&cfg.LogLevel, "PRIMEFLIP_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
