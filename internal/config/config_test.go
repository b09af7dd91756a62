package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func TestDefaultsValidateWithSecret(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with jwt secret should validate, got: %v", err)
	}
}

func TestValidateRejectsMissingJWTSecret(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when server enabled without jwt_secret")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("error should mention jwt_secret, got: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "turbo" }, "mode"},
		{"unknown platform", func(c *Config) { c.Market.Platform = "dreamcast" }, "platform"},
		{"unknown strategy", func(c *Config) { c.Pricing.Strategy = "yolo" }, "strategy"},
		{"fee out of range", func(c *Config) { c.Pricing.PlatformFeePct = 1.5 }, "platform_fee_pct"},
		{"zero refresh interval", func(c *Config) { c.Scheduler.RefreshInterval = duration{} }, "refresh_interval"},
		{"zero retries", func(c *Config) { c.Market.MaxRetries = 0 }, "max_retries"},
		{"cap below base", func(c *Config) {
			c.Market.BackoffBase = duration{2 * time.Second}
			c.Market.BackoffCap = duration{time.Second}
		}, "backoff_cap"},
		{"bad port", func(c *Config) { c.Server.Port = 99999 }, "port"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitRPS = -1 }, "rate_limit_rps"},
		{"pool min above max", func(c *Config) {
			c.Postgres.PoolMinConns = 20
			c.Postgres.PoolMaxConns = 5
		}, "pool_min_conns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error should mention %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "poll"

[market]
platform = "xbox"
requests_per_second = 0.5

[scheduler]
refresh_interval = "2m"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "poll" {
		t.Errorf("got mode %q, want poll", cfg.Mode)
	}
	if cfg.Market.Platform != "xbox" {
		t.Errorf("got platform %q, want xbox", cfg.Market.Platform)
	}
	if cfg.Scheduler.RefreshInterval.Duration != 2*time.Minute {
		t.Errorf("got refresh interval %v, want 2m", cfg.Scheduler.RefreshInterval.Duration)
	}
	// Untouched fields keep their defaults.
	if cfg.Market.BaseURL != "https://api.warframe.market/v1" {
		t.Errorf("default base_url lost: %q", cfg.Market.BaseURL)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("default port lost: %d", cfg.Server.Port)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("mode = \"full\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PRIMEFLIP_MODE", "server")
	t.Setenv("PRIMEFLIP_PRICING_STRATEGY", "aggressive")
	t.Setenv("PRIMEFLIP_SCHEDULER_REFRESH_INTERVAL", "90s")
	t.Setenv("PRIMEFLIP_POSTGRES_PASSWORD", "hunter2")
	t.Setenv("PRIMEFLIP_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != "server" {
		t.Errorf("got mode %q, want server", cfg.Mode)
	}
	if cfg.Pricing.Strategy != "aggressive" {
		t.Errorf("got strategy %q, want aggressive", cfg.Pricing.Strategy)
	}
	if cfg.Scheduler.RefreshInterval.Duration != 90*time.Second {
		t.Errorf("got refresh interval %v, want 90s", cfg.Scheduler.RefreshInterval.Duration)
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Errorf("postgres password override not applied")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("got cors origins %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestDatabaseURLAlias(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/primeflip")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.DSN != "postgres://u:p@db:5432/primeflip" {
		t.Errorf("DATABASE_URL alias not applied, got %q", cfg.Postgres.DSN)
	}
}
