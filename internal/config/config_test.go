package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
log:
  level: "debug"
  format: "text"

local:
  path: "/tmp/myquran-test/local.db"
  timezone: "Asia/Karachi"

srs:
  default_ease_factor: 2.5
  min_ease_factor: 1.3
  second_interval_days: 5
  max_interval_days: 180
  grace_days: 3
  memorized_after: 3

sync:
  url: "https://sync.example.com"
  token: "tok"
  call_timeout: "5s"
  schedule: "@every 10m"

server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: "5s"

database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2

auth:
  jwt_secret: "this-is-a-very-long-jwt-secret-for-testing-32+"
  token_ttl: "24h"

rate_limit:
  rps: 5
  burst: 10

cors:
  allowed_origins: ["https://app.example.com", "http://localhost:5173"]
`

func TestLoad_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, validYAML))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Log
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}

	// Local
	path, err := cfg.Local.DBPath()
	if err != nil {
		t.Fatalf("DBPath: %v", err)
	}
	if path != "/tmp/myquran-test/local.db" {
		t.Errorf("local.path = %q", path)
	}
	loc, err := cfg.Local.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.String() != "Asia/Karachi" {
		t.Errorf("local.timezone = %q", loc)
	}

	// SRS
	srs := cfg.SRS.Domain()
	if srs.SecondIntervalDays != 5 || srs.MaxIntervalDays != 180 || srs.GraceDays != 3 || srs.MemorizedAfter != 3 {
		t.Errorf("srs = %+v", srs)
	}
	if srs.FirstIntervalDays != 1 {
		t.Errorf("srs.first_interval_days default = %d, want 1", srs.FirstIntervalDays)
	}

	// Sync
	if cfg.Sync.URL != "https://sync.example.com" || cfg.Sync.Token != "tok" {
		t.Errorf("sync = %+v", cfg.Sync)
	}
	if cfg.Sync.CallTimeout != 5*time.Second {
		t.Errorf("sync.call_timeout = %v, want 5s", cfg.Sync.CallTimeout)
	}
	if cfg.Sync.Timeout != 5*time.Minute {
		t.Errorf("sync.timeout default = %v, want 5m", cfg.Sync.Timeout)
	}
	if cfg.Sync.Schedule != "@every 10m" {
		t.Errorf("sync.schedule = %q", cfg.Sync.Schedule)
	}

	// Server
	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("server addr = %q", cfg.Server.Addr())
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server.read_timeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("server.write_timeout default = %v, want 30s", cfg.Server.WriteTimeout)
	}

	// Database
	if cfg.Database.MaxConns != 10 || cfg.Database.MinConns != 2 {
		t.Errorf("database = %+v", cfg.Database)
	}

	// Auth
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("auth.token_ttl = %v, want 24h", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.JWTIssuer != "myquran" {
		t.Errorf("auth.jwt_issuer default = %q", cfg.Auth.JWTIssuer)
	}

	// Rate limit
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RPS != 5 || cfg.RateLimit.Burst != 10 {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}

	// CORS
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "http://localhost:5173" {
		t.Errorf("cors.allowed_origins = %v", cfg.CORS.AllowedOrigins)
	}

	if err := cfg.ValidateClient(); err != nil {
		t.Errorf("ValidateClient: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		t.Errorf("ValidateServer: %v", err)
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, validYAML))
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("SYNC_URL", "http://localhost:8080")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want 7070 (from ENV)", cfg.Server.Port)
	}
	if cfg.Sync.URL != "http://localhost:8080" {
		t.Errorf("sync.url = %q (from ENV)", cfg.Sync.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, "log:\n  format: json\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("log.level default = %q, want info", cfg.Log.Level)
	}
	if cfg.SRS.Domain().MemorizedAfter != 2 {
		t.Errorf("srs.memorized_after default = %d, want 2", cfg.SRS.MemorizedAfter)
	}
	if cfg.Sync.URL != "" {
		t.Errorf("sync.url default = %q, want empty", cfg.Sync.URL)
	}
	if cfg.Sync.Debounce != 2*time.Second {
		t.Errorf("sync.debounce default = %v, want 2s", cfg.Sync.Debounce)
	}
	if len(cfg.CORS.AllowedMethods) != 5 {
		t.Errorf("cors.allowed_methods default = %v", cfg.CORS.AllowedMethods)
	}

	if err := cfg.ValidateClient(); err != nil {
		t.Errorf("ValidateClient on defaults: %v", err)
	}
	if err := cfg.ValidateServer(); err == nil {
		t.Error("ValidateServer on defaults: expected error for missing dsn")
	}
}

func TestLoad_ExplicitPathNotFound(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, "server: [unclosed"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeYAML(t, dir, "log:\n  level: loud\n"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate_SRS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*SRSConfig)
	}{
		{"min ease zero", func(s *SRSConfig) { s.MinEaseFactor = 0 }},
		{"default below min", func(s *SRSConfig) { s.DefaultEaseFactor = 1.2 }},
		{"fail interval zero", func(s *SRSConfig) { s.FailIntervalDays = 0 }},
		{"max below second", func(s *SRSConfig) { s.MaxIntervalDays = 3 }},
		{"negative grace", func(s *SRSConfig) { s.GraceDays = -1 }},
		{"memorized after zero", func(s *SRSConfig) { s.MemorizedAfter = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg.SRS)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"offline without url", func(c *Config) { c.Sync.URL = "" }, false},
		{"relative url", func(c *Config) { c.Sync.URL = "sync.example.com" }, true},
		{"ftp url", func(c *Config) { c.Sync.URL = "ftp://sync.example.com" }, true},
		{"zero call timeout", func(c *Config) { c.Sync.CallTimeout = 0 }, true},
		{"timeout below call timeout", func(c *Config) { c.Sync.Timeout = time.Second }, true},
		{"bad schedule", func(c *Config) { c.Sync.Schedule = "every five minutes" }, true},
		{"bad overdue schedule", func(c *Config) { c.Sync.OverdueSchedule = "* *" }, true},
		{"unknown timezone", func(c *Config) { c.Local.Timezone = "Mars/Olympus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateClient()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"min above max conns", func(c *Config) { c.Database.MinConns = 50 }, true},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, true},
		{"zero rps", func(c *Config) { c.RateLimit.RPS = 0 }, true},
		{"zero rps disabled", func(c *Config) { c.RateLimit.RPS = 0; c.RateLimit.Enabled = false }, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero retention", func(c *Config) { c.Retention.TombstoneDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateServer()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func validConfig() Config {
	return Config{
		Log:   LogConfig{Level: "info", Format: "json"},
		Local: LocalConfig{Timezone: "UTC"},
		SRS: SRSConfig{
			DefaultEaseFactor:  2.5,
			MinEaseFactor:      1.3,
			FailIntervalDays:   1,
			FirstIntervalDays:  1,
			SecondIntervalDays: 6,
			MaxIntervalDays:    365,
			GraceDays:          7,
			MemorizedAfter:     2,
		},
		Sync: SyncConfig{
			URL:             "https://sync.example.com",
			CallTimeout:     15 * time.Second,
			Timeout:         5 * time.Minute,
			Debounce:        2 * time.Second,
			Schedule:        "@every 5m",
			OverdueSchedule: "@hourly",
		},
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{DSN: "postgres://u:p@localhost:5432/testdb", MaxConns: 25, MinConns: 5},
		Auth: AuthConfig{
			JWTSecret: "this-is-a-very-long-jwt-secret-for-testing-32+",
			JWTIssuer: "myquran",
			TokenTTL:  time.Hour,
		},
		RateLimit: RateLimitConfig{Enabled: true, RPS: 20, Burst: 40},
		Retention: RetentionConfig{TombstoneDays: 90},
	}
}
