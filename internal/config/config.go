package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/heartmarshall/myquran/internal/domain"
)

// AppName names the XDG data directory and the token issuer default.
const AppName = "myquran"

// Config is the root application configuration. The client (cmd/myquran)
// reads Log, Local, SRS and Sync; the sync server (cmd/syncd) reads Log,
// Server, Database, Auth, RateLimit, CORS and Retention.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Local     LocalConfig     `yaml:"local"`
	SRS       SRSConfig       `yaml:"srs"`
	Sync      SyncConfig      `yaml:"sync"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Retention RetentionConfig `yaml:"retention"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// LocalConfig holds the on-device store settings.
type LocalConfig struct {
	// Path of the SQLite file. Empty means $XDG_DATA_HOME/myquran/local.db.
	Path     string `yaml:"path"     env:"LOCAL_DB_PATH"`
	Timezone string `yaml:"timezone" env:"LOCAL_TIMEZONE" env-default:"Local"`
}

// DBPath returns the resolved SQLite path, creating the XDG data directory
// when the default location is used.
func (c LocalConfig) DBPath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	path, err := xdg.DataFile(filepath.Join(AppName, "local.db"))
	if err != nil {
		return "", fmt.Errorf("resolve data file: %w", err)
	}
	return path, nil
}

// Location loads the configured timezone used for calendar days.
func (c LocalConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SRSConfig holds the memorization scheduler policy.
type SRSConfig struct {
	DefaultEaseFactor  float64 `yaml:"default_ease_factor"  env:"SRS_DEFAULT_EASE"           env-default:"2.5"`
	MinEaseFactor      float64 `yaml:"min_ease_factor"      env:"SRS_MIN_EASE"               env-default:"1.3"`
	FailIntervalDays   int     `yaml:"fail_interval_days"   env:"SRS_FAIL_INTERVAL"          env-default:"1"`
	FirstIntervalDays  int     `yaml:"first_interval_days"  env:"SRS_FIRST_INTERVAL"         env-default:"1"`
	SecondIntervalDays int     `yaml:"second_interval_days" env:"SRS_SECOND_INTERVAL"        env-default:"6"`
	MaxIntervalDays    int     `yaml:"max_interval_days"    env:"SRS_MAX_INTERVAL"           env-default:"365"`
	GraceDays          int     `yaml:"grace_days"           env:"SRS_GRACE_DAYS"             env-default:"7"`
	MemorizedAfter     int     `yaml:"memorized_after"      env:"SRS_MEMORIZED_AFTER"        env-default:"2"`
}

// Domain converts the loaded values into the scheduler's policy type.
func (s SRSConfig) Domain() domain.SRSConfig {
	return domain.SRSConfig{
		DefaultEaseFactor:  s.DefaultEaseFactor,
		MinEaseFactor:      s.MinEaseFactor,
		FailIntervalDays:   s.FailIntervalDays,
		FirstIntervalDays:  s.FirstIntervalDays,
		SecondIntervalDays: s.SecondIntervalDays,
		MaxIntervalDays:    s.MaxIntervalDays,
		GraceDays:          s.GraceDays,
		MemorizedAfter:     s.MemorizedAfter,
	}
}

// SyncConfig holds the client side of synchronization.
type SyncConfig struct {
	// URL of the sync server. Empty keeps the device offline.
	URL   string `yaml:"url"   env:"SYNC_URL"`
	Token string `yaml:"token" env:"SYNC_TOKEN"`

	CallTimeout time.Duration `yaml:"call_timeout" env:"SYNC_CALL_TIMEOUT" env-default:"15s"`
	Timeout     time.Duration `yaml:"timeout"      env:"SYNC_TIMEOUT"      env-default:"5m"`
	Debounce    time.Duration `yaml:"debounce"     env:"SYNC_DEBOUNCE"     env-default:"2s"`

	// Cron specs for the daemon's periodic jobs.
	Schedule        string `yaml:"schedule"         env:"SYNC_SCHEDULE"          env-default:"@every 5m"`
	OverdueSchedule string `yaml:"overdue_schedule" env:"SYNC_OVERDUE_SCHEDULE"  env-default:"@hourly"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr returns host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds sync token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	JWTIssuer string        `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"myquran"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"AUTH_TOKEN_TTL"  env-default:"720h"`
}

// RateLimitConfig bounds requests per caller on the sync API.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RPS     float64 `yaml:"rps"     env:"RATE_LIMIT_RPS"     env-default:"20"`
	Burst   int     `yaml:"burst"   env:"RATE_LIMIT_BURST"   env-default:"40"`
	// IdleTTL evicts limiters of callers that have gone quiet.
	IdleTTL time.Duration `yaml:"idle_ttl" env:"RATE_LIMIT_IDLE_TTL" env-default:"10m"`
}

// CORSConfig holds CORS settings for browser clients of the sync API.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   []string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-Request-Id"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int      `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// RetentionConfig controls how long the sync server keeps tombstones.
// A device offline for longer than TombstoneDays misses those deletions.
type RetentionConfig struct {
	TombstoneDays int `yaml:"tombstone_days" env:"RETENTION_TOMBSTONE_DAYS" env-default:"90"`
}
