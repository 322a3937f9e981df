package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate performs the checks shared by every binary.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}

	if err := c.SRS.validate(); err != nil {
		return fmt.Errorf("srs: %w", err)
	}

	return nil
}

// ValidateClient checks the settings used by the on-device client.
func (c *Config) ValidateClient() error {
	if _, err := c.Local.Location(); err != nil {
		return fmt.Errorf("local.timezone: %w", err)
	}

	if err := c.Sync.validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	return nil
}

// ValidateServer checks the settings used by the sync server.
func (c *Config) ValidateServer() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) must not exceed max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if err := c.Auth.validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit: rps and burst must be > 0 when enabled")
	}

	if c.Retention.TombstoneDays <= 0 {
		return fmt.Errorf("retention.tombstone_days must be > 0 (got %d)", c.Retention.TombstoneDays)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535 (got %d)", c.Server.Port)
	}

	return nil
}

func (a *AuthConfig) validate() error {
	if len(a.JWTSecret) < 32 {
		return fmt.Errorf("jwt_secret must be at least 32 characters (got %d)", len(a.JWTSecret))
	}
	if a.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be > 0 (got %v)", a.TokenTTL)
	}
	return nil
}

func (s *SRSConfig) validate() error {
	if s.MinEaseFactor <= 0 {
		return fmt.Errorf("min_ease_factor must be > 0 (got %v)", s.MinEaseFactor)
	}
	if s.DefaultEaseFactor < s.MinEaseFactor {
		return fmt.Errorf("default_ease_factor (%v) must be >= min_ease_factor (%v)", s.DefaultEaseFactor, s.MinEaseFactor)
	}
	if s.FailIntervalDays <= 0 || s.FirstIntervalDays <= 0 || s.SecondIntervalDays <= 0 {
		return fmt.Errorf("fail, first and second intervals must be > 0")
	}
	if s.MaxIntervalDays < s.SecondIntervalDays {
		return fmt.Errorf("max_interval_days (%d) must be >= second_interval_days (%d)", s.MaxIntervalDays, s.SecondIntervalDays)
	}
	if s.GraceDays < 0 {
		return fmt.Errorf("grace_days must be >= 0 (got %d)", s.GraceDays)
	}
	if s.MemorizedAfter <= 0 {
		return fmt.Errorf("memorized_after must be > 0 (got %d)", s.MemorizedAfter)
	}
	return nil
}

func (s *SyncConfig) validate() error {
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("url must be an absolute http(s) URL (got %q)", s.URL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url scheme must be http or https (got %q)", u.Scheme)
		}
	}
	if s.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be > 0 (got %v)", s.CallTimeout)
	}
	if s.Timeout < s.CallTimeout {
		return fmt.Errorf("timeout (%v) must be >= call_timeout (%v)", s.Timeout, s.CallTimeout)
	}
	if s.Debounce < 0 {
		return fmt.Errorf("debounce must be >= 0 (got %v)", s.Debounce)
	}
	for name, spec := range map[string]string{"schedule": s.Schedule, "overdue_schedule": s.OverdueSchedule} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
