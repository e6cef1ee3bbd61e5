package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	// Encryption key is optional, but when set must be exactly 64 hex chars (32 bytes)
	if c.Encryption.Key == "" {
		slog.Warn("ENCRYPTION_KEY is empty, pattern payloads are stored in plaintext")
	} else if len(c.Encryption.Key) != 64 {
		errs = append(errs, "ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes)")
	} else if _, err := hex.DecodeString(c.Encryption.Key); err != nil {
		errs = append(errs, "ENCRYPTION_KEY must be valid hex")
	}

	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.NATS.URL == "" {
		errs = append(errs, "NATS_URL is required")
	}

	if c.Browser.SettleDelay < 0 || c.Browser.SettleDelay > MaxSettleDelay {
		errs = append(errs, fmt.Sprintf("BROWSER_SETTLE_DELAY must be between 0 and %s, got %s", MaxSettleDelay, c.Browser.SettleDelay))
	}
	if c.Browser.ActionTimeout <= 0 {
		errs = append(errs, "BROWSER_ACTION_TIMEOUT must be positive")
	}
	if c.Training.SessionTTL <= 0 {
		errs = append(errs, "TRAINING_SESSION_TTL must be positive")
	}
	if c.Engine.LockTTL < c.Browser.ActionTimeout {
		errs = append(errs, "ENGINE_LOCK_TTL must be at least BROWSER_ACTION_TIMEOUT")
	}

	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, "RATELIMIT_MAX_REQUESTS must be positive")
	}
	if c.RateLimit.WindowSec < 1 {
		errs = append(errs, "RATELIMIT_WINDOW_SEC must be positive")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
