package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "STORE_DRIVER", "DB_DSN", "BOLT_PATH", "STORE_TIMEOUT_SECONDS",
		"REDIS_ADDR", "REDIS_DB", "JWT_SECRET", "UID_MAX_ATTEMPTS", "DEFAULT_DURATION_MINUTES",
		"RELAY_INTERVAL_SECONDS", "RELAY_BATCH_SIZE", "RATE_LIMIT_PER_MIN", "RATE_LIMIT_BURST",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "clinic.db", cfg.BoltPath)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 8, cfg.UIDMaxAttempts)
	assert.Equal(t, 15, cfg.DefaultDurationMinutes)
	assert.Equal(t, 2*time.Second, cfg.RelayInterval)
	assert.Equal(t, 100, cfg.RelayBatchSize)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Empty(t, cfg.JWTSecret)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "bolt")
	t.Setenv("BOLT_PATH", "/var/lib/clinic/kiosk.db")
	t.Setenv("STORE_TIMEOUT_SECONDS", "0")
	t.Setenv("UID_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("DEFAULT_DURATION_MINUTES", "20")

	cfg := Load()
	assert.Equal(t, DriverBolt, cfg.StoreDriver)
	assert.Equal(t, "/var/lib/clinic/kiosk.db", cfg.BoltPath)
	assert.Zero(t, cfg.StoreTimeout)
	assert.Equal(t, 8, cfg.UIDMaxAttempts)
	assert.Equal(t, 20, cfg.DefaultDurationMinutes)
}
