package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	StoreDriver  string
	DatabaseURL  string
	BoltPath     string
	StoreTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	UIDMaxAttempts         int
	DefaultDurationMinutes int

	RelayInterval  time.Duration
	RelayBatchSize int

	RateLimitPerMinute       int
	RateLimitBurst           int
	DeviceRateLimitPerMinute int
	DeviceRateLimitBurst     int
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:                     readString("PORT", "8080"),
		AppEnv:                   readString("APP_ENV", "production"),
		LogLevel:                 readString("LOG_LEVEL", "info"),
		StoreDriver:              readString("STORE_DRIVER", DriverPostgres),
		DatabaseURL:              os.Getenv("DB_DSN"),
		BoltPath:                 readString("BOLT_PATH", "clinic.db"),
		StoreTimeout:             readDurationSeconds("STORE_TIMEOUT_SECONDS", 5),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  readInt("REDIS_DB", 0),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		UIDMaxAttempts:           readInt("UID_MAX_ATTEMPTS", 8),
		DefaultDurationMinutes:   readInt("DEFAULT_DURATION_MINUTES", 15),
		RelayInterval:            readDurationSeconds("RELAY_INTERVAL_SECONDS", 2),
		RelayBatchSize:           readInt("RELAY_BATCH_SIZE", 100),
		RateLimitPerMinute:       readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:           readInt("RATE_LIMIT_BURST", 30),
		DeviceRateLimitPerMinute: readInt("DEVICE_RATE_LIMIT_PER_MIN", 600),
		DeviceRateLimitBurst:     readInt("DEVICE_RATE_LIMIT_BURST", 120),
	}
}

func readString(key, fallback string) string {
	if raw := os.Getenv(key); raw != "" {
		return raw
	}
	return fallback
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
