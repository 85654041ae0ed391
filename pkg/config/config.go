// Package config loads and validates the collector configuration from the
// environment. Validation happens once at process start; a missing secret is
// a fatal configuration error, never a per-request failure.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingSecret is returned when SECRET_TOKEN is absent from the
// environment. Startup must fail fatally on this error.
var ErrMissingSecret = errors.New("SECRET_TOKEN environment variable is required")

// Config holds the full collector configuration. The tunables below the
// environment block are compiled-in defaults overridable via environment
// variables of the same name.
type Config struct {
	// APIBaseURL is the device API base URL. Env: API_BASE_URL.
	APIBaseURL string

	// SecretToken is the shared signing secret. Env: SECRET_TOKEN (required).
	SecretToken string

	// LogLevel is "info" or "debug". Env: LOG_LEVEL.
	LogLevel string

	// LogPretty enables human-readable console output. Env: LOG_PRETTY.
	LogPretty bool

	// OutputDir is where file snapshots are written. Env: OUTPUT_DIR.
	OutputDir string

	// RedisURL selects the Redis snapshot store when non-empty,
	// e.g. "localhost:6379". Env: REDIS_URL.
	RedisURL string

	// RedisSnapshotTTL bounds the lifetime of Redis snapshots (0 = keep).
	// Env: REDIS_SNAPSHOT_TTL.
	RedisSnapshotTTL time.Duration

	// MetricsAddr serves /metrics when non-empty, e.g. ":9090".
	// Env: METRICS_ADDR.
	MetricsAddr string

	// Tunables.
	BatchSize        int           // serials per request. Env: BATCH_SIZE.
	BatchDelay       time.Duration // pause between batches. Env: BATCH_DELAY_MS.
	MaxRetries       int           // retries after the first attempt. Env: MAX_RETRIES.
	RequestTimeout   time.Duration // per-attempt bound. Env: REQUEST_TIMEOUT_MS.
	RetryBackoffBase time.Duration // first retry delay, doubled per retry. Env: RETRY_BACKOFF_MS.
	DeviceCount      int           // population size. Env: DEVICE_COUNT.
	SerialPrefix     string        // serial prefix. Env: SERIAL_PREFIX.
	SerialPadWidth   int           // zero-padding width. Env: SERIAL_PAD_WIDTH.
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("API_BASE_URL", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("OUTPUT_DIR", ".")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_SNAPSHOT_TTL", time.Duration(0))
	v.SetDefault("METRICS_ADDR", "")

	v.SetDefault("BATCH_SIZE", 10)
	v.SetDefault("BATCH_DELAY_MS", 1000)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("REQUEST_TIMEOUT_MS", 10000)
	v.SetDefault("RETRY_BACKOFF_MS", 1000)
	v.SetDefault("DEVICE_COUNT", 500)
	v.SetDefault("SERIAL_PREFIX", "SN-")
	v.SetDefault("SERIAL_PAD_WIDTH", 3)

	cfg := &Config{
		APIBaseURL:       v.GetString("API_BASE_URL"),
		SecretToken:      v.GetString("SECRET_TOKEN"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogPretty:        v.GetBool("LOG_PRETTY"),
		OutputDir:        v.GetString("OUTPUT_DIR"),
		RedisURL:         v.GetString("REDIS_URL"),
		RedisSnapshotTTL: v.GetDuration("REDIS_SNAPSHOT_TTL"),
		MetricsAddr:      v.GetString("METRICS_ADDR"),
		BatchSize:        v.GetInt("BATCH_SIZE"),
		BatchDelay:       time.Duration(v.GetInt("BATCH_DELAY_MS")) * time.Millisecond,
		MaxRetries:       v.GetInt("MAX_RETRIES"),
		RequestTimeout:   time.Duration(v.GetInt("REQUEST_TIMEOUT_MS")) * time.Millisecond,
		RetryBackoffBase: time.Duration(v.GetInt("RETRY_BACKOFF_MS")) * time.Millisecond,
		DeviceCount:      v.GetInt("DEVICE_COUNT"),
		SerialPrefix:     v.GetString("SERIAL_PREFIX"),
		SerialPadWidth:   v.GetInt("SERIAL_PAD_WIDTH"),
	}

	if cfg.SecretToken == "" {
		return nil, ErrMissingSecret
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive (got %d)", cfg.BatchSize)
	}
	if cfg.DeviceCount < 0 {
		return nil, fmt.Errorf("DEVICE_COUNT must not be negative (got %d)", cfg.DeviceCount)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must not be negative (got %d)", cfg.MaxRetries)
	}

	return cfg, nil
}
