package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_MissingSecretIsFatal(t *testing.T) {
	t.Setenv("SECRET_TOKEN", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("Expected ErrMissingSecret, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_TOKEN", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:3000" {
		t.Errorf("APIBaseURL = %q, want http://localhost:3000", cfg.APIBaseURL)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if cfg.BatchDelay != 1*time.Second {
		t.Errorf("BatchDelay = %v, want 1s", cfg.BatchDelay)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.RetryBackoffBase != 1*time.Second {
		t.Errorf("RetryBackoffBase = %v, want 1s", cfg.RetryBackoffBase)
	}
	if cfg.DeviceCount != 500 {
		t.Errorf("DeviceCount = %d, want 500", cfg.DeviceCount)
	}
	if cfg.SerialPrefix != "SN-" {
		t.Errorf("SerialPrefix = %q, want SN-", cfg.SerialPrefix)
	}
	if cfg.SerialPadWidth != 3 {
		t.Errorf("SerialPadWidth = %d, want 3", cfg.SerialPadWidth)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SECRET_TOKEN", "test-secret")
	t.Setenv("API_BASE_URL", "http://devices.internal:8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("BATCH_DELAY_MS", "250")
	t.Setenv("DEVICE_COUNT", "42")
	t.Setenv("REDIS_URL", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.APIBaseURL != "http://devices.internal:8080" {
		t.Errorf("APIBaseURL = %q, want override", cfg.APIBaseURL)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", cfg.BatchSize)
	}
	if cfg.BatchDelay != 250*time.Millisecond {
		t.Errorf("BatchDelay = %v, want 250ms", cfg.BatchDelay)
	}
	if cfg.DeviceCount != 42 {
		t.Errorf("DeviceCount = %d, want 42", cfg.DeviceCount)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Errorf("RedisURL = %q, want localhost:6379", cfg.RedisURL)
	}
}

func TestLoad_InvalidTunables(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero batch size", "BATCH_SIZE", "0"},
		{"negative device count", "DEVICE_COUNT", "-1"},
		{"negative max retries", "MAX_RETRIES", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SECRET_TOKEN", "test-secret")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
