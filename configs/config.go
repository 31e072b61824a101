package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	PostgresURI string
	ListenAddr  string

	// Shared secret expected in the cron trigger's bearer token.
	CronSecret string

	// Cron spec for the in-process publish job. Empty disables it
	// (an external cron hits the HTTP trigger instead).
	PublishInterval string

	MaxBatchSize int
	MaxRetries   uint
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	OpTimeout    time.Duration

	// Security validator rate limiting.
	ViolationThreshold int
	ViolationWindow    time.Duration

	// Performance monitor thresholds.
	SlowRunThreshold time.Duration
	ErrorCountAlert  int
	LargeRunAlert    int

	LogLevel string
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		ListenAddr:         getEnv("LISTEN_ADDR", ":3000"),
		CronSecret:         getEnv("CRON_SECRET", ""),
		PublishInterval:    getEnv("PUBLISH_INTERVAL", "@every 1m"),
		MaxBatchSize:       getEnvInt("MAX_BATCH_SIZE", 50),
		MaxRetries:         uint(getEnvInt("MAX_RETRIES", 3)),
		BaseDelay:          getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		MaxDelay:           getEnvDuration("RETRY_MAX_DELAY", 10*time.Second),
		OpTimeout:          getEnvDuration("OPERATION_TIMEOUT", 30*time.Second),
		ViolationThreshold: getEnvInt("VIOLATION_THRESHOLD", 10),
		ViolationWindow:    getEnvDuration("VIOLATION_WINDOW", 15*time.Minute),
		SlowRunThreshold:   getEnvDuration("SLOW_RUN_THRESHOLD", 30*time.Second),
		ErrorCountAlert:    getEnvInt("ERROR_COUNT_ALERT", 5),
		LargeRunAlert:      getEnvInt("LARGE_RUN_ALERT", 500),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
