package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	RedisURL    string
	SnapshotTTL time.Duration
	DatabaseURL string

	DebugEndpoints bool
	ListLimitMax   int
	MessagesDir    string
	SecretBytes    int
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Values already set in the environment win.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:        ":8080",
		ShutdownTimeout: 10 * time.Second,
		ListLimitMax:    100,
		SecretBytes:     32,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("DEBUG_ENDPOINTS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.DebugEndpoints = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("LIST_LIMIT_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ListLimitMax = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SECRET_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SECRET_BYTES: %w", err)
		}
		cfg.SecretBytes = n
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SNAPSHOT_TTL: %w", err)
		}
		cfg.SnapshotTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ShutdownTimeout = d
		}
	}

	if cfg.SecretBytes < 16 {
		return nil, errors.New("SECRET_BYTES must be at least 16")
	}
	if cfg.SnapshotTTL < 0 {
		return nil, errors.New("SNAPSHOT_TTL must not be negative")
	}
	return cfg, nil
}
