// Package config loads the process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything read from the environment at startup.
type Config struct {
	Port   int
	DBPath string

	// HomeTZ is the single fixed timezone all calendar-day comparisons use.
	HomeTZ string

	// FlatFee is the fine charged per absence, in currency units.
	FlatFee int64

	// GroupID is the only chat group whose events are accepted.
	GroupID string

	RecorderURL string
	PushURL     string
	PushToken   string

	RosterPath string

	AdminPasswordHash string
	JWTSecret         string
}

// Load reads the configuration, applying defaults for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "./data/kintore.db"),
		HomeTZ:            getEnv("HOME_TZ", "Asia/Tokyo"),
		GroupID:           os.Getenv("GROUP_ID"),
		RecorderURL:       os.Getenv("RECORDER_URL"),
		PushURL:           os.Getenv("PUSH_URL"),
		PushToken:         os.Getenv("PUSH_TOKEN"),
		RosterPath:        os.Getenv("ROSTER_PATH"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
	}

	port, err := intEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	fee, err := intEnv("FLAT_FEE", 200)
	if err != nil {
		return nil, err
	}
	cfg.FlatFee = int64(fee)

	return cfg, nil
}

// TokenDuration is how long admin tokens remain valid.
func (c *Config) TokenDuration() time.Duration {
	return 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
