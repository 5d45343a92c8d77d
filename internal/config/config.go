// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the composition root needs to wire the service.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DBPath is the SQLite database file path.
	DBPath string

	// JWTSecret signs session tokens; TokenTTL bounds their lifetime.
	JWTSecret string
	TokenTTL  time.Duration

	// GeminiAPIKey and GeminiModel configure the message classifier.
	// An empty API key disables classification: every message degrades to
	// normal chat.
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration
}

// Load reads configuration from the environment, applying defaults.
// JWT_SECRET is required.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("ADDR", ":8080"),
		DBPath:        getEnv("DB_PATH", "./data/duoledger.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      getDuration("TOKEN_TTL", 24*time.Hour),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-pro"),
		GeminiTimeout: getDuration("GEMINI_TIMEOUT", 10*time.Second),
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
