package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAPIBaseURL = "http://localhost:3001"
	defaultAPITimeout = 10 * time.Second
)

// Config holds runtime configuration for the dashboard.
type Config struct {
	APIBaseURL string
	APITimeout time.Duration
	Debug      bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		APIBaseURL: defaultAPIBaseURL,
		APITimeout: defaultAPITimeout,
	}

	if v := strings.TrimSpace(os.Getenv("API_BASE_URL")); v != "" {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return cfg, fmt.Errorf("invalid API_BASE_URL: %q", v)
		}
		cfg.APIBaseURL = strings.TrimRight(v, "/")
	}

	if v := strings.TrimSpace(os.Getenv("API_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid API_TIMEOUT: %w", err)
		}
		if d <= 0 {
			return cfg, fmt.Errorf("invalid API_TIMEOUT: must be positive")
		}
		cfg.APITimeout = d
	}

	cfg.Debug = strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "debug")

	return cfg, nil
}
