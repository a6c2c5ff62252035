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

const (
	defaultPort            = 3001
	defaultGeoJSONPath     = "geojsons/avoriaz_cannons.json"
	defaultRequestTimeout  = 10 * time.Second
	defaultGeoJSONTimeout  = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL     string
	GeoJSONPath     string
	GeoJSONURL      string
	Port            int
	RequestTimeout  time.Duration
	GeoJSONTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	CORSOrigin      string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		GeoJSONPath:     defaultGeoJSONPath,
		Port:            defaultPort,
		RequestTimeout:  defaultRequestTimeout,
		GeoJSONTimeout:  defaultGeoJSONTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        "info",
		CORSOrigin:      "*",
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if path := strings.TrimSpace(os.Getenv("GEOJSON_PATH")); path != "" {
		cfg.GeoJSONPath = path
	}
	cfg.GeoJSONURL = strings.TrimSpace(os.Getenv("GEOJSON_URL"))

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return cfg, err
	}
	if cfg.GeoJSONTimeout, err = durationEnv("GEOJSON_TIMEOUT", cfg.GeoJSONTimeout); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return cfg, err
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if origin := strings.TrimSpace(os.Getenv("CORS_ORIGIN")); origin != "" {
		cfg.CORSOrigin = origin
	}

	return cfg, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Debug reports whether verbose development logging was requested.
func (c Config) Debug() bool {
	return c.LogLevel == "debug"
}
