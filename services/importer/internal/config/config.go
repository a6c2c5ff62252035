package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultBatchSize = 500

// Config holds runtime configuration for the importer.
type Config struct {
	DatabaseURL string
	BatchSize   int
	DryRun      bool
	Debug       bool
}

// Load reads configuration from environment variables (optionally .env).
// DATABASE_URL is only checked by commands that write, see RequireDatabase.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{BatchSize: defaultBatchSize}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("IMPORT_BATCH_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid IMPORT_BATCH_SIZE: %w", err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("invalid IMPORT_BATCH_SIZE: must be positive, got %d", n)
		}
		cfg.BatchSize = n
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	cfg.Debug = strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "debug")

	return cfg, nil
}

// RequireDatabase fails when no DATABASE_URL was configured.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}
