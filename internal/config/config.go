// Package config holds the server settings read from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Config is the runtime configuration of the loadout server.
type Config struct {
	Port string `env:"PORT"`
	// CatalogDBPath points at a SQLite catalog written by seed-catalog. Empty
	// selects the embedded catalog.
	CatalogDBPath string `env:"SLIC_CATALOG_DB_PATH"`
	// DatabaseURL enables saved loadouts in PostgreSQL when set.
	DatabaseURL string `env:"DATABASE_URL"`

	// AllowedOrigins are granted CORS access, comma separated.
	AllowedOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	SearchMaxNodes int  `env:"SEARCH_MAX_NODES"`
	UndoDepth      int  `env:"UNDO_DEPTH"`
	LogLevel       int  `env:"LOG_LEVEL"`
	LogDevelopment bool `env:"LOG_DEVELOPMENT"`
}

// Default returns the settings used when no variable is set.
func Default() Config {
	return Config{
		Port:           "8080",
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		SearchMaxNodes: 20000,
		UndoDepth:      100,
	}
}

// ParseEnv overlays environment variables onto target. Fields whose variable
// is unset keep their current value.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns Default overlaid with the environment and validated.
func Load() (Config, error) {
	cfg := Default()
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.SearchMaxNodes <= 0 {
		return fmt.Errorf("SEARCH_MAX_NODES must be positive, got %d", c.SearchMaxNodes)
	}
	if c.UndoDepth <= 0 {
		return fmt.Errorf("UNDO_DEPTH must be positive, got %d", c.UndoDepth)
	}
	if c.LogLevel < 0 {
		return fmt.Errorf("LOG_LEVEL must not be negative, got %d", c.LogLevel)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
