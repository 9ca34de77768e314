// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zapponejosh/ordo-api/internal/calendar"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
)

// Config holds all application configuration.
// Fields are populated from environment variables.
type Config struct {
	// Server settings
	Port        int    // HTTP port to listen on
	Env         string // development, staging, production
	CORSOrigins string // comma-separated allowed origins, "*" for any

	// Calendar data
	DataSource   string        // embedded, dir, http, sqlite
	DataDir      string        // root directory for DataSource=dir
	DataURL      string        // base URL for DataSource=http
	DatabasePath string        // SQLite file for DataSource=sqlite and cmd/import
	FetchTimeout time.Duration // per-document timeout for DataSource=http

	// Resolution
	DefaultRite string // rite used when a request names none
	AdventRule  string // fixed (27 November) or sunday (first Sunday of Advent)

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Data sources
const (
	SourceEmbedded = "embedded"
	SourceDir      = "dir"
	SourceHTTP     = "http"
	SourceSQLite   = "sqlite"
)

// Load reads configuration from environment variables.
// In development, it first loads from .env file if present.
func Load() (*Config, error) {
	// No-op in production where env vars are set directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		Env:         getEnv("ENV", EnvDevelopment),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		DataSource:   strings.ToLower(getEnv("DATA_SOURCE", SourceEmbedded)),
		DataDir:      getEnv("DATA_DIR", ""),
		DataURL:      getEnv("DATA_URL", ""),
		DatabasePath: getEnv("DATABASE_PATH", "./data/ordo.db"),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 15*time.Second),

		DefaultRite: getEnv("DEFAULT_RITE", string(liturgy.DefaultRite)),
		AdventRule:  getEnv("ADVENT_RULE", "fixed"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of: development, staging, production; got %q", c.Env))
	}

	switch c.DataSource {
	case SourceEmbedded:
	case SourceDir:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR is required when DATA_SOURCE=dir"))
		}
	case SourceHTTP:
		if c.DataURL == "" {
			errs = append(errs, errors.New("DATA_URL is required when DATA_SOURCE=http"))
		}
	case SourceSQLite:
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required when DATA_SOURCE=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATA_SOURCE must be one of: embedded, dir, http, sqlite; got %q", c.DataSource))
	}

	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout))
	}

	if _, err := liturgy.ParseRite(c.DefaultRite); err != nil {
		errs = append(errs, fmt.Errorf("DEFAULT_RITE: %w", err))
	}
	if _, err := calendar.ParseAdventRule(c.AdventRule); err != nil {
		errs = append(errs, fmt.Errorf("ADVENT_RULE: %w", err))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %q", c.LogLevel))
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of: json, text; got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// Rite returns DefaultRite parsed. Call after Validate.
func (c *Config) Rite() liturgy.Rite {
	r, err := liturgy.ParseRite(c.DefaultRite)
	if err != nil {
		return liturgy.DefaultRite
	}
	return r
}

// Boundaries returns the season boundaries selected by AdventRule.
func (c *Config) Boundaries() calendar.Boundaries {
	rule, err := calendar.ParseAdventRule(c.AdventRule)
	if err != nil {
		return calendar.DefaultBoundaries()
	}
	return calendar.Boundaries{Advent: rule}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// getEnv reads an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
