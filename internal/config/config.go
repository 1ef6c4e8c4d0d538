// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

// Package config loads and validates Datagate configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, in ascending order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for Datagate.
type Config struct {
	Pipeline PipelineConfig `koanf:"pipeline"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// PipelineConfig identifies the pipeline output this gateway exposes.
type PipelineConfig struct {
	// DestinationTable is the table queried when a request names none.
	DestinationTable string `koanf:"destination_table"`

	// AllowedTables lists additional tables clients may query.
	// The destination table is always allowed.
	AllowedTables []string `koanf:"allowed_tables"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	Admin      AdminConfig     `koanf:"admin"`
	RateLimits RateLimitConfig `koanf:"rate_limits"`

	// DefaultLimit is the row cap applied when a request names none.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit is the largest row cap a request may ask for.
	MaxLimit int `koanf:"max_limit"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// AdminConfig holds the single admin credential.
type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// RateLimitConfig holds the dual-window limiter settings.
type RateLimitConfig struct {
	// PerSecond is the request budget per client per second.
	PerSecond int `koanf:"per_second"`

	// PerMinute is the request budget per client per minute.
	PerMinute int `koanf:"per_minute"`

	// Strategy selects the window algorithm: "fixed" or "sliding".
	Strategy string `koanf:"strategy"`

	// Disabled bypasses rate limiting entirely. Intended for tests.
	Disabled bool `koanf:"disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	// Default: false
	Caller bool `koanf:"caller"`
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.DestinationTable == "" {
		return fmt.Errorf("DESTINATION_TABLE is required")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database threads must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging, or production")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Admin.Username == "" {
		return fmt.Errorf("ADMIN_USERNAME is required")
	}
	if c.API.Admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required")
	}
	if len(c.API.Admin.Password) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}
	if c.API.DefaultLimit < 1 {
		return fmt.Errorf("API default_limit must be at least 1")
	}
	if c.API.MaxLimit < c.API.DefaultLimit {
		return fmt.Errorf("API max_limit must not be below default_limit")
	}
	return c.validateRateLimits()
}

func (c *Config) validateRateLimits() error {
	rl := c.API.RateLimits
	if rl.Disabled {
		return nil
	}
	if rl.PerSecond < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND must be at least 1")
	}
	if rl.PerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1")
	}
	switch rl.Strategy {
	case "fixed", "sliding":
	default:
		return fmt.Errorf("RATE_LIMIT_STRATEGY must be fixed or sliding")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// Address returns the host:port the HTTP server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
