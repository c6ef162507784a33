// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Gate registry) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Local Store Drivers

const (
	// LocalStoreRedis keeps per-client session state in Redis.
	LocalStoreRedis = "redis"

	// LocalStoreSQLite keeps per-client session state in a local SQLite file.
	LocalStoreSQLite = "sqlite"
)

// # Configuration Schema

// Config holds all runtime configuration for the Voxboard dashboard server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL) holding credentials and dashboard records
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Pool sizing for DatabaseURL
	DatabaseMaxConns         int32         `env:"DB_MAX_CONNS"         envDefault:"10"`
	DatabaseMinConns         int32         `env:"DB_MIN_CONNS"         envDefault:"2"`
	DatabaseStatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"15s"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Durable per-client key/value state (persisted sessions)
	LocalStoreDriver string `env:"LOCAL_STORE_DRIVER" envDefault:"redis"`
	RedisURL         string `env:"REDIS_URL"`
	SQLitePath       string `env:"SQLITE_PATH"        envDefault:"./data/local_state.db"`

	// SessionSecret signs the credentials-path session marker (HS256).
	SessionSecret string `env:"SESSION_SECRET,required,notEmpty"`

	// Federated-identity provider (GoTrue-compatible auth API)
	FederatedURL     string `env:"FEDERATED_URL"`
	FederatedAnonKey string `env:"FEDERATED_ANON_KEY"`

	// Optional bootstrap administrator seeded into the credential store at startup
	BootstrapAdminUsername string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminEmail    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `env:"BOOTSTRAP_ADMIN_PASSWORD"`

	// Login throttling (per client IP)
	LoginRateLimitRPS   float64 `env:"LOGIN_RATE_LIMIT_RPS"   envDefault:"1"`
	LoginRateLimitBurst int     `env:"LOGIN_RATE_LIMIT_BURST" envDefault:"5"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks cross-field rules that struct tags cannot express.
func (c *Config) validate() error {
	switch c.LocalStoreDriver {
	case LocalStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required when LOCAL_STORE_DRIVER=%s", LocalStoreRedis)
		}
	case LocalStoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required when LOCAL_STORE_DRIVER=%s", LocalStoreSQLite)
		}
	default:
		return fmt.Errorf("config: unknown LOCAL_STORE_DRIVER %q", c.LocalStoreDriver)
	}

	if c.DatabaseMaxConns <= 0 {
		return fmt.Errorf("config: DB_MAX_CONNS must be positive")
	}
	if c.DatabaseMinConns < 0 || c.DatabaseMinConns > c.DatabaseMaxConns {
		return fmt.Errorf("config: DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}

	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("config: SESSION_SECRET must be at least 32 bytes")
	}

	if c.BootstrapAdminUsername != "" && c.BootstrapAdminPassword == "" {
		return fmt.Errorf("config: BOOTSTRAP_ADMIN_PASSWORD is required when BOOTSTRAP_ADMIN_USERNAME is set")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// FederatedEnabled reports whether a federated-identity provider is configured.
func (c *Config) FederatedEnabled() bool {
	return c.FederatedURL != ""
}

// BootstrapAdminEnabled reports whether a bootstrap administrator should be seeded.
func (c *Config) BootstrapAdminEnabled() bool {
	return c.BootstrapAdminUsername != ""
}
