// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres opens the pool for the hosted database that holds
// credential records and dashboard records.
//
// Both consumers are read-mostly: one verify_credentials call per login and
// paginated record listings. Sizing comes from [config.Config].
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationName tags dashboard connections in pg_stat_activity.
const ApplicationName = "voxboard-dashboard"

const (
	connectTimeout  = 5 * time.Second
	pingTimeout     = 2 * time.Second
	maxConnLifetime = time.Hour
	maxConnIdleTime = 10 * time.Minute
)

// Options sizes the pool.
type Options struct {
	DSN string

	// MaxConns and MinConns bound the pool; MinConns is clamped to MaxConns.
	MaxConns int32
	MinConns int32

	// StatementTimeout is applied server-side to every statement. Zero disables it.
	StatementTimeout time.Duration
}

/*
Config translates [Options] into a pgxpool configuration.

Description: The statement timeout and application name travel as startup
parameters, so they hold for every physical connection without an extra
round trip.

Returns:
  - *pgxpool.Config: Ready for [pgxpool.NewWithConfig]
  - error: Malformed DSN or non-positive MaxConns
*/
func Config(options Options) (*pgxpool.Config, error) {
	if options.MaxConns <= 0 {
		return nil, fmt.Errorf("postgres: max conns must be positive, got %d", options.MaxConns)
	}

	poolConfig, err := pgxpool.ParseConfig(options.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	poolConfig.MaxConns = options.MaxConns
	poolConfig.MinConns = min(max(options.MinConns, 0), options.MaxConns)
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	params := poolConfig.ConnConfig.RuntimeParams
	params["application_name"] = ApplicationName
	if options.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(options.StatementTimeout.Milliseconds(), 10)
	}

	return poolConfig, nil
}

// NewPool connects and pings. The pool is closed again if the ping fails.
func NewPool(ctx context.Context, options Options, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := Config(options)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Int("min_conns", int(poolConfig.MinConns)),
		slog.Duration("statement_timeout", options.StatementTimeout),
	)

	return pool, nil
}

// Ping backs the /ready health check.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}
