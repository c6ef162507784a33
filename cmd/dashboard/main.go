// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command dashboard is the entry point for the Voxboard dashboard server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Run database migrations (idempotent).
//  4. Connect to PostgreSQL (pgxpool).
//  5. Open the per-client local store (Redis or SQLite).
//  6. Seed the bootstrap administrator, if configured.
//  7. Wire the session gate registry and handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/taibuivan/voxboard/internal/api"
	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/federated"
	"github.com/taibuivan/voxboard/internal/platform/config"
	"github.com/taibuivan/voxboard/internal/platform/constants"
	"github.com/taibuivan/voxboard/internal/platform/metrics"
	"github.com/taibuivan/voxboard/internal/platform/middleware"
	"github.com/taibuivan/voxboard/internal/platform/migration"
	pgstore "github.com/taibuivan/voxboard/internal/platform/postgres"
	redisstore "github.com/taibuivan/voxboard/internal/platform/redis"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/internal/platform/sqlite"
	"github.com/taibuivan/voxboard/internal/records"
	"github.com/taibuivan/voxboard/internal/web"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[Voxboard] service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("local_store", cfg.LocalStoreDriver),
		slog.Bool("federated", cfg.FederatedEnabled()),
	)

	// Root context for startup. A deadline catches misconfiguration quickly
	// rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Background workers (rate limiter cleanup, gate eviction) stop with this.
	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// ── 3. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 4. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, pgstore.Options{
		DSN:              cfg.DatabaseURL,
		MaxConns:         cfg.DatabaseMaxConns,
		MinConns:         cfg.DatabaseMinConns,
		StatementTimeout: cfg.DatabaseStatementTimeout,
	}, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	// ── 5. Local Store ────────────────────────────────────────────────────
	var localStore auth.LocalStore
	switch cfg.LocalStoreDriver {
	case config.LocalStoreRedis:
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()
		localStore = auth.NewRedisLocalStore(rdb)

	case config.LocalStoreSQLite:
		db, err := sqlite.Open(startupCtx, cfg.SQLitePath, log)
		must(log, err, "open sqlite")
		defer func() {
			log.Info("closing_sqlite")
			if cerr := db.Close(); cerr != nil {
				log.Error("sqlite_close_error", slog.Any("error", cerr))
			}
		}()
		localStore = auth.NewSQLiteLocalStore(db)
	}

	// ── 6. Credentials ────────────────────────────────────────────────────
	credentialStore := auth.NewCredentialStore(pool, log)

	if cfg.BootstrapAdminEnabled() {
		created, err := credentialStore.EnsureCredential(startupCtx,
			cfg.BootstrapAdminUsername, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, sec.RoleAdmin)
		must(log, err, "seed bootstrap admin")
		log.Info("bootstrap_admin_checked",
			slog.String("username", cfg.BootstrapAdminUsername),
			slog.Bool("created", created),
		)
	}

	tokens, err := sec.NewTokenService([]byte(cfg.SessionSecret), constants.AuthIssuer, nil)
	must(log, err, "initialize token service")

	// ── 7. Session Gates ──────────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	providers := func(federated.Storage) auth.FederatedProvider { return federated.Disabled{} }
	if cfg.FederatedEnabled() {
		httpClient := &http.Client{Timeout: federated.DefaultHTTPTimeout}
		providers = func(storage federated.Storage) auth.FederatedProvider {
			return federated.NewClient(federated.Config{
				BaseURL:    cfg.FederatedURL,
				AnonKey:    cfg.FederatedAnonKey,
				HTTPClient: httpClient,
			}, storage, log)
		}
	}

	gates := auth.NewGates(auth.GatesDeps{
		Store:     localStore,
		Verifier:  auth.NewVerifier(credentialStore),
		Tokens:    tokens,
		Providers: providers,
		Recorder:  recorder,
		Logger:    log,
	})
	defer gates.Close()
	go gates.Run(runCtx)

	// ── 8. Handlers ───────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers([]api.HealthCheck{
		{Name: "postgres", Check: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }},
		{Name: "local_store", Check: localStore.Ping},
	}, log)

	recordService := records.NewService(records.NewPostgresRepository(pool), log)

	pages, err := web.NewHandler(gates, recordService, log)
	must(log, err, "parse templates")

	limiter := middleware.NewRateLimiter(runCtx, cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst)

	server := api.NewServer(cfg, log, api.Handlers{
		Liveness:      liveness,
		Readiness:     readiness,
		Metrics:       metrics.Handler(registry),
		Gates:         gates,
		Auth:          auth.NewHandler(gates),
		Records:       records.NewHandler(recordService),
		Web:           pages,
		LoginThrottle: limiter.Middleware,
	})

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger tagged with the application name.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
