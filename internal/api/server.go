// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/dashboard are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/platform/config"
	"github.com/taibuivan/voxboard/internal/platform/constants"
	"github.com/taibuivan/voxboard/internal/platform/middleware"
	"github.com/taibuivan/voxboard/internal/records"
	"github.com/taibuivan/voxboard/internal/web"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 only when all deps are healthy.
	Readiness http.HandlerFunc

	// Metrics exposes the Prometheus registry.
	Metrics http.Handler

	// Gates is the per-client session gate registry guarding protected routes.
	Gates *auth.Gates

	// Auth serves the JSON authentication endpoints.
	Auth *auth.Handler

	// Records serves the protected record listings.
	Records *records.Handler

	// Web renders the HTML dashboard.
	Web *web.Handler

	// LoginThrottle limits password submissions per client IP.
	LoginThrottle func(http.Handler) http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	router := newRouter(cfg, log, h)

	return &Server{
		router: router,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

func newRouter(cfg *config.Config, log *slog.Logger, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	throttle := h.LoginThrottle
	if throttle == nil {
		throttle = func(next http.Handler) http.Handler { return next }
	}

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.PanicRecovery())
	r.Use(middleware.ClientID(cfg.IsProduction()))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated probes for container orchestration and scraping.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes(throttle))

		api.Group(func(protected chi.Router) {
			protected.Use(auth.RequireSession(h.Gates, auth.JSONRenderer{}))
			protected.Route("/records", h.Records.RegisterRoutes)
		})
	})

	// # Dashboard Pages
	r.Mount("/", h.Web.Routes(throttle))

	return r
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
