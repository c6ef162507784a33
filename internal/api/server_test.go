// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/voxboard/internal/api"
	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/platform/config"
	"github.com/taibuivan/voxboard/internal/platform/constants"
	"github.com/taibuivan/voxboard/internal/platform/metrics"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/internal/platform/sqlite"
	"github.com/taibuivan/voxboard/internal/records"
	"github.com/taibuivan/voxboard/internal/web"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type staticCredentials struct{}

func (staticCredentials) VerifyCredentials(_ context.Context, username, password string) ([]auth.CredentialRow, error) {
	if username == "viewer" && password == "viewer-pass" {
		return []auth.CredentialRow{{UserID: "22222222-2222-7222-8222-222222222222", Username: "viewer", Role: "user"}}, nil
	}
	return nil, nil
}

type countingRepository struct{}

func (countingRepository) ListRecords(context.Context, records.Kind, int, int) ([]*records.Record, int, error) {
	return []*records.Record{}, 0, nil
}

func (countingRepository) CountRecords(context.Context, records.Kind) (int, error) { return 0, nil }

func newTestServer(t *testing.T, checks ...api.HealthCheck) http.Handler {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:", discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens, err := sec.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), constants.AuthIssuer, nil)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	gates := auth.NewGates(auth.GatesDeps{
		Store:    auth.NewSQLiteLocalStore(db),
		Verifier: auth.NewVerifier(staticCredentials{}),
		Tokens:   tokens,
		Recorder: metrics.NewCollector(registry),
		Logger:   discard,
	})
	t.Cleanup(gates.Close)

	recordService := records.NewService(countingRepository{}, discard)
	pages, err := web.NewHandler(gates, recordService, discard)
	require.NoError(t, err)

	liveness, readiness := api.NewHealthHandlers(checks, discard)

	server := api.NewServer(&config.Config{ServerPort: "0", Environment: "test"}, discard, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Gates:     gates,
		Auth:      auth.NewHandler(gates),
		Records:   records.NewHandler(recordService),
		Web:       pages,
	})
	return server.Handler()
}

func clientCookie(t *testing.T, recorder *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == constants.ClientCookieName {
			return cookie
		}
	}
	t.Fatalf("response did not set %s", constants.ClientCookieName)
	return nil
}

func TestServer_Health(t *testing.T) {
	handler := newTestServer(t)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
}

func TestServer_ReadinessDegraded(t *testing.T) {
	handler := newTestServer(t,
		api.HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }},
		api.HealthCheck{Name: "local_store", Check: func(context.Context) error { return errors.New("down") }},
	)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"degraded"`)
}

func TestServer_ProtectedRecordsFlow(t *testing.T) {
	handler := newTestServer(t)

	// Anonymous: the gate answers 401 and hands out a client cookie.
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/records/characters", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	cookie := clientCookie(t, recorder)

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"viewer","password":"viewer-pass"}`))
	login.AddCookie(cookie)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, login)
	require.Equal(t, http.StatusOK, recorder.Code)

	list := httptest.NewRequest(http.MethodGet, "/api/v1/records/characters", nil)
	list.AddCookie(cookie)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, list)
	assert.Equal(t, http.StatusOK, recorder.Code)

	adminOnly := httptest.NewRequest(http.MethodGet, "/api/v1/records/error_logs", nil)
	adminOnly.AddCookie(cookie)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, adminOnly)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// Another browser does not share the session.
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/records/characters", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestServer_MetricsExposed(t *testing.T) {
	handler := newTestServer(t)

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"viewer","password":"wrong"}`))
	handler.ServeHTTP(httptest.NewRecorder(), login)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `voxboard_login_attempts_total{outcome="invalid_credentials"} 1`)
}

func TestServer_DashboardRedirectsToLogin(t *testing.T) {
	handler := newTestServer(t)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
}
