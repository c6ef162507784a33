// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package web_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/platform/ctxutil"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/internal/platform/sqlite"
	"github.com/taibuivan/voxboard/internal/records"
	"github.com/taibuivan/voxboard/internal/web"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const testClient = "0192f5a8-0000-7000-8000-0000000000aa"

type credentials struct {
	err error
}

func (store *credentials) VerifyCredentials(_ context.Context, username, password string) ([]auth.CredentialRow, error) {
	if store.err != nil {
		return nil, store.err
	}
	if username == "admin" && password == "correct-horse" {
		return []auth.CredentialRow{{UserID: "11111111-1111-7111-8111-111111111111", Username: "admin", Role: "admin"}}, nil
	}
	return nil, nil
}

type emptyRepository struct{}

func (emptyRepository) ListRecords(context.Context, records.Kind, int, int) ([]*records.Record, int, error) {
	return nil, 0, nil
}

func (emptyRepository) CountRecords(_ context.Context, kind records.Kind) (int, error) {
	if kind == records.KindVoices {
		return 7, nil
	}
	return 0, nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(by time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(by)
}

type webFixture struct {
	clock       *clock
	credentials *credentials
	handler     http.Handler
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()

	db, err := sqlite.Open(context.Background(), ":memory:", discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	testClock := &clock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	tokens, err := sec.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "voxboard.test", testClock.Now)
	require.NoError(t, err)

	store := &credentials{}
	gates := auth.NewGates(auth.GatesDeps{
		Store:    auth.NewSQLiteLocalStore(db),
		Verifier: auth.NewVerifier(store),
		Tokens:   tokens,
		Logger:   discard,
		Now:      testClock.Now,
	})
	t.Cleanup(gates.Close)

	handler, err := web.NewHandler(gates, records.NewService(emptyRepository{}, discard), discard)
	require.NoError(t, err)

	passthrough := func(next http.Handler) http.Handler { return next }
	return &webFixture{clock: testClock, credentials: store, handler: handler.Routes(passthrough)}
}

func (f *webFixture) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	request := httptest.NewRequest(method, path, body)
	if form != nil {
		request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	request = request.WithContext(ctxutil.WithClientID(request.Context(), testClient))

	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

func TestDashboard_RedirectsAnonymousToLogin(t *testing.T) {
	f := newWebFixture(t)

	recorder := f.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
}

func TestLoginForm_Renders(t *testing.T) {
	f := newWebFixture(t)

	recorder := f.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `name="username"`)
	assert.Equal(t, "text/html; charset=utf-8", recorder.Header().Get("Content-Type"))
}

func TestLogin_WrongPasswordShowsMessage(t *testing.T) {
	f := newWebFixture(t)

	recorder := f.do(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid username or password.")
	assert.Contains(t, recorder.Body.String(), `value="admin"`)
}

func TestLogin_UnavailableShowsGenericMessage(t *testing.T) {
	f := newWebFixture(t)
	f.credentials.err = errors.New("connection refused")

	recorder := f.do(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"correct-horse"}})
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Authentication failed. Please try again.")
}

func TestLogin_SuccessOpensDashboard(t *testing.T) {
	f := newWebFixture(t)

	recorder := f.do(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/", recorder.Header().Get("Location"))

	recorder = f.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "Error Logs")
	assert.Contains(t, body, "Voices")
	assert.Contains(t, body, "<p>7</p>")

	// Signed-in visitors skip the form.
	assert.Equal(t, http.StatusSeeOther, f.do(http.MethodGet, "/login", nil).Code)

	recorder = f.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
	assert.Equal(t, http.StatusSeeOther, f.do(http.MethodGet, "/", nil).Code)
}

func TestLoginForm_ShownAgainAfterExpiry(t *testing.T) {
	f := newWebFixture(t)

	recorder := f.do(http.MethodPost, "/login", url.Values{"username": {"admin"}, "password": {"correct-horse"}})
	require.Equal(t, http.StatusSeeOther, recorder.Code)

	f.clock.Advance(auth.SessionTTL + time.Minute)

	recorder = f.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `name="password"`)
}
