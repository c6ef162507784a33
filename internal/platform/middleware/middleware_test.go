// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/voxboard/internal/platform/constants"
	"github.com/taibuivan/voxboard/internal/platform/ctxutil"
	"github.com/taibuivan/voxboard/internal/platform/middleware"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

var ok = http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

func TestRequestID_EchoesOrGenerates(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "trace-123")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "trace-123", seen)
}

/*
TestClientID_IssuesAndReusesCookie keeps one identifier per browser.
*/
func TestClientID_IssuesAndReusesCookie(t *testing.T) {
	var seen string
	handler := middleware.ClientID(true)(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetClientID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.ClientCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, cookies[0].Value, seen)
	issued := seen

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.AddCookie(cookies[0])
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, issued, seen)
	assert.Empty(t, recorder.Result().Cookies(), "a valid cookie is not reissued")

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: constants.ClientCookieName, Value: "../../etc"})
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, forged)
	assert.NotEqual(t, "../../etc", seen)
	assert.Len(t, recorder.Result().Cookies(), 1)
}

func TestRateLimiter_Blocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.NewRateLimiter(ctx, 0.001, 2).Middleware(ok)

	statuses := make([]int, 0, 3)
	for range 3 {
		request := httptest.NewRequest(http.MethodPost, "/login", nil)
		request.Header.Set(constants.HeaderXRealIP, "203.0.113.7")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		statuses = append(statuses, recorder.Code)
		if recorder.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, recorder.Header().Get(constants.HeaderRetryAfter))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// Other addresses have their own bucket.
	request := httptest.NewRequest(http.MethodPost, "/login", nil)
	request.Header.Set(constants.HeaderXRealIP, "203.0.113.8")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequireRole(t *testing.T) {
	handler := middleware.RequireRole(sec.RoleAdmin)(ok)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	for role, want := range map[sec.Role]int{sec.RoleUser: http.StatusForbidden, sec.RoleAdmin: http.StatusOK} {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request = request.WithContext(ctxutil.WithIdentity(request.Context(), &sec.Identity{ID: "u", Role: role, Origin: sec.OriginCredentials}))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		assert.Equal(t, want, recorder.Code, string(role))
	}
}

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_ERROR")
}
