// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"

	"github.com/taibuivan/voxboard/internal/platform/ctxutil"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// RequireRole blocks requests if the gate-approved identity doesn't have the required role.
//
// # Usage
//
// Must be registered AFTER the session gate middleware, which injects the identity.
func RequireRole(role sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if identity == nil {
				writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !identity.Role.AtLeast(role) {
				writeError(writer, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
