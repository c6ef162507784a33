// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/voxboard/internal/platform/ctxutil"
)

// Renderer draws the two non-content outcomes of the gate.
//
// The JSON API and the HTML dashboard each provide their own.
type Renderer interface {
	// Loading is shown while the initial resolution pass is still running.
	Loading(writer http.ResponseWriter, request *http.Request)

	// Login is shown when no identity is present.
	Login(writer http.ResponseWriter, request *http.Request)
}

// RequireSession gates protected routes on the client's session state.
//
// # Flow
//
//  1. Wait up to [GateWaitTimeout] for the initial pass.
//  2. Still initializing: render Loading.
//  3. Session past its expiry: run a fresh pass ([Gate.Current]).
//  4. No identity: render Login. Otherwise inject the identity and continue.
//
// Must be registered AFTER the ClientID middleware.
func RequireSession(gates *Gates, renderer Renderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := request.Context()

			clientID := ctxutil.GetClientID(ctx)
			if clientID == "" {
				renderer.Login(writer, request)
				return
			}

			gate := gates.For(ctx, clientID)

			waitCtx, cancel := contextWithGateWait(request)
			_ = gate.Wait(waitCtx)
			cancel()

			snapshot := gate.Current(ctx)
			if snapshot.IsInitializing {
				renderer.Loading(writer, request)
				return
			}

			if snapshot.Identity == nil {
				renderer.Login(writer, request)
				return
			}

			logger := ctxutil.GetLogger(ctx).With(
				slog.String("user_id", snapshot.Identity.ID),
				slog.String("origin", string(snapshot.Identity.Origin)),
			)
			ctx = ctxutil.WithIdentity(ctx, snapshot.Identity)
			ctx = ctxutil.WithLogger(ctx, logger)

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// contextWithGateWait bounds a handler's wait for the initial pass.
func contextWithGateWait(request *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(request.Context(), GateWaitTimeout)
}
