// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/voxboard/internal/platform/apperr"
)

// # Error Taxonomy
//
// Components return these sentinels (or copies carrying a cause via
// [apperr.AppError.WithCause]); callers classify with [errors.Is].

var (
	// ErrInvalidCredentials means no active credential record matched.
	ErrInvalidCredentials = apperr.New("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)

	// ErrUnavailable means the credential store or local state could not be used.
	ErrUnavailable = apperr.New("AUTH_UNAVAILABLE", "Authentication failed, please try again", http.StatusServiceUnavailable)

	// ErrSessionExpired is internal to session resolution; the gate swallows it.
	ErrSessionExpired = apperr.New("SESSION_EXPIRED", "Session expired", http.StatusUnauthorized)

	// ErrFederatedRejected means the federated provider refused a sign-up or sign-in request.
	ErrFederatedRejected = apperr.New("FEDERATED_REJECTED", "The identity provider rejected the request", http.StatusBadRequest)

	// ErrFederatedDisabled means no federated provider is configured.
	ErrFederatedDisabled = apperr.New("FEDERATED_DISABLED", "Federated sign-in is not enabled", http.StatusNotFound)
)
