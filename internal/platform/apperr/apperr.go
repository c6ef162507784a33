// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Voxboard.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level HTTP responses.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Sentinels: Domain packages declare package-level *AppError values (e.g. auth.ErrUnavailable)
    and attach causes with [AppError.WithCause]; [errors.Is] matches on Code.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the canonical error type for the Voxboard API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "INVALID_CREDENTIALS").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// New creates an [AppError] with an explicit code, message and status.
func New(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] with the same Code.
//
// Copies produced by [AppError.WithCause] therefore still match their sentinel.
func (e *AppError) Is(target error) bool {
	other, ok := target.(*AppError)
	if !ok || other == nil {
		return false
	}
	return other.Code == e.Code
}

// WithCause returns a copy of e carrying cause for server-side logging.
func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Record") // Returns "Record not found"
func NotFound(resource string) *AppError {
	return New("NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return New("UNAUTHORIZED", msg, http.StatusUnauthorized)
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return New("FORBIDDEN", msg, http.StatusForbidden)
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	appErr := New("VALIDATION_ERROR", msg, http.StatusBadRequest)
	appErr.Details = details
	return appErr
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return New("RATE_LIMITED",
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		http.StatusTooManyRequests,
	)
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	appErr := New("INTERNAL_ERROR", "An unexpected error occurred", http.StatusInternalServerError)
	appErr.Cause = cause
	return appErr
}

// ServiceUnavailable creates a 503 [AppError] for unreachable dependencies.
func ServiceUnavailable(msg string) *AppError {
	return New("SERVICE_UNAVAILABLE", msg, http.StatusServiceUnavailable)
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
