// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/voxboard/internal/platform/apperr"
	requestutil "github.com/taibuivan/voxboard/internal/platform/request"
	"github.com/taibuivan/voxboard/internal/platform/respond"
	"github.com/taibuivan/voxboard/internal/platform/sec"
	"github.com/taibuivan/voxboard/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the JSON authentication endpoints.
//
// Every endpoint operates on the gate of the calling browser client.
type Handler struct {
	gates *Gates
}

// NewHandler constructs a new [Handler].
func NewHandler(gates *Gates) *Handler {
	return &Handler{gates: gates}
}

// Routes returns a [chi.Router] configured with the auth routes.
//
// # Endpoints
//   - GET  /state                    : Current gate snapshot.
//   - POST /login                    : Credentials login.
//   - POST /logout                   : Sign out (idempotent).
//   - POST /federated/login          : Provider email/password login.
//   - POST /federated/signup         : Provider registration.
//   - POST /federated/reset-password : Provider recovery email.
//
// throttle wraps the endpoints that accept a password.
func (handler *Handler) Routes(throttle func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Get("/state", handler.state)
	router.Post("/logout", handler.logout)

	router.Group(func(r chi.Router) {
		r.Use(throttle)
		r.Post("/login", handler.login)
		r.Post("/federated/login", handler.federatedLogin)
		r.Post("/federated/signup", handler.federatedSignUp)
		r.Post("/federated/reset-password", handler.resetPassword)
	})

	return router
}

// # Request / Response Payloads

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type federatedRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

// StateResponse is the JSON view of a [Snapshot].
type StateResponse struct {
	State     State         `json:"state"`
	Identity  *sec.Identity `json:"identity,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
}

// NewStateResponse converts a snapshot for the wire. Tokens never leave the server.
func NewStateResponse(snapshot Snapshot) StateResponse {
	response := StateResponse{State: snapshot.State(), Identity: snapshot.Identity}
	if snapshot.Session != nil && !snapshot.IsInitializing {
		expiresAt := snapshot.Session.ExpiresAt.UTC()
		response.ExpiresAt = &expiresAt
	}
	return response
}

// gate resolves the caller's gate from the client cookie.
func (handler *Handler) gate(request *http.Request) (*Gate, error) {
	clientID := requestutil.ClientID(request)
	if clientID == "" {
		return nil, apperr.Unauthorized("Missing client identifier")
	}
	return handler.gates.For(request.Context(), clientID), nil
}

/*
State reports the caller's gate snapshot.

GET /api/v1/auth/state

Description: Waits briefly for the initial pass so a fresh page load usually
sees a settled state. An expired session is revalidated before reporting.

Response:
  - 200: StateResponse
*/
func (handler *Handler) state(writer http.ResponseWriter, request *http.Request) {
	gate, err := handler.gate(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	waitCtx, cancel := contextWithGateWait(request)
	_ = gate.Wait(waitCtx)
	cancel()

	respond.OK(writer, NewStateResponse(gate.Current(request.Context())))
}

/*
Login verifies credentials and opens a one-hour session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Username, Password)

Response:
  - 200: StateResponse (authenticated)
  - 401: INVALID_CREDENTIALS
  - 503: AUTH_UNAVAILABLE
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	gate, err := handler.gate(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := gate.Login(request.Context(), input.Username, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewStateResponse(gate.Current(request.Context())))
}

/*
Logout signs the client out.

POST /api/v1/auth/logout

Response:
  - 204: No Content (also when already signed out)
  - 503: AUTH_UNAVAILABLE if the persisted slot could not be cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	gate, err := handler.gate(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := gate.SignOut(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
FederatedLogin signs in through the federated provider.

POST /api/v1/auth/federated/login

Response:
  - 200: StateResponse (authenticated, origin federated)
  - 401: INVALID_CREDENTIALS
  - 404: FEDERATED_DISABLED
*/
func (handler *Handler) federatedLogin(writer http.ResponseWriter, request *http.Request) {
	var input federatedRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).Required("password", input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	gate, err := handler.gate(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := gate.FederatedLogin(request.Context(), input.Email, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, NewStateResponse(gate.Current(request.Context())))
}

/*
FederatedSignUp registers a provider account.

POST /api/v1/auth/federated/signup

Response:
  - 200: StateResponse when the provider auto-confirms
  - 202: {"confirmation_required": true}
  - 400: VALIDATION_ERROR / FEDERATED_REJECTED
*/
func (handler *Handler) federatedSignUp(writer http.ResponseWriter, request *http.Request) {
	var input federatedRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).
		Email("email", input.Email).
		MinLen("password", input.Password, MinFederatedPasswordLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	gate, err := handler.gate(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := gate.FederatedSignUp(request.Context(), input.Email, input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if session == nil {
		respond.Accepted(writer, map[string]bool{"confirmation_required": true})
		return
	}

	respond.OK(writer, NewStateResponse(gate.Current(request.Context())))
}

/*
ResetPassword requests a provider recovery email.

POST /api/v1/auth/federated/reset-password

Response:
  - 202: Accepted
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).Email("email", input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	gate, err := handler.gate(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := gate.ResetPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Accepted(writer, map[string]bool{"sent": true})
}

// # JSON Gate Renderer

// JSONRenderer renders gate outcomes for API clients.
type JSONRenderer struct{}

// Loading answers 202 with the initializing state.
func (JSONRenderer) Loading(writer http.ResponseWriter, _ *http.Request) {
	respond.Accepted(writer, StateResponse{State: StateInitializing})
}

// Login answers 401.
func (JSONRenderer) Login(writer http.ResponseWriter, request *http.Request) {
	respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
}
