// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/voxboard/internal/federated"
	"github.com/taibuivan/voxboard/internal/platform/metrics"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// # Gate

// Gate owns one browser client's authentication state.
//
// # Concurrency
//
// All state mutation happens under mu. Calls into the verifier, the local
// store and the provider are made without holding mu, so provider callbacks
// can never deadlock against an in-flight action. Every committed update
// bumps epoch; a resolution pass that observes a newer epoch on completion
// discards its own result.
type Gate struct {
	clientID     string
	verifier     *Verifier
	materializer *Materializer
	provider     FederatedProvider
	recorder     metrics.Recorder
	logger       *slog.Logger
	now          func() time.Time

	mu           sync.Mutex
	identity     *sec.Identity
	session      *Session
	initializing bool
	epoch        uint64
	ready        chan struct{}
	startOnce    sync.Once
	unsubscribe  func()
	closed       bool
}

// GateDeps groups a gate's collaborators.
type GateDeps struct {
	ClientID     string
	Verifier     *Verifier
	Materializer *Materializer
	Provider     FederatedProvider
	Recorder     metrics.Recorder
	Logger       *slog.Logger
	Now          func() time.Time
}

// NewGate constructs a gate in the Initializing state. Call [Gate.Start] to resolve it.
func NewGate(deps GateDeps) *Gate {
	provider := deps.Provider
	if provider == nil {
		provider = federated.Disabled{}
	}

	recorder := deps.Recorder
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gate{
		clientID:     deps.ClientID,
		verifier:     deps.Verifier,
		materializer: deps.Materializer,
		provider:     provider,
		recorder:     recorder,
		logger:       logger.With(slog.String("client_id", deps.ClientID)),
		now:          now,
		initializing: true,
		ready:        make(chan struct{}),
	}
}

// # Lifecycle

// Start subscribes to provider session changes and launches the initial
// resolution pass in the background. Subsequent calls do nothing.
//
// The pass is detached from ctx cancellation so an aborted request never
// leaves the gate stuck in Initializing.
func (gate *Gate) Start(ctx context.Context) {
	gate.startOnce.Do(func() {
		unsubscribe := gate.provider.OnSessionChange(gate.handleEvent)

		gate.mu.Lock()
		if gate.closed {
			gate.mu.Unlock()
			unsubscribe()
			return
		}
		gate.unsubscribe = unsubscribe
		gate.mu.Unlock()

		passCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ResolutionTimeout)
		go func() {
			defer cancel()
			gate.resolve(passCtx)
		}()
	})
}

// Wait blocks until the initial pass settled or ctx is done.
func (gate *Gate) Wait(ctx context.Context) error {
	select {
	case <-gate.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close unsubscribes from the provider. Idempotent.
func (gate *Gate) Close() {
	gate.mu.Lock()
	if gate.closed {
		gate.mu.Unlock()
		return
	}
	gate.closed = true
	unsubscribe := gate.unsubscribe
	gate.unsubscribe = nil
	gate.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// # Contract

// Snapshot returns a copy of the current state.
func (gate *Gate) Snapshot() Snapshot {
	gate.mu.Lock()
	defer gate.mu.Unlock()

	snapshot := Snapshot{
		Session:        gate.session.clone(),
		IsInitializing: gate.initializing,
	}
	if gate.identity != nil {
		identity := *gate.identity
		snapshot.Identity = &identity
	}
	return snapshot
}

/*
Current returns the state a request should act on.

Description: A session past its expiry triggers a fresh resolution pass. If
the pass still yields an expired session, the identity is withheld.

Returns:
  - Snapshot: Never carries an identity whose session has expired
*/
func (gate *Gate) Current(ctx context.Context) Snapshot {
	snapshot := gate.Snapshot()
	if snapshot.IsInitializing || snapshot.Session == nil || snapshot.Session.ValidAt(gate.now()) {
		return snapshot
	}

	snapshot = gate.Revalidate(ctx)
	if snapshot.Session != nil && !snapshot.Session.ValidAt(gate.now()) {
		snapshot.Identity = nil
		snapshot.Session = nil
	}
	return snapshot
}

// # Resolution

// Revalidate runs a fresh resolution pass synchronously. It does not
// re-enter Initializing.
func (gate *Gate) Revalidate(ctx context.Context) Snapshot {
	gate.resolve(ctx)
	return gate.Snapshot()
}

// resolve runs one pass: persisted session first, provider second.
func (gate *Gate) resolve(ctx context.Context) {
	started := gate.now()

	gate.mu.Lock()
	startEpoch := gate.epoch
	gate.mu.Unlock()

	session, result := gate.lookup(ctx)

	gate.mu.Lock()
	superseded := gate.epoch != startEpoch
	if !superseded {
		gate.commitLocked(session)
	}
	if gate.initializing {
		gate.initializing = false
		close(gate.ready)
	}
	gate.mu.Unlock()

	if superseded {
		result = metrics.ResolvedSuperseded
	}
	gate.recorder.RecordResolution(result, gate.now().Sub(started))
	gate.logger.DebugContext(ctx, "gate_resolved", slog.String("result", result))
}

// lookup finds the session a pass should commit. Any failure yields nil.
func (gate *Gate) lookup(ctx context.Context) (*Session, string) {

	// 1. Persisted credentials-path session
	session, err := gate.materializer.Restore(ctx)
	switch {
	case err == nil && session != nil:
		return session, metrics.ResolvedCredentials
	case errors.Is(err, ErrSessionExpired):
		gate.logger.InfoContext(ctx, "persisted_session_expired")
	case err != nil:
		gate.logger.WarnContext(ctx, "persisted_session_unreadable", slog.Any("error", err))
	}

	// 2. Live federated session
	remote, err := gate.provider.CurrentSession(ctx)
	if err != nil {
		gate.logger.WarnContext(ctx, "federated_session_check_failed", slog.Any("error", err))
		return nil, metrics.ResolvedUnauthenticated
	}
	if remote == nil {
		return nil, metrics.ResolvedUnauthenticated
	}

	session, err = gate.materializer.FromFederated(remote)
	if err != nil {
		gate.logger.WarnContext(ctx, "federated_session_rejected", slog.Any("error", err))
		return nil, metrics.ResolvedUnauthenticated
	}
	return session, metrics.ResolvedFederated
}

// commitLocked replaces the state and bumps the epoch. Caller holds mu.
func (gate *Gate) commitLocked(session *Session) {
	gate.epoch++
	if session == nil {
		gate.identity = nil
		gate.session = nil
		return
	}
	identity := session.Identity
	gate.identity = &identity
	gate.session = session
}

func (gate *Gate) commit(session *Session) {
	gate.mu.Lock()
	defer gate.mu.Unlock()
	gate.commitLocked(session)
}

// # Provider Notifications

// handleEvent applies a provider session change without re-entering Initializing.
func (gate *Gate) handleEvent(event federated.Event) {
	gate.recorder.RecordFederatedEvent(string(event.Kind))

	switch event.Kind {
	case federated.SignedIn, federated.TokenRefreshed:
		session, err := gate.materializer.FromFederated(event.Session)
		if err != nil {
			gate.logger.Warn("federated_event_rejected", slog.String("event", string(event.Kind)), slog.Any("error", err))
			gate.dropFederated()
			return
		}
		gate.commit(session)

	case federated.SignedOut:
		gate.dropFederated()
	}
}

// dropFederated signs the client out only if the current session came from the provider.
func (gate *Gate) dropFederated() {
	gate.mu.Lock()
	defer gate.mu.Unlock()

	if gate.identity != nil && gate.identity.Origin == sec.OriginFederated {
		gate.commitLocked(nil)
	}
}

// # Actions

/*
Login is the credentials login action: verify, materialize, commit.

Description: On any failure the state is left as it was and the error is
returned to the caller for rendering.

Returns:
  - *Session: The session now held by the gate
  - error: ErrInvalidCredentials or ErrUnavailable
*/
func (gate *Gate) Login(ctx context.Context, username, password string) (*Session, error) {
	identity, err := gate.verifier.Verify(ctx, username, password)
	if err != nil {
		gate.recordLoginFailure(ctx, err)
		return nil, err
	}

	session, err := gate.materializer.Materialize(ctx, *identity)
	if err != nil {
		gate.recordLoginFailure(ctx, err)
		return nil, fmt.Errorf("auth_gate_login_failed: %w", err)
	}

	gate.commit(session)
	gate.recorder.RecordLogin(metrics.LoginSucceeded)
	gate.logger.InfoContext(ctx, "login_succeeded",
		slog.String("user_id", identity.ID),
		slog.String("role", string(identity.Role)),
	)

	return session.clone(), nil
}

func (gate *Gate) recordLoginFailure(ctx context.Context, err error) {
	outcome := metrics.LoginUnavailable
	if errors.Is(err, ErrInvalidCredentials) {
		outcome = metrics.LoginInvalidCredentials
	}
	gate.recorder.RecordLogin(outcome)
	gate.logger.WarnContext(ctx, "login_failed", slog.String("outcome", outcome), slog.Any("error", err))
}

/*
SignOut clears the persisted slot and the federated session, then commits
Unauthenticated. Calling it while already signed out is a no-op.

Returns:
  - error: ErrUnavailable if the persisted slot could not be cleared (the
    in-memory state is signed out regardless)
*/
func (gate *Gate) SignOut(ctx context.Context) error {
	clearErr := gate.materializer.Clear(ctx)

	if err := gate.provider.SignOut(ctx); err != nil {
		gate.logger.WarnContext(ctx, "federated_sign_out_failed", slog.Any("error", err))
	}

	gate.commit(nil)
	gate.logger.InfoContext(ctx, "signed_out")

	return clearErr
}

// # Federated Actions

// FederatedLogin signs in through the provider and commits the session immediately.
func (gate *Gate) FederatedLogin(ctx context.Context, email, password string) (*Session, error) {
	remote, err := gate.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		mapped := mapFederatedError(err)
		gate.recordLoginFailure(ctx, mapped)
		return nil, mapped
	}

	session, err := gate.materializer.FromFederated(remote)
	if err != nil {
		gate.recordLoginFailure(ctx, ErrUnavailable)
		return nil, ErrUnavailable.WithCause(err)
	}

	gate.commit(session)
	gate.recorder.RecordLogin(metrics.LoginSucceeded)
	return session.clone(), nil
}

// FederatedSignUp registers with the provider. A nil session means the
// provider requires email confirmation first.
func (gate *Gate) FederatedSignUp(ctx context.Context, email, password string) (*Session, error) {
	remote, err := gate.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, mapFederatedError(err)
	}
	if remote == nil {
		return nil, nil
	}

	session, err := gate.materializer.FromFederated(remote)
	if err != nil {
		return nil, ErrUnavailable.WithCause(err)
	}

	gate.commit(session)
	return session.clone(), nil
}

// ResetPassword asks the provider to send a recovery email.
func (gate *Gate) ResetPassword(ctx context.Context, email string) error {
	if err := gate.provider.ResetPassword(ctx, email); err != nil {
		return mapFederatedError(err)
	}
	return nil
}

// mapFederatedError converts provider errors into the auth taxonomy.
func mapFederatedError(err error) error {
	var apiErr *federated.APIError
	switch {
	case errors.Is(err, federated.ErrInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, federated.ErrDisabled):
		return ErrFederatedDisabled
	case errors.As(err, &apiErr) && apiErr.Rejected():
		rejected := ErrFederatedRejected.WithCause(err)
		rejected.Message = apiErr.Message
		return rejected
	default:
		return ErrUnavailable.WithCause(err)
	}
}
