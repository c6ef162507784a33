// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/voxboard/internal/federated"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// Materializer creates, persists and restores credentials-path sessions for one client.
type Materializer struct {
	slot   *Namespace
	tokens *sec.TokenService
	now    func() time.Time
	logger *slog.Logger
}

// NewMaterializer binds a materializer to the client's namespace.
//
// now must be the same clock the token service validates with.
func NewMaterializer(slot *Namespace, tokens *sec.TokenService, now func() time.Time, logger *slog.Logger) *Materializer {
	if now == nil {
		now = time.Now
	}
	return &Materializer{slot: slot, tokens: tokens, now: now, logger: logger}
}

/*
Materialize builds a one-hour session for identity and persists it.

Description: The identity and session keys are replaced together. Timestamps
are truncated to whole seconds because they are persisted as epoch seconds.

Parameters:
  - ctx: context.Context
  - identity: sec.Identity (as returned by the Verifier)

Returns:
  - *Session: The persisted session
  - error: ErrUnavailable when signing or persisting fails
*/
func (materializer *Materializer) Materialize(ctx context.Context, identity sec.Identity) (*Session, error) {
	issuedAt := materializer.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(SessionTTL)

	accessToken, err := materializer.tokens.GenerateSessionToken(identity, issuedAt, expiresAt)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_sign_failed: %w", err))
	}

	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_refresh_token_failed: %w", err))
	}

	session := &Session{
		Identity:     identity,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	identityJSON, err := json.Marshal(identity)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_encode_failed: %w", err))
	}
	sessionJSON, err := json.Marshal(persistedSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     issuedAt.Unix(),
		ExpiresAt:    expiresAt.Unix(),
	})
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_encode_failed: %w", err))
	}

	if err := materializer.slot.SetMany(ctx, map[string][]byte{
		KeyIdentity: identityJSON,
		KeySession:  sessionJSON,
	}); err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_persist_failed: %w", err))
	}

	return session, nil
}

/*
Restore reads the persisted session back.

Description: Entries are parsed strictly. Expired entries (ExpiresAt <= now)
are deleted and reported as ErrSessionExpired. Corrupt entries, and entries
whose signed access token does not match the stored identity and expiry, are
deleted and reported as absent.

Returns:
  - *Session: nil when nothing usable is persisted
  - error: ErrSessionExpired, or ErrUnavailable when the store cannot be read
*/
func (materializer *Materializer) Restore(ctx context.Context) (*Session, error) {
	rawSession, err := materializer.slot.Get(ctx, KeySession)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_read_failed: %w", err))
	}
	rawIdentity, err := materializer.slot.Get(ctx, KeyIdentity)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_read_failed: %w", err))
	}

	if rawSession == nil && rawIdentity == nil {
		return nil, nil
	}

	session, err := materializer.decode(rawIdentity, rawSession)
	if err != nil {
		materializer.logger.WarnContext(ctx, "persisted_session_discarded", slog.String("reason", err.Error()))
		return nil, materializer.Clear(ctx)
	}

	now := materializer.now()
	if !session.ValidAt(now) {
		if err := materializer.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	// The marker must be ours and must describe exactly this identity and window.
	claims, err := materializer.tokens.VerifyToken(session.AccessToken)
	if err != nil || !claims.Matches(session.Identity) || claims.ExpiresAt == nil || !claims.ExpiresAt.Time.Equal(session.ExpiresAt) {
		materializer.logger.WarnContext(ctx, "persisted_session_discarded", slog.String("reason", "token_mismatch"))
		return nil, materializer.Clear(ctx)
	}

	return session, nil
}

// decode parses both persisted entries into a session.
func (materializer *Materializer) decode(rawIdentity, rawSession []byte) (*Session, error) {
	if rawIdentity == nil || rawSession == nil {
		return nil, errors.New("partial_entry")
	}

	var identity sec.Identity
	if err := json.Unmarshal(rawIdentity, &identity); err != nil {
		return nil, fmt.Errorf("identity_json: %w", err)
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if identity.Origin != sec.OriginCredentials {
		return nil, errors.New("foreign_origin")
	}

	var stored persistedSession
	if err := json.Unmarshal(rawSession, &stored); err != nil {
		return nil, fmt.Errorf("session_json: %w", err)
	}
	if stored.AccessToken == "" || stored.ExpiresAt <= stored.IssuedAt {
		return nil, errors.New("session_shape")
	}

	return &Session{
		Identity:     identity,
		IssuedAt:     time.Unix(stored.IssuedAt, 0),
		ExpiresAt:    time.Unix(stored.ExpiresAt, 0),
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
	}, nil
}

// Clear deletes the persisted identity and session. Idempotent.
func (materializer *Materializer) Clear(ctx context.Context) error {
	if err := materializer.slot.Delete(ctx, KeyIdentity, KeySession); err != nil {
		return ErrUnavailable.WithCause(fmt.Errorf("auth_materializer_clear_failed: %w", err))
	}
	return nil
}

/*
FromFederated wraps a provider session. Nothing is persisted here: the
provider client already owns its own storage key.

Returns:
  - *Session: Session with a federated-origin identity
  - error: When the provider session lacks the fields an identity needs
*/
func (materializer *Materializer) FromFederated(remote *federated.Session) (*Session, error) {
	if remote == nil {
		return nil, errors.New("auth_materializer_nil_federated_session")
	}

	identity, err := remote.Identity()
	if err != nil {
		return nil, fmt.Errorf("auth_materializer_federated_identity_failed: %w", err)
	}

	expiresAt := remote.Expiry()
	issuedAt := materializer.now().Truncate(time.Second)
	if !issuedAt.Before(expiresAt) {
		issuedAt = expiresAt.Add(-time.Second)
	}

	return &Session{
		Identity:     identity,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
		AccessToken:  remote.AccessToken,
		RefreshToken: remote.RefreshToken,
	}, nil
}
