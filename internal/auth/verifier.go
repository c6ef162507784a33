// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the dashboard's session resolution and credential gate.

It decides, for every browser client, whether protected content or a login
prompt is shown.

Architecture:

  - Verifier: Checks a username/password pair against the credential store.
  - Materializer: Turns a verified identity into a persisted, time-bounded session.
  - Gate: Per-client state machine resolving the session on entry, then
    following the federated provider's session changes.
  - Gates: Registry owning one Gate per client, evicting idle ones.

Every failure path ends in the unauthenticated state; nothing here widens
access on ambiguity.
*/
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// Verifier validates username/password pairs.
type Verifier struct {
	store CredentialStore
}

// NewVerifier constructs a Verifier over store.
func NewVerifier(store CredentialStore) *Verifier {
	return &Verifier{store: store}
}

/*
Verify checks the pair against the credential store and returns the identity.

Description: Empty inputs are rejected without contacting the store. No retry
is attempted. The returned role is copied from the record exactly.

Parameters:
  - ctx: context.Context
  - username: string
  - password: string

Returns:
  - *sec.Identity: Identity with Origin credentials and Email set to username
  - error: ErrInvalidCredentials or ErrUnavailable
*/
func (verifier *Verifier) Verify(ctx context.Context, username, password string) (*sec.Identity, error) {

	// 1. Presence check only. Length and charset rules belong to the store.
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	// 2. Single verification call
	rows, err := verifier.store.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("auth_verifier_verify_failed: %w", ErrUnavailable.WithCause(err))
	}

	// 3. Parse the response shape before trusting it
	switch len(rows) {
	case 0:
		return nil, ErrInvalidCredentials
	case 1:
	default:
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_verifier_ambiguous_match: %d rows", len(rows)))
	}

	row := rows[0]
	if row.UserID == "" {
		return nil, ErrUnavailable.WithCause(errors.New("auth_verifier_missing_user_id"))
	}

	role, err := sec.ParseRole(row.Role)
	if err != nil {
		return nil, ErrUnavailable.WithCause(fmt.Errorf("auth_verifier_bad_role: %w", err))
	}

	return &sec.Identity{
		ID:     row.UserID,
		Email:  username,
		Role:   role,
		Origin: sec.OriginCredentials,
	}, nil
}
