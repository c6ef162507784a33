// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

/*
TestVerifier_EmptyInputSkipsStore rejects blank fields without a store round trip.
*/
func TestVerifier_EmptyInputSkipsStore(t *testing.T) {
	store := newFakeCredentialStore()
	verifier := auth.NewVerifier(store)

	for _, pair := range [][2]string{{"", "secret"}, {"admin", ""}, {"", ""}} {
		_, err := verifier.Verify(context.Background(), pair[0], pair[1])
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	}
	assert.Zero(t, store.callCount())
}

/*
TestVerifier_NonMatchingPairs never yields an identity for a pair without an active record.
*/
func TestVerifier_NonMatchingPairs(t *testing.T) {
	store := newFakeCredentialStore()
	store.addUser("admin", "correct-horse", "u-1", "admin")
	verifier := auth.NewVerifier(store)

	pairs := [][2]string{
		{"admin", "wrong"},
		{"admin", "Correct-horse"},
		{"Admin", "correct-horse"},
		{"ghost", "correct-horse"},
		{"admin ", "correct-horse"},
	}
	for _, pair := range pairs {
		identity, err := verifier.Verify(context.Background(), pair[0], pair[1])
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials, pair)
		assert.Nil(t, identity)
	}
}

/*
TestVerifier_RoleCopiedExactly checks there is no widening or narrowing of roles.
*/
func TestVerifier_RoleCopiedExactly(t *testing.T) {
	tests := []struct {
		storedRole string
		want       sec.Role
	}{
		{"admin", sec.RoleAdmin},
		{"user", sec.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.storedRole, func(t *testing.T) {
			store := newFakeCredentialStore()
			store.addUser("operator", "pw", "u-9", tt.storedRole)

			identity, err := auth.NewVerifier(store).Verify(context.Background(), "operator", "pw")
			require.NoError(t, err)

			assert.Equal(t, tt.want, identity.Role)
			assert.Equal(t, "u-9", identity.ID)
			assert.Equal(t, "operator", identity.Email)
			assert.Equal(t, sec.OriginCredentials, identity.Origin)
		})
	}
}

/*
TestVerifier_FailsClosed maps store failures and malformed responses to ErrUnavailable.
*/
func TestVerifier_FailsClosed(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		rows []auth.CredentialRow
		err  error
	}{
		{"store_error", nil, cause},
		{"missing_user_id", []auth.CredentialRow{{Username: "admin", Role: "admin"}}, nil},
		{"unknown_role", []auth.CredentialRow{{UserID: "u-1", Username: "admin", Role: "superuser"}}, nil},
		{"empty_role", []auth.CredentialRow{{UserID: "u-1", Username: "admin"}}, nil},
		{"ambiguous", []auth.CredentialRow{
			{UserID: "u-1", Username: "admin", Role: "admin"},
			{UserID: "u-2", Username: "admin", Role: "user"},
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeCredentialStore()
			store.rows = tt.rows
			store.err = tt.err

			identity, err := auth.NewVerifier(store).Verify(context.Background(), "admin", "pw")
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, auth.ErrUnavailable)
			assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}
