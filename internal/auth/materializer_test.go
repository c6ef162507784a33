// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

/*
TestMaterializer_RoundTrip restores the same identity before expiry.
*/
func TestMaterializer_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.materializer.Materialize(ctx, adminIdentity())
	require.NoError(t, err)
	assert.Equal(t, baseTime.Add(3600*time.Second), session.ExpiresAt)
	assert.True(t, session.ExpiresAt.After(session.IssuedAt))
	assert.NotEmpty(t, session.RefreshToken)

	f.clock.Set(baseTime.Add(59 * time.Minute))

	restored, err := f.materializer.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, session.Identity.ID, restored.Identity.ID)
	assert.Equal(t, session.Identity.Role, restored.Identity.Role)
	assert.True(t, session.ExpiresAt.Equal(restored.ExpiresAt))
}

/*
TestMaterializer_PersistedFormat stores epoch seconds under fixed keys.
*/
func TestMaterializer_PersistedFormat(t *testing.T) {
	f := newFixture(t)

	_, err := f.materializer.Materialize(context.Background(), adminIdentity())
	require.NoError(t, err)

	raw, _ := f.store.Get(context.Background(), fixtureClient, auth.KeySession)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, float64(baseTime.Add(time.Hour).Unix()), stored["expires_at"])
	assert.Equal(t, float64(baseTime.Unix()), stored["issued_at"])

	raw, _ = f.store.Get(context.Background(), fixtureClient, auth.KeyIdentity)
	assert.JSONEq(t, `{"id":"11111111-1111-7111-8111-111111111111","email":"admin","role":"admin","origin":"credentials"}`, string(raw))
}

/*
TestMaterializer_ExpiryBoundary treats ExpiresAt == now as expired and removes the entry.
*/
func TestMaterializer_ExpiryBoundary(t *testing.T) {
	for _, offset := range []time.Duration{0, 10 * time.Second} {
		f := newFixture(t)
		ctx := context.Background()

		session, err := f.materializer.Materialize(ctx, adminIdentity())
		require.NoError(t, err)

		f.clock.Set(session.ExpiresAt.Add(offset))

		restored, err := f.materializer.Restore(ctx)
		assert.ErrorIs(t, err, auth.ErrSessionExpired, offset)
		assert.Nil(t, restored)
		assert.False(t, f.store.has(fixtureClient, auth.KeySession))
		assert.False(t, f.store.has(fixtureClient, auth.KeyIdentity))

		// Once removed, the slot reads as absent.
		restored, err = f.materializer.Restore(ctx)
		assert.NoError(t, err)
		assert.Nil(t, restored)
	}
}

/*
TestMaterializer_OneSecondBeforeExpiry is still valid.
*/
func TestMaterializer_OneSecondBeforeExpiry(t *testing.T) {
	f := newFixture(t)

	session, err := f.materializer.Materialize(context.Background(), adminIdentity())
	require.NoError(t, err)

	f.clock.Set(session.ExpiresAt.Add(-time.Second))

	restored, err := f.materializer.Restore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, restored)
}

/*
TestMaterializer_DiscardsUntrustedEntries treats corrupt or tampered entries as absent.
*/
func TestMaterializer_DiscardsUntrustedEntries(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(f *fixture)
	}{
		{"corrupt_session_json", func(f *fixture) {
			f.store.put(fixtureClient, auth.KeySession, []byte("{oops"))
		}},
		{"unknown_role", func(f *fixture) {
			f.store.put(fixtureClient, auth.KeyIdentity, []byte(`{"id":"u","email":"admin","role":"root","origin":"credentials"}`))
		}},
		{"widened_role", func(f *fixture) {
			f.store.put(fixtureClient, auth.KeyIdentity, []byte(`{"id":"22222222-2222-7222-8222-222222222222","email":"viewer","role":"admin","origin":"credentials"}`))
		}},
		{"federated_origin", func(f *fixture) {
			f.store.put(fixtureClient, auth.KeyIdentity, []byte(`{"id":"22222222-2222-7222-8222-222222222222","email":"viewer","role":"user","origin":"federated"}`))
		}},
		{"missing_identity", func(f *fixture) {
			_ = f.store.Delete(context.Background(), fixtureClient, auth.KeyIdentity)
		}},
		{"extended_expiry", func(f *fixture) {
			raw, _ := f.store.Get(context.Background(), fixtureClient, auth.KeySession)
			var stored map[string]any
			_ = json.Unmarshal(raw, &stored)
			stored["expires_at"] = baseTime.Add(48 * time.Hour).Unix()
			patched, _ := json.Marshal(stored)
			f.store.put(fixtureClient, auth.KeySession, patched)
		}},
		{"foreign_token", func(f *fixture) {
			foreign, _ := sec.NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), "voxboard.test", f.clock.Now)
			token, _ := foreign.GenerateSessionToken(sec.Identity{
				ID: "22222222-2222-7222-8222-222222222222", Email: "viewer", Role: sec.RoleUser, Origin: sec.OriginCredentials,
			}, baseTime, baseTime.Add(time.Hour))

			raw, _ := f.store.Get(context.Background(), fixtureClient, auth.KeySession)
			var stored map[string]any
			_ = json.Unmarshal(raw, &stored)
			stored["access_token"] = token
			patched, _ := json.Marshal(stored)
			f.store.put(fixtureClient, auth.KeySession, patched)
		}},
	}

	viewer := sec.Identity{
		ID:     "22222222-2222-7222-8222-222222222222",
		Email:  "viewer",
		Role:   sec.RoleUser,
		Origin: sec.OriginCredentials,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.materializer.Materialize(context.Background(), viewer)
			require.NoError(t, err)

			tt.tamper(f)

			restored, err := f.materializer.Restore(context.Background())
			assert.NoError(t, err)
			assert.Nil(t, restored)
			assert.False(t, f.store.has(fixtureClient, auth.KeySession))
			assert.False(t, f.store.has(fixtureClient, auth.KeyIdentity))
		})
	}
}

/*
TestMaterializer_StoreFailure surfaces ErrUnavailable.
*/
func TestMaterializer_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failing = true

	_, err := f.materializer.Materialize(context.Background(), adminIdentity())
	assert.ErrorIs(t, err, auth.ErrUnavailable)

	_, err = f.materializer.Restore(context.Background())
	assert.ErrorIs(t, err, auth.ErrUnavailable)
}

/*
TestMaterializer_FromFederatedDoesNotPersist leaves the credentials slot alone.
*/
func TestMaterializer_FromFederatedDoesNotPersist(t *testing.T) {
	f := newFixture(t)

	session, err := f.materializer.FromFederated(federatedSession("ops@voxboard.app", baseTime.Add(time.Hour), "admin"))
	require.NoError(t, err)
	assert.Equal(t, sec.OriginFederated, session.Identity.Origin)
	assert.Equal(t, sec.RoleAdmin, session.Identity.Role)
	assert.False(t, f.store.has(fixtureClient, auth.KeySession))

	_, err = f.materializer.FromFederated(nil)
	assert.Error(t, err)
}

/*
TestMaterializer_ClearIsIdempotent deletes nothing twice without error.
*/
func TestMaterializer_ClearIsIdempotent(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.materializer.Clear(context.Background()))
	assert.NoError(t, f.materializer.Clear(context.Background()))
}
