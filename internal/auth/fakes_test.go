// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/voxboard/internal/auth"
	"github.com/taibuivan/voxboard/internal/federated"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

var (
	testSecret = []byte("0123456789abcdef0123456789abcdef")
	baseTime   = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	discard    = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// # Clock

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock { return &testClock{now: now} }

func (clock *testClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *testClock) Set(now time.Time) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = now
}

// # Credential Store

type credentialUser struct {
	password string
	row      auth.CredentialRow
}

type fakeCredentialStore struct {
	mu    sync.Mutex
	users map[string]credentialUser
	rows  []auth.CredentialRow
	err   error
	calls int
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{users: map[string]credentialUser{}}
}

func (store *fakeCredentialStore) addUser(username, password, userID, role string) {
	store.users[username] = credentialUser{
		password: password,
		row:      auth.CredentialRow{UserID: userID, Username: username, Email: username + "@voxboard.app", Role: role},
	}
}

func (store *fakeCredentialStore) VerifyCredentials(_ context.Context, username, password string) ([]auth.CredentialRow, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.calls++
	if store.err != nil {
		return nil, store.err
	}
	if store.rows != nil {
		return store.rows, nil
	}
	user, found := store.users[username]
	if !found || user.password != password {
		return nil, nil
	}
	return []auth.CredentialRow{user.row}, nil
}

func (store *fakeCredentialStore) callCount() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.calls
}

// # Local Store

type memoryLocalStore struct {
	mu      sync.Mutex
	values  map[string]map[string][]byte
	failing bool
}

func newMemoryLocalStore() *memoryLocalStore {
	return &memoryLocalStore{values: map[string]map[string][]byte{}}
}

var errStoreDown = errors.New("local store down")

func (store *memoryLocalStore) Get(_ context.Context, namespace, key string) ([]byte, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failing {
		return nil, errStoreDown
	}
	return store.values[namespace][key], nil
}

func (store *memoryLocalStore) Set(_ context.Context, namespace string, entries map[string][]byte) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failing {
		return errStoreDown
	}
	if store.values[namespace] == nil {
		store.values[namespace] = map[string][]byte{}
	}
	for key, value := range entries {
		store.values[namespace][key] = value
	}
	return nil
}

func (store *memoryLocalStore) Delete(_ context.Context, namespace string, keys ...string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failing {
		return errStoreDown
	}
	for _, key := range keys {
		delete(store.values[namespace], key)
	}
	return nil
}

func (store *memoryLocalStore) Ping(context.Context) error { return nil }

func (store *memoryLocalStore) has(namespace, key string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()
	_, found := store.values[namespace][key]
	return found
}

func (store *memoryLocalStore) put(namespace, key string, value []byte) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.values[namespace] == nil {
		store.values[namespace] = map[string][]byte{}
	}
	store.values[namespace][key] = value
}

// # Federated Provider

type fakeProvider struct {
	mu           sync.Mutex
	session      *federated.Session
	err          error
	currentCalls int
	signOutCalls int
	listeners    map[int]func(federated.Event)
	nextID       int

	// entered/release let a test hold CurrentSession mid-flight.
	entered chan struct{}
	release chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: map[int]func(federated.Event){}}
}

func (provider *fakeProvider) CurrentSession(context.Context) (*federated.Session, error) {
	provider.mu.Lock()
	provider.currentCalls++
	entered, release := provider.entered, provider.release
	provider.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}

	provider.mu.Lock()
	defer provider.mu.Unlock()
	return provider.session, provider.err
}

func (provider *fakeProvider) OnSessionChange(fn func(federated.Event)) func() {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	id := provider.nextID
	provider.nextID++
	provider.listeners[id] = fn
	return func() {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		delete(provider.listeners, id)
	}
}

func (provider *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*federated.Session, error) {
	if password != "provider-secret" {
		return nil, federated.ErrInvalidCredentials
	}
	session := federatedSession(email, baseTime.Add(time.Hour), "")
	provider.mu.Lock()
	provider.session = session
	provider.mu.Unlock()
	return session, nil
}

func (provider *fakeProvider) SignUp(context.Context, string, string) (*federated.Session, error) {
	return nil, nil
}

func (provider *fakeProvider) SignOut(context.Context) error {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.signOutCalls++
	provider.session = nil
	return nil
}

func (provider *fakeProvider) ResetPassword(context.Context, string) error { return nil }

// emit delivers an event synchronously to every subscriber.
func (provider *fakeProvider) emit(event federated.Event) {
	provider.mu.Lock()
	listeners := make([]func(federated.Event), 0, len(provider.listeners))
	for _, fn := range provider.listeners {
		listeners = append(listeners, fn)
	}
	provider.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func (provider *fakeProvider) subscriberCount() int {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return len(provider.listeners)
}

func (provider *fakeProvider) currentCallCount() int {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return provider.currentCalls
}

func federatedSession(email string, expiresAt time.Time, role string) *federated.Session {
	session := &federated.Session{
		AccessToken:  "fed-access",
		RefreshToken: "fed-refresh",
		ExpiresAt:    expiresAt.Unix(),
		User:         federated.User{ID: "fed-" + email, Email: email},
	}
	if role != "" {
		session.User.AppMetadata = map[string]any{"role": role}
	}
	return session
}

// # Fixture

// fixture wires one gate over in-memory collaborators.
type fixture struct {
	clock        *testClock
	credentials  *fakeCredentialStore
	store        *memoryLocalStore
	provider     *fakeProvider
	tokens       *sec.TokenService
	materializer *auth.Materializer
	gate         *auth.Gate
}

const fixtureClient = "client-1"

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newTestClock(baseTime)
	tokens, err := sec.NewTokenService(testSecret, "voxboard.test", clock.Now)
	require.NoError(t, err)

	credentials := newFakeCredentialStore()
	credentials.addUser("admin", "correct-horse", "11111111-1111-7111-8111-111111111111", "admin")
	credentials.addUser("viewer", "viewer-pass", "22222222-2222-7222-8222-222222222222", "user")

	store := newMemoryLocalStore()
	provider := newFakeProvider()
	materializer := auth.NewMaterializer(auth.NewNamespace(store, fixtureClient), tokens, clock.Now, discard)

	gate := auth.NewGate(auth.GateDeps{
		ClientID:     fixtureClient,
		Verifier:     auth.NewVerifier(credentials),
		Materializer: materializer,
		Provider:     provider,
		Logger:       discard,
		Now:          clock.Now,
	})
	t.Cleanup(gate.Close)

	return &fixture{
		clock:        clock,
		credentials:  credentials,
		store:        store,
		provider:     provider,
		tokens:       tokens,
		materializer: materializer,
		gate:         gate,
	}
}

// persistSessionExpiringAt writes a credentials session that expires at expiresAt.
func (f *fixture) persistSessionExpiringAt(t *testing.T, identity sec.Identity, expiresAt time.Time) {
	t.Helper()

	current := f.clock.Now()
	f.clock.Set(expiresAt.Add(-auth.SessionTTL))
	_, err := f.materializer.Materialize(context.Background(), identity)
	f.clock.Set(current)
	require.NoError(t, err)
}

// startAndWait runs the initial pass to completion.
func (f *fixture) startAndWait(t *testing.T) {
	t.Helper()

	f.gate.Start(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.gate.Wait(ctx))
}

func adminIdentity() sec.Identity {
	return sec.Identity{
		ID:     "11111111-1111-7111-8111-111111111111",
		Email:  "admin",
		Role:   sec.RoleAdmin,
		Origin: sec.OriginCredentials,
	}
}
