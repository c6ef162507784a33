// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"

	"github.com/taibuivan/voxboard/internal/federated"
)

// # Credential Data Access

// CredentialRow is one row returned by the credential store's verification call.
//
// Fields arrive untyped; the [Verifier] parses them before trusting anything.
type CredentialRow struct {
	UserID   string
	Username string
	Email    string
	Role     string
}

// CredentialStore defines the single read-only call against the credential records.
type CredentialStore interface {

	/*
		VerifyCredentials returns the matching active credential rows (normally zero or one).

		Parameters:
		  - context: context.Context
		  - username: string
		  - password: string

		Returns:
		  - []CredentialRow: Matching rows, empty when nothing matched
		  - error: Connectivity or query failures
	*/
	VerifyCredentials(context context.Context, username, password string) ([]CredentialRow, error)
}

// # Local State Data Access

// LocalStore is the durable key/value state shared by all browser clients,
// partitioned by namespace (one namespace per client).
type LocalStore interface {

	/*
		Get returns the value stored under key in namespace.

		Returns:
		  - []byte: nil when the key is absent
		  - error: Connectivity failures
	*/
	Get(context context.Context, namespace, key string) ([]byte, error)

	/*
		Set writes all entries in namespace atomically, replacing prior values.
	*/
	Set(context context.Context, namespace string, entries map[string][]byte) error

	/*
		Delete removes keys from namespace. Missing keys are not an error.
	*/
	Delete(context context.Context, namespace string, keys ...string) error

	// Ping reports whether the store is reachable.
	Ping(context context.Context) error
}

// Namespace is one client's slice of a [LocalStore].
//
// It satisfies [federated.Storage] so the provider client persists into the same slot.
type Namespace struct {
	store LocalStore
	name  string
}

var _ federated.Storage = (*Namespace)(nil)

// NewNamespace binds store to the namespace name.
func NewNamespace(store LocalStore, name string) *Namespace {
	return &Namespace{store: store, name: name}
}

// Get returns the value under key, or nil when absent.
func (namespace *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	return namespace.store.Get(ctx, namespace.name, key)
}

// Set writes a single key.
func (namespace *Namespace) Set(ctx context.Context, key string, value []byte) error {
	return namespace.store.Set(ctx, namespace.name, map[string][]byte{key: value})
}

// SetMany writes several keys atomically.
func (namespace *Namespace) SetMany(ctx context.Context, entries map[string][]byte) error {
	return namespace.store.Set(ctx, namespace.name, entries)
}

// Delete removes keys.
func (namespace *Namespace) Delete(ctx context.Context, keys ...string) error {
	return namespace.store.Delete(ctx, namespace.name, keys...)
}

// # Federated Provider

// FederatedProvider is the per-client federated identity provider contract.
// [*federated.Client] and [federated.Disabled] implement it.
type FederatedProvider interface {
	CurrentSession(ctx context.Context) (*federated.Session, error)
	OnSessionChange(fn func(federated.Event)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) (*federated.Session, error)
	SignUp(ctx context.Context, email, password string) (*federated.Session, error)
	SignOut(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
}

// ProviderFactory builds the provider client for one browser client.
type ProviderFactory func(storage federated.Storage) FederatedProvider
