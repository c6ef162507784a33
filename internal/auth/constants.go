// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Session Constraints

const (
	// SessionTTL is the lifetime of a credentials-path session. Not configurable.
	SessionTTL = 1 * time.Hour

	// RefreshTokenLength is the byte length of the random refresh token placeholder.
	RefreshTokenLength = 32

	// MinFederatedPasswordLength mirrors the provider's default password policy.
	MinFederatedPasswordLength = 6
)

// # Gate Lifecycle

const (
	// GateIdleTTL is how long a client gate may go unused before it is evicted.
	GateIdleTTL = 30 * time.Minute

	// GateCleanupInterval is how often the registry scans for idle gates.
	GateCleanupInterval = 1 * time.Minute

	// GateWaitTimeout bounds how long a request waits for the initial resolution pass.
	GateWaitTimeout = 2 * time.Second

	// ResolutionTimeout bounds a single resolution pass (local store + provider).
	ResolutionTimeout = 10 * time.Second
)

// # Persisted Keys

const (
	// KeyIdentity holds the JSON identity of the credentials-path session.
	KeyIdentity = "identity"

	// KeySession holds the JSON session (tokens and epoch-second timestamps).
	KeySession = "session"

	// KeyFederated is owned by the federated provider client.
	KeyFederated = "federated"

	// LocalStateTTL expires abandoned client namespaces in stores that support it.
	LocalStateTTL = 30 * 24 * time.Hour
)
