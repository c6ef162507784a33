// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/voxboard/internal/federated"
	"github.com/taibuivan/voxboard/internal/platform/metrics"
	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// GatesDeps groups the shared collaborators of every client gate.
type GatesDeps struct {
	Store     LocalStore
	Verifier  *Verifier
	Tokens    *sec.TokenService
	Providers ProviderFactory
	Recorder  metrics.Recorder
	Logger    *slog.Logger
	Now       func() time.Time
	IdleTTL   time.Duration
}

type gateEntry struct {
	gate     *Gate
	lastSeen time.Time
}

// Gates owns exactly one [Gate] per browser client.
type Gates struct {
	deps GatesDeps

	mu      sync.Mutex
	entries map[string]*gateEntry
	closed  bool
}

// NewGates creates an empty registry.
func NewGates(deps GatesDeps) *Gates {
	if deps.Providers == nil {
		deps.Providers = func(federated.Storage) FederatedProvider { return federated.Disabled{} }
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = GateIdleTTL
	}

	return &Gates{deps: deps, entries: make(map[string]*gateEntry)}
}

/*
For returns the client's gate, constructing and starting it on first use.

Parameters:
  - ctx: context.Context (values only; the initial pass is not cancelled with it)
  - clientID: string

Returns:
  - *Gate: The started gate
*/
func (gates *Gates) For(ctx context.Context, clientID string) *Gate {
	gates.mu.Lock()

	entry, found := gates.entries[clientID]
	if found {
		entry.lastSeen = gates.deps.Now()
		gates.mu.Unlock()
		return entry.gate
	}

	slot := NewNamespace(gates.deps.Store, clientID)
	gate := NewGate(GateDeps{
		ClientID:     clientID,
		Verifier:     gates.deps.Verifier,
		Materializer: NewMaterializer(slot, gates.deps.Tokens, gates.deps.Now, gates.deps.Logger),
		Provider:     gates.deps.Providers(slot),
		Recorder:     gates.deps.Recorder,
		Logger:       gates.deps.Logger,
		Now:          gates.deps.Now,
	})

	if !gates.closed {
		gates.entries[clientID] = &gateEntry{gate: gate, lastSeen: gates.deps.Now()}
	}
	count := len(gates.entries)
	closed := gates.closed
	gates.mu.Unlock()

	gates.deps.Recorder.SetActiveGates(count)
	if !closed {
		gate.Start(ctx)
	} else {
		gate.Close()
	}

	return gate
}

// Len reports the number of live gates.
func (gates *Gates) Len() int {
	gates.mu.Lock()
	defer gates.mu.Unlock()
	return len(gates.entries)
}

// Run evicts idle gates every [GateCleanupInterval] until ctx is done.
func (gates *Gates) Run(ctx context.Context) {
	ticker := time.NewTicker(GateCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gates.EvictIdle()
		case <-ctx.Done():
			return
		}
	}
}

// EvictIdle closes and removes gates unused for longer than the idle TTL.
//
// Persisted state is untouched; the next request resumes from it.
func (gates *Gates) EvictIdle() int {
	now := gates.deps.Now()

	gates.mu.Lock()
	var idle []*Gate
	for clientID, entry := range gates.entries {
		if now.Sub(entry.lastSeen) > gates.deps.IdleTTL {
			idle = append(idle, entry.gate)
			delete(gates.entries, clientID)
		}
	}
	count := len(gates.entries)
	gates.mu.Unlock()

	for _, gate := range idle {
		gate.Close()
	}
	if len(idle) > 0 {
		gates.deps.Recorder.SetActiveGates(count)
		gates.deps.Logger.Debug("gates_evicted", slog.Int("evicted", len(idle)), slog.Int("active", count))
	}

	return len(idle)
}

// Close closes every gate; later For calls return closed, non-registered gates.
func (gates *Gates) Close() {
	gates.mu.Lock()
	entries := gates.entries
	gates.entries = make(map[string]*gateEntry)
	gates.closed = true
	gates.mu.Unlock()

	for _, entry := range entries {
		entry.gate.Close()
	}
	gates.deps.Recorder.SetActiveGates(0)
}
