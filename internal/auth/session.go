// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"time"

	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// Session is a time-bounded authenticated context for one identity.
type Session struct {
	Identity     sec.Identity
	IssuedAt     time.Time
	ExpiresAt    time.Time
	AccessToken  string
	RefreshToken string
}

// ValidAt reports whether the session is still usable at now.
//
// Validity is strict: a session whose ExpiresAt equals now is expired.
func (session *Session) ValidAt(now time.Time) bool {
	return session.ExpiresAt.After(now)
}

// clone returns a deep copy safe to hand out of the gate lock.
func (session *Session) clone() *Session {
	if session == nil {
		return nil
	}
	copied := *session
	return &copied
}

// persistedSession is the wire form stored under [KeySession].
type persistedSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IssuedAt     int64  `json:"issued_at"`
	ExpiresAt    int64  `json:"expires_at"`
}

// # Gate State

// State is the observable lifecycle state of a gate.
type State string

const (
	StateInitializing    State = "initializing"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// Snapshot is the read-only view of a gate consumed by renderers.
type Snapshot struct {
	Identity       *sec.Identity
	Session        *Session
	IsInitializing bool
}

// State derives the lifecycle state from the snapshot.
func (snapshot Snapshot) State() State {
	switch {
	case snapshot.IsInitializing:
		return StateInitializing
	case snapshot.Identity != nil:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}
