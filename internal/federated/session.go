// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package federated

import (
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/voxboard/internal/platform/sec"
)

// # Events

// EventKind names a session change reported by the provider.
type EventKind string

const (
	SignedIn       EventKind = "SIGNED_IN"
	SignedOut      EventKind = "SIGNED_OUT"
	TokenRefreshed EventKind = "TOKEN_REFRESHED"
)

// Event is one session change notification. Session is nil for [SignedOut].
type Event struct {
	Kind    EventKind
	Session *Session
}

// # Wire Types

// User is the provider's user object.
type User struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	AppMetadata map[string]any `json:"app_metadata,omitempty"`
}

// Session is a live provider session as returned by the token endpoint.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Expiry returns the session expiry instant.
func (session *Session) Expiry() time.Time {
	return time.Unix(session.ExpiresAt, 0)
}

// normalize fills ExpiresAt from ExpiresIn when the provider omitted it.
func (session *Session) normalize(now time.Time) {
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = now.Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
	}
}

// validate rejects sessions the gate could not turn into an identity.
func (session *Session) validate() error {
	switch {
	case session.AccessToken == "":
		return errors.New("federated: session without access token")
	case session.ExpiresAt == 0:
		return errors.New("federated: session without expiry")
	case session.User.ID == "":
		return errors.New("federated: session without user id")
	}
	return nil
}

// Identity maps the provider user to a dashboard identity.
//
// The role is admin only when app_metadata.role is exactly "admin".
func (session *Session) Identity() (sec.Identity, error) {
	if err := session.validate(); err != nil {
		return sec.Identity{}, err
	}

	role := sec.RoleUser
	if raw, ok := session.User.AppMetadata["role"].(string); ok && raw == string(sec.RoleAdmin) {
		role = sec.RoleAdmin
	}

	identity := sec.Identity{
		ID:     session.User.ID,
		Email:  session.User.Email,
		Role:   role,
		Origin: sec.OriginFederated,
	}
	if err := identity.Validate(); err != nil {
		return sec.Identity{}, fmt.Errorf("federated: %w", err)
	}
	return identity, nil
}
