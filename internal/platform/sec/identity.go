// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"fmt"
)

// # Session Origin

// Origin tags how an [Identity] was issued. Every identity has exactly one.
type Origin string

const (
	// OriginCredentials marks identities verified against the credential store.
	OriginCredentials Origin = "credentials"

	// OriginFederated marks identities reported by the federated-identity provider.
	OriginFederated Origin = "federated"
)

// ParseOrigin converts a raw origin string into an [Origin].
func ParseOrigin(raw string) (Origin, error) {
	switch Origin(raw) {
	case OriginCredentials:
		return OriginCredentials, nil
	case OriginFederated:
		return OriginFederated, nil
	default:
		return "", fmt.Errorf("sec: unknown origin %q", raw)
	}
}

// # Principal

// Identity is the authenticated principal's minimal profile.
type Identity struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Origin Origin `json:"origin"`
}

// Validate rejects identities with missing or unknown fields.
func (identity Identity) Validate() error {
	if identity.ID == "" {
		return errors.New("sec: identity id is empty")
	}
	if _, err := ParseRole(string(identity.Role)); err != nil {
		return err
	}
	if _, err := ParseOrigin(string(identity.Origin)); err != nil {
		return err
	}
	return nil
}

// IsAdmin reports whether the identity carries the admin role.
func (identity Identity) IsAdmin() bool {
	return identity.Role == RoleAdmin
}
