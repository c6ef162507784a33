// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "fmt"

// # User Roles

// Role represents the authorization level granted to an identity.
type Role string

const (
	// Full dashboard access, including error logs
	RoleAdmin Role = "admin"

	// Default role for every identity not explicitly elevated
	RoleUser Role = "user"
)

// ParseRole converts a raw role string into a [Role].
//
// Unknown values are rejected rather than defaulted, so callers can fail closed
// on malformed upstream data.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("sec: unknown role %q", raw)
	}
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r Role) AtLeast(target Role) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {
	switch r {
	case RoleAdmin:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}
