// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// AuthCredentialsTable represents the 'auth.credentials' table
type AuthCredentialsTable struct {
	Table        string
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     string
	LastLoginAt  string
	CreatedAt    string
}

// AuthCredentials is the schema definition for auth.credentials
var AuthCredentials = AuthCredentialsTable{
	Table:        "auth.credentials",
	ID:           "id",
	Username:     "username",
	Email:        "email",
	PasswordHash: "password_hash",
	Role:         "role",
	IsActive:     "is_active",
	LastLoginAt:  "last_login_at",
	CreatedAt:    "created_at",
}

// SQL functions in the auth schema.
const (
	FuncVerifyCredentials = "auth.verify_credentials"
	FuncTouchLastLogin    = "auth.touch_last_login"
)
