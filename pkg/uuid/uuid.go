// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides time-ordered identifiers for request and client IDs.

It wraps google/uuid to generate Version 7 values, which sort by creation
time (millisecond precision) and so read naturally in logs.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
//
// If the entropy source fails it falls back to a random v4 value, so callers
// on the request path never see an error.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// # Validation

// Valid reports whether raw is a well-formed UUID in canonical form.
func Valid(raw string) bool {
	if len(raw) != 36 {
		return false
	}
	return uuid.Validate(raw) == nil
}
