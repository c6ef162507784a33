// Copyright (c) 2026 Voxboard. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives, role/identity types and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It has no dependency on other internal packages so that
// context helpers, middleware and domain services can all share [Identity].
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload embedded inside a credentials-path session token.
//
// Custom application claims are abbreviated to keep the token small.
type SessionClaims struct {
	jwt.RegisteredClaims

	UserID string `json:"uid"`
	Email  string `json:"eml"`
	Role   string `json:"rol"`
	Origin string `json:"org"`
}

// TokenService signs and verifies session tokens using HS256.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
//
// now is the clock used for expiry validation; nil means [time.Now].
func NewTokenService(secret []byte, issuer string, now func() time.Time) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, errors.New("sec: token secret must be at least 32 bytes")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: secret, issuer: issuer, now: now}, nil
}

// GenerateSessionToken creates a signed token for identity valid over [issuedAt, expiresAt).
func (service *TokenService) GenerateSessionToken(identity Identity, issuedAt, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: identity.ID,
		Email:  identity.Email,
		Role:   string(identity.Role),
		Origin: string(identity.Origin),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature, issuer and validity window of a token string.
func (service *TokenService) VerifyToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	},
		jwt.WithIssuer(service.issuer),
		jwt.WithTimeFunc(service.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("sec: invalid token claims")
	}

	return claims, nil
}

// Matches reports whether the claims describe exactly the given identity.
func (claims *SessionClaims) Matches(identity Identity) bool {
	return claims.UserID == identity.ID &&
		claims.Email == identity.Email &&
		claims.Role == string(identity.Role) &&
		claims.Origin == string(identity.Origin)
}
