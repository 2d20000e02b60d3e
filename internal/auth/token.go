// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource returns a bearer token for backend requests. Matches the
// signature the sync engine's transport expects.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields the given token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// Claims carries the user and device identity for sync requests.
type Claims struct {
	DeviceID string `json:"did"` // device ID
	jwt.RegisteredClaims
}

// DevMinter mints HS256 tokens locally for development and the simulator.
// Production clients receive tokens from the authentication flow, which is
// an external collaborator.
type DevMinter struct {
	secret []byte
}

// NewDevMinter creates a minter with the given shared secret.
func NewDevMinter(secret string) *DevMinter {
	return &DevMinter{secret: []byte(secret)}
}

// Mint generates a signed token for the given user and device.
func (m *DevMinter) Mint(userID, deviceID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "go-trailsync",
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// TokenSource returns a caching TokenSource that re-mints shortly before
// expiry so long-running sync loops never send a stale token.
func (m *DevMinter) TokenSource(userID, deviceID string, ttl time.Duration) TokenSource {
	var (
		mu      sync.Mutex
		token   string
		expires time.Time
	)
	return func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if token != "" && time.Until(expires) > ttl/10 {
			return token, nil
		}
		minted, err := m.Mint(userID, deviceID, ttl)
		if err != nil {
			return "", fmt.Errorf("failed to mint token: %w", err)
		}
		token = minted
		expires = time.Now().Add(ttl)
		return token, nil
	}
}

// TokenExpiry parses a token without verifying its signature and returns
// its expiry. Used client-side to decide when re-authentication is needed.
func TokenExpiry(token string) (time.Time, error) {
	var claims Claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry")
	}
	return claims.ExpiresAt.Time, nil
}
