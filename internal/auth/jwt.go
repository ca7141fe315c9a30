// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package auth implements authentication: JWT issuance and validation,
// password hashing, TOTP two-factor flows, and the HTTP middleware
// that guards the API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types carried in the token_type claim. Access tokens authorise
// API calls; refresh tokens mint new pairs; temp tokens bridge the gap
// between password login and OTP verification for 2FA accounts.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
	TokenTypeTemp    = "temp"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrWrongTokenUse = errors.New("token type not valid for this operation")
)

// Claims is the JWT payload. Subject carries the user's email and ID
// carries the jti used for revocation.
type Claims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 tokens.
type JWTManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	tempTTL    time.Duration
}

// NewJWTManager creates a manager. The secret must not be empty; config
// validation enforces length requirements before this point.
func NewJWTManager(secret string, accessTTL, refreshTTL, tempTTL time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret cannot be empty")
	}
	return &JWTManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		tempTTL:    tempTTL,
	}, nil
}

// Generate issues a token of the given type for the user's email. Each
// token carries a fresh jti so it can be revoked independently.
func (m *JWTManager) Generate(email, tokenType string) (string, error) {
	var ttl time.Duration
	switch tokenType {
	case TokenTypeAccess:
		ttl = m.accessTTL
	case TokenTypeRefresh:
		ttl = m.refreshTTL
	case TokenTypeTemp:
		ttl = m.tempTTL
	default:
		return "", fmt.Errorf("unknown token type %q", tokenType)
	}

	now := time.Now()
	claims := &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, enforcing the HMAC signing
// method to prevent algorithm confusion.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateType validates a token and requires a specific token_type.
func (m *JWTManager) ValidateType(tokenString, tokenType string) (*Claims, error) {
	claims, err := m.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

// RemainingTTL returns how long until the token expires. Used to size
// blacklist entries.
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return time.Until(c.ExpiresAt.Time)
}
