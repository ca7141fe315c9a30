// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager("test-secret-key-for-unit-tests", 30*time.Minute, 7*24*time.Hour, 5*time.Minute)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

func TestNewJWTManagerEmptySecret(t *testing.T) {
	if _, err := NewJWTManager("", time.Minute, time.Minute, time.Minute); err == nil {
		t.Error("NewJWTManager() with empty secret should fail")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	m := newTestJWTManager(t)

	tests := []struct {
		name      string
		tokenType string
	}{
		{name: "access token", tokenType: TokenTypeAccess},
		{name: "refresh token", tokenType: TokenTypeRefresh},
		{name: "temp token", tokenType: TokenTypeTemp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.Generate("reader@example.com", tt.tokenType)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			claims, err := m.Validate(token)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if claims.Subject != "reader@example.com" {
				t.Errorf("Validate() subject = %v, want reader@example.com", claims.Subject)
			}
			if claims.TokenType != tt.tokenType {
				t.Errorf("Validate() token_type = %v, want %v", claims.TokenType, tt.tokenType)
			}
			if claims.ID == "" {
				t.Error("Validate() jti is empty")
			}
		})
	}
}

func TestGenerateUnknownType(t *testing.T) {
	m := newTestJWTManager(t)
	if _, err := m.Generate("reader@example.com", "session"); err == nil {
		t.Error("Generate() with unknown type should fail")
	}
}

func TestGenerateUniqueJTI(t *testing.T) {
	m := newTestJWTManager(t)

	t1, err := m.Generate("reader@example.com", TokenTypeAccess)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	t2, err := m.Generate("reader@example.com", TokenTypeAccess)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	c1, _ := m.Validate(t1)
	c2, _ := m.Validate(t2)
	if c1.ID == c2.ID {
		t.Error("two tokens share the same jti")
	}
}

func TestValidateRejectsTampering(t *testing.T) {
	m := newTestJWTManager(t)
	other, _ := NewJWTManager("a-different-secret-entirely", time.Minute, time.Minute, time.Minute)

	token, err := other.Generate("reader@example.com", TokenTypeAccess)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	m, err := NewJWTManager("test-secret-key-for-unit-tests", -time.Minute, time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	token, err := m.Generate("reader@example.com", TokenTypeAccess)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateType(t *testing.T) {
	m := newTestJWTManager(t)

	token, err := m.Generate("reader@example.com", TokenTypeRefresh)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := m.ValidateType(token, TokenTypeRefresh); err != nil {
		t.Errorf("ValidateType(refresh) error = %v", err)
	}
	if _, err := m.ValidateType(token, TokenTypeAccess); !errors.Is(err, ErrWrongTokenUse) {
		t.Errorf("ValidateType(access) error = %v, want ErrWrongTokenUse", err)
	}
}

func TestRemainingTTL(t *testing.T) {
	m := newTestJWTManager(t)

	token, err := m.Generate("reader@example.com", TokenTypeAccess)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	ttl := claims.RemainingTTL()
	if ttl <= 29*time.Minute || ttl > 30*time.Minute {
		t.Errorf("RemainingTTL() = %v, want just under 30m", ttl)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !CheckPassword(hash, "correct horse battery") {
		t.Error("CheckPassword() rejected the correct password")
	}
	if CheckPassword(hash, "wrong password") {
		t.Error("CheckPassword() accepted a wrong password")
	}
}

func TestTOTPRoundTrip(t *testing.T) {
	secret, uri, err := GenerateTOTPSecret("Shelfmark", "reader@example.com")
	if err != nil {
		t.Fatalf("GenerateTOTPSecret() error = %v", err)
	}
	if secret == "" {
		t.Fatal("GenerateTOTPSecret() returned empty secret")
	}
	if uri == "" || uri[:10] != "otpauth://" {
		t.Errorf("GenerateTOTPSecret() uri = %q, want otpauth:// URI", uri)
	}

	if VerifyTOTP("000000", secret) && VerifyTOTP("123456", secret) {
		t.Error("VerifyTOTP() accepted two arbitrary codes")
	}
}
