// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package models

import "time"

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account. HashedPassword and OTPSecret are never
// serialized to JSON.
type User struct {
	ID             int64      `json:"id" db:"id"`
	Email          string     `json:"email" db:"email"`
	HashedPassword string     `json:"-" db:"hashed_password"`
	Role           string     `json:"role" db:"role"`
	Is2FAEnabled   bool       `json:"is_2fa_enabled" db:"is_2fa_enabled"`
	OTPSecret      string     `json:"-" db:"otp_secret"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	LastLogin      *time.Time `json:"last_login,omitempty" db:"last_login"`
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token for rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Verify2FARequest completes a two-step login.
type Verify2FARequest struct {
	TempToken string `json:"temp_token" validate:"required"`
	OTPCode   string `json:"otp_code" validate:"required,len=6,numeric"`
}

// UpdateRoleRequest changes a user's role. Admin only.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// TokenPair is the successful login/refresh response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// TwoFAChallenge is returned when a 2FA-enabled account passes
// password authentication and must still present an OTP code.
type TwoFAChallenge struct {
	TempToken string `json:"temp_token"`
	TokenType string `json:"token_type"`
	Message   string `json:"message"`
}

// TwoFASetup is returned when 2FA is enabled for an account.
type TwoFASetup struct {
	OTPURI string `json:"otp_uri"`
}
