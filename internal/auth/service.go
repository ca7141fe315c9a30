// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/logging"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTwoFAEnabled       = errors.New("two-factor authentication already enabled")
	ErrTwoFANotEnabled    = errors.New("two-factor authentication not enabled")
	ErrInvalidOTP         = errors.New("invalid one-time code")
	ErrTokenRevoked       = errors.New("token has been revoked")

	// ErrBlacklistUnavailable wraps blacklist outages on flows that
	// must read revocation state before minting credentials.
	ErrBlacklistUnavailable = errors.New("blacklist unavailable")
)

// UserStore is the slice of the database layer the service needs.
// Satisfied by *database.DB.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	SetLastLogin(ctx context.Context, id int64) error
	Set2FA(ctx context.Context, id int64, enabled bool, secret string) error
}

// Blacklist stores revoked token IDs. Satisfied by *cache.TokenBlacklist.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service implements the authentication flows.
type Service struct {
	store      UserStore
	blacklist  Blacklist
	jwt        *JWTManager
	bcryptCost int
	totpIssuer string
}

// NewService wires the authentication service.
func NewService(store UserStore, blacklist Blacklist, jwt *JWTManager, bcryptCost int, totpIssuer string) *Service {
	return &Service{
		store:      store,
		blacklist:  blacklist,
		jwt:        jwt,
		bcryptCost: bcryptCost,
		totpIssuer: totpIssuer,
	}
}

// Register creates an account with the default user role.
func (s *Service) Register(ctx context.Context, email, password string) (models.User, error) {
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:          strings.ToLower(strings.TrimSpace(email)),
		HashedPassword: hash,
		Role:           models.RoleUser,
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// Login verifies credentials. Accounts without 2FA get a token pair;
// accounts with 2FA get a short-lived temp token and must present an
// OTP code to Verify2FA.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, *models.TwoFAChallenge, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.RecordAuthAttempt("invalid_credentials")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !CheckPassword(user.HashedPassword, password) {
		metrics.RecordAuthAttempt("invalid_credentials")
		return nil, nil, ErrInvalidCredentials
	}

	if user.Is2FAEnabled {
		temp, err := s.jwt.Generate(user.Email, TokenTypeTemp)
		if err != nil {
			return nil, nil, err
		}
		metrics.RecordAuthAttempt("requires_2fa")
		return nil, &models.TwoFAChallenge{
			TempToken: temp,
			TokenType: "bearer",
			Message:   "2FA verification required",
		}, nil
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.SetLastLogin(ctx, user.ID); err != nil {
		logging.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to update last login")
	}
	metrics.RecordAuthAttempt("success")
	return &pair, nil, nil
}

// Verify2FA completes a two-step login. The temp token is revoked on
// success so it cannot be replayed.
func (s *Service) Verify2FA(ctx context.Context, tempToken, code string) (models.TokenPair, error) {
	claims, err := s.jwt.ValidateType(tempToken, TokenTypeTemp)
	if err != nil {
		return models.TokenPair{}, err
	}
	if s.isRevokedLenient(ctx, claims.ID) {
		return models.TokenPair{}, ErrTokenRevoked
	}

	user, err := s.store.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		return models.TokenPair{}, ErrInvalidToken
	}
	if !user.Is2FAEnabled || !VerifyTOTP(code, user.OTPSecret) {
		metrics.RecordAuthAttempt("invalid_otp")
		return models.TokenPair{}, ErrInvalidOTP
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		logging.Warn().Err(err).Msg("Failed to revoke temp token")
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return models.TokenPair{}, err
	}
	if err := s.store.SetLastLogin(ctx, user.ID); err != nil {
		logging.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to update last login")
	}
	metrics.RecordAuthAttempt("success")
	return pair, nil
}

// Refresh rotates a refresh token: the presented token is revoked and
// a fresh pair is issued. Revocation state must be readable here, so a
// blacklist outage fails the refresh rather than risking replay.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	claims, err := s.jwt.ValidateType(refreshToken, TokenTypeRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	if revoked {
		metrics.RecordAuthAttempt("blacklisted")
		return models.TokenPair{}, ErrTokenRevoked
	}

	// The account may have been deleted since the token was issued.
	if _, err := s.store.GetUserByEmail(ctx, claims.Subject); err != nil {
		return models.TokenPair{}, ErrInvalidToken
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %v", ErrBlacklistUnavailable, err)
	}
	return s.issuePair(claims.Subject)
}

// Logout revokes the presented access token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	return s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL())
}

// Enable2FA provisions a TOTP secret and returns the otpauth URI.
func (s *Service) Enable2FA(ctx context.Context, user models.User) (models.TwoFASetup, error) {
	if user.Is2FAEnabled {
		return models.TwoFASetup{}, ErrTwoFAEnabled
	}

	secret, uri, err := GenerateTOTPSecret(s.totpIssuer, user.Email)
	if err != nil {
		return models.TwoFASetup{}, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	if err := s.store.Set2FA(ctx, user.ID, true, secret); err != nil {
		return models.TwoFASetup{}, err
	}
	return models.TwoFASetup{OTPURI: uri}, nil
}

// Disable2FA clears the stored secret.
func (s *Service) Disable2FA(ctx context.Context, user models.User) error {
	if !user.Is2FAEnabled {
		return ErrTwoFANotEnabled
	}
	return s.store.Set2FA(ctx, user.ID, false, "")
}

func (s *Service) issuePair(email string) (models.TokenPair, error) {
	access, err := s.jwt.Generate(email, TokenTypeAccess)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := s.jwt.Generate(email, TokenTypeRefresh)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// isRevokedLenient treats blacklist outages as not revoked. Used on
// read paths where availability wins; refresh rotation uses the strict
// check instead.
func (s *Service) isRevokedLenient(ctx context.Context, jti string) bool {
	revoked, err := s.blacklist.IsRevoked(ctx, jti)
	if err != nil {
		logging.Warn().Err(err).Msg("Blacklist check failed, allowing token")
		return false
	}
	return revoked
}
