// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/models"
)

// Register creates a new account.
// @Summary Register an account
// @Description Creates an account with the default user role
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration payload"
// @Success 201 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse
// @Router /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.RegisterRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respondError(w, http.StatusBadRequest, "EMAIL_TAKEN", "email already registered", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "REGISTER_FAILED", "failed to create account", err)
		return
	}

	respondSuccess(w, http.StatusCreated, user, started)
}

// Login authenticates with email and password.
// @Summary Log in
// @Description Returns a token pair, or a 2FA challenge for 2FA-enabled accounts
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Credentials"
// @Success 200 {object} models.APIResponse{data=models.TokenPair}
// @Failure 401 {object} models.APIResponse
// @Router /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.LoginRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	pair, challenge, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "LOGIN_FAILED", "login failed", err)
		return
	}

	if challenge != nil {
		respondSuccess(w, http.StatusOK, challenge, started)
		return
	}
	respondSuccess(w, http.StatusOK, pair, started)
}

// Verify2FA completes a two-step login with a TOTP code.
// @Summary Verify 2FA code
// @Description Exchanges a temp token plus OTP code for a token pair
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.Verify2FARequest true "Temp token and OTP code"
// @Success 200 {object} models.APIResponse{data=models.TokenPair}
// @Failure 401 {object} models.APIResponse
// @Router /api/auth/2fa/verify [post]
func (h *Handler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.Verify2FARequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	pair, err := h.auth.Verify2FA(r.Context(), req.TempToken, req.OTPCode)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidOTP):
			respondError(w, http.StatusUnauthorized, "INVALID_OTP", "invalid one-time code", nil)
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenUse),
			errors.Is(err, auth.ErrTokenRevoked):
			respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "temp token is invalid or expired", nil)
		default:
			respondError(w, http.StatusInternalServerError, "VERIFY_FAILED", "2FA verification failed", err)
		}
		return
	}

	respondSuccess(w, http.StatusOK, pair, started)
}

// Refresh rotates a refresh token into a new token pair.
// @Summary Refresh tokens
// @Description Rotates the refresh token; the presented token is revoked
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh token"
// @Success 200 {object} models.APIResponse{data=models.TokenPair}
// @Failure 401 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /api/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req models.RefreshRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenUse),
			errors.Is(err, auth.ErrTokenRevoked):
			respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "refresh token is invalid or revoked", nil)
		case errors.Is(err, auth.ErrBlacklistUnavailable):
			respondError(w, http.StatusServiceUnavailable, "BLACKLIST_UNAVAILABLE", "token store unavailable, try again", err)
		default:
			respondError(w, http.StatusInternalServerError, "REFRESH_FAILED", "token refresh failed", err)
		}
		return
	}

	respondSuccess(w, http.StatusOK, pair, started)
}

// Logout revokes the presented access token.
// @Summary Log out
// @Description Revokes the access token for its remaining lifetime
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	if err := h.auth.Logout(r.Context(), claims); err != nil {
		respondError(w, http.StatusInternalServerError, "LOGOUT_FAILED", "failed to revoke token", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "logged out"}, started)
}

// Enable2FA turns on TOTP for the current account.
// @Summary Enable 2FA
// @Description Generates a TOTP secret and returns the provisioning URI
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.TwoFASetup}
// @Failure 400 {object} models.APIResponse
// @Router /api/auth/2fa/enable [post]
func (h *Handler) Enable2FA(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	user, ok := h.currentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	setup, err := h.auth.Enable2FA(r.Context(), user)
	if err != nil {
		if errors.Is(err, auth.ErrTwoFAEnabled) {
			respondError(w, http.StatusBadRequest, "2FA_ALREADY_ENABLED", "two-factor authentication already enabled", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "2FA_ENABLE_FAILED", "failed to enable two-factor authentication", err)
		return
	}

	respondSuccess(w, http.StatusOK, setup, started)
}

// Disable2FA turns off TOTP for the current account.
// @Summary Disable 2FA
// @Description Clears the stored TOTP secret
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /api/auth/2fa/disable [post]
func (h *Handler) Disable2FA(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	user, ok := h.currentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	if err := h.auth.Disable2FA(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrTwoFANotEnabled) {
			respondError(w, http.StatusBadRequest, "2FA_NOT_ENABLED", "two-factor authentication not enabled", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "2FA_DISABLE_FAILED", "failed to disable two-factor authentication", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "two-factor authentication disabled"}, started)
}
