// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package api implements the HTTP surface: handlers, the Chi router,
// and the JSON response envelope.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/models"
)

// UserDirectory is the slice of the database layer the handlers use
// directly. Satisfied by *database.DB.
type UserDirectory interface {
	Ping(ctx context.Context) error
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	ListUsers(ctx context.Context, page, size int) ([]models.User, int, error)
	UpdateUserRole(ctx context.Context, id int64, role string) error
	DeleteUser(ctx context.Context, id int64) error
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	db        UserDirectory
	cfg       *config.Config
	auth      *auth.Service
	catalog   *catalog.Service
	startTime time.Time
}

// NewHandler creates a handler with all dependencies wired.
func NewHandler(db UserDirectory, cfg *config.Config, authSvc *auth.Service, catalogSvc *catalog.Service) *Handler {
	return &Handler{
		db:        db,
		cfg:       cfg,
		auth:      authSvc,
		catalog:   catalogSvc,
		startTime: time.Now(),
	}
}

// currentUser loads the account behind the authenticated request.
func (h *Handler) currentUser(ctx context.Context) (models.User, bool) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return models.User{}, false
	}
	user, err := h.db.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		return models.User{}, false
	}
	return user, true
}

// resolveRole is the RoleResolver used by admin-only routes.
func (h *Handler) resolveRole(ctx context.Context, email string) (string, error) {
	user, err := h.db.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// Ping returns a liveness probe response.
// @Summary Liveness probe
// @Description Returns pong with uptime. Exempt from rate limiting.
// @Tags Health
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /api/ping [get]
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	status := "ok"
	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
	}

	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"message":        "pong",
		"database":       status,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	}, started)
}
