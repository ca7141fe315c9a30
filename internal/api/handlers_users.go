// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/models"
)

// Me returns the authenticated user's profile.
// @Summary Current user profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 401 {object} models.APIResponse
// @Router /api/users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	user, ok := h.currentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	respondSuccess(w, http.StatusOK, user, started)
}

// ListUsers returns a paginated user listing. Admin only.
// @Summary List users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size (1-100)" default(10)
// @Success 200 {object} models.APIResponse{data=models.UserList}
// @Failure 403 {object} models.APIResponse
// @Router /api/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	page := getIntParam(r, "page", 0)
	if page < 0 {
		page = 0
	}
	size := getIntParam(r, "size", h.cfg.API.DefaultPageSize)
	if size < 1 {
		size = h.cfg.API.DefaultPageSize
	}
	if size > h.cfg.API.MaxPageSize {
		size = h.cfg.API.MaxPageSize
	}

	users, total, err := h.db.ListUsers(r.Context(), page, size)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "LIST_FAILED", "failed to list users", err)
		return
	}

	respondSuccess(w, http.StatusOK, models.UserList{
		Items:      users,
		Pagination: models.NewPagination(total, page, size),
	}, started)
}

// GetUser returns a single user. Admin only.
// @Summary Get a user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 404 {object} models.APIResponse
// @Router /api/users/{id} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "user id must be a positive integer", nil)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "GET_FAILED", "failed to load user", err)
		return
	}

	respondSuccess(w, http.StatusOK, user, started)
}

// UpdateUserRole changes a user's role. Admin only.
// @Summary Update a user's role
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body models.UpdateRoleRequest true "New role"
// @Success 200 {object} models.APIResponse{data=models.User}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/users/{id}/role [put]
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "user id must be a positive integer", nil)
		return
	}

	var req models.UpdateRoleRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	if err := h.db.UpdateUserRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to update role", err)
		return
	}

	user, err := h.db.GetUserByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "GET_FAILED", "failed to load user", err)
		return
	}

	respondSuccess(w, http.StatusOK, user, started)
}

// DeleteUser removes an account. Admin only; self-deletion is refused.
// @Summary Delete a user
// @Tags Users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204 "No Content"
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/users/{id} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "user id must be a positive integer", nil)
		return
	}

	current, ok := h.currentUser(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	if current.ID == id {
		respondError(w, http.StatusBadRequest, "CANNOT_DELETE_SELF", "cannot delete your own account", nil)
		return
	}

	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DELETE_FAILED", "failed to delete user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
