// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/models"
)

// ListBooks returns a filtered, paginated book listing.
// @Summary List books
// @Description Filter by title/author substring, genre, and year range; paginated and sortable
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param title query string false "Title substring (case-insensitive)"
// @Param author query string false "Author name substring (case-insensitive)"
// @Param genre query string false "Exact genre"
// @Param year_min query int false "Earliest published year"
// @Param year_max query int false "Latest published year"
// @Param page query int false "Zero-based page" default(0)
// @Param size query int false "Page size (1-100)" default(10)
// @Param sort_by query string false "title | published_year | author" default(title)
// @Param sort_order query string false "asc | desc" default(asc)
// @Success 200 {object} models.APIResponse{data=models.BookList}
// @Failure 400 {object} models.APIResponse
// @Router /api/books [get]
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	q := r.URL.Query()

	filters := models.BookFilters{
		Title:     strings.TrimSpace(q.Get("title")),
		Author:    strings.TrimSpace(q.Get("author")),
		YearMin:   getIntParam(r, "year_min", 0),
		YearMax:   getIntParam(r, "year_max", 0),
		Page:      getIntParam(r, "page", 0),
		Size:      getIntParam(r, "size", 0),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}

	if raw := q.Get("genre"); raw != "" {
		genre, err := models.ParseGenre(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_GENRE", err.Error(), nil)
			return
		}
		filters.Genre = genre
	}

	list, err := h.catalog.List(r.Context(), filters)
	if errors.Is(err, catalog.ErrBadSort) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "LIST_FAILED", "failed to list books", err)
		return
	}

	respondSuccess(w, http.StatusOK, list, started)
}

// GetBook returns a single book.
// @Summary Get a book
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} models.APIResponse{data=models.Book}
// @Failure 404 {object} models.APIResponse
// @Router /api/books/{id} [get]
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "book id must be a positive integer", nil)
		return
	}

	book, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "book not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "GET_FAILED", "failed to load book", err)
		return
	}

	respondSuccess(w, http.StatusOK, book, started)
}

// CreateBook adds a book, creating the author if needed.
// @Summary Create a book
// @Description The author is referenced by name and created when absent
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BookInput true "Book payload"
// @Success 201 {object} models.APIResponse{data=models.Book}
// @Failure 400 {object} models.APIResponse
// @Router /api/books [post]
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var input models.BookInput
	if apiErr := decodeJSONBody(w, r, &input); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if err := catalog.ValidateInput(input); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	book, err := h.catalog.Create(r.Context(), input)
	if err != nil {
		if errors.Is(err, catalog.ErrDuplicate) {
			respondError(w, http.StatusBadRequest, "DUPLICATE_BOOK", "book already exists for this author", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "CREATE_FAILED", "failed to create book", err)
		return
	}

	respondSuccess(w, http.StatusCreated, book, started)
}

// UpdateBook replaces a book's fields.
// @Summary Update a book
// @Description Full update; same author auto-create and duplicate rules as create
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param request body models.BookInput true "Book payload"
// @Success 200 {object} models.APIResponse{data=models.Book}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/books/{id} [put]
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "book id must be a positive integer", nil)
		return
	}

	var input models.BookInput
	if apiErr := decodeJSONBody(w, r, &input); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}
	if err := catalog.ValidateInput(input); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	book, err := h.catalog.Update(r.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			respondError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "book not found", nil)
		case errors.Is(err, catalog.ErrDuplicate):
			respondError(w, http.StatusBadRequest, "DUPLICATE_BOOK", "book already exists for this author", nil)
		default:
			respondError(w, http.StatusInternalServerError, "UPDATE_FAILED", "failed to update book", err)
		}
		return
	}

	respondSuccess(w, http.StatusOK, book, started)
}

// DeleteBook removes a book.
// @Summary Delete a book
// @Tags Books
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 204 "No Content"
// @Failure 404 {object} models.APIResponse
// @Router /api/books/{id} [delete]
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "book id must be a positive integer", nil)
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respondError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "book not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DELETE_FAILED", "failed to delete book", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkImportBooks imports books from a CSV or JSON payload.
// @Summary Bulk import books
// @Description Accepts CSV (header must name title, published_year, genre, author_name in any order) or a JSON array; invalid rows are reported, valid rows are inserted
// @Tags Books
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv | json (inferred from Content-Type when omitted)"
// @Success 200 {object} models.APIResponse{data=models.ImportReport}
// @Failure 400 {object} models.APIResponse
// @Router /api/books/bulk-import [post]
func (h *Handler) BulkImportBooks(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	format := importFormat(r)
	if format == "" {
		respondError(w, http.StatusBadRequest, "UNKNOWN_FORMAT", "specify format=csv or format=json, or a matching Content-Type", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	report, err := h.catalog.BulkImport(r.Context(), format, r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "IMPORT_FAILED", err.Error(), nil)
		return
	}

	respondSuccess(w, http.StatusOK, report, started)
}

// importFormat resolves the bulk import format from the query parameter
// or, failing that, the Content-Type header.
func importFormat(r *http.Request) string {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case catalog.FormatCSV:
		return catalog.FormatCSV
	case catalog.FormatJSON:
		return catalog.FormatJSON
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "csv"):
		return catalog.FormatCSV
	case strings.Contains(ct, "json"):
		return catalog.FormatJSON
	}
	return ""
}

// ListAuthors returns all authors with their book counts.
// @Summary List authors
// @Tags Authors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.APIResponse{data=[]models.Author}
// @Router /api/authors [get]
func (h *Handler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	authors, err := h.catalog.Authors(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "LIST_FAILED", "failed to list authors", err)
		return
	}

	respondSuccess(w, http.StatusOK, authors, started)
}
