// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package models

import "time"

// APIResponse is the envelope for every JSON response.
//
// Successful responses carry Data and Metadata; failures carry Error.
// Status is "success" or "error" so clients can branch without
// inspecting HTTP codes.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata *Metadata   `json:"metadata,omitempty"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
}

// APIError describes a failure in a machine-readable way.
//
// Code is a stable identifier (VALIDATION_ERROR, NOT_FOUND, ...);
// Message is human-readable; Details carries structured context such
// as per-field validation messages.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Pagination describes the window of a list response.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Pages int `json:"pages"`
}

// NewPagination computes the page count from the total and size.
func NewPagination(total, page, size int) Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Pagination{Total: total, Page: page, Size: size, Pages: pages}
}

// BookList is the payload of the book listing endpoint.
type BookList struct {
	Items      []Book     `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// UserList is the payload of the admin user listing endpoint.
type UserList struct {
	Items      []User     `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// ImportReport summarises a bulk import run.
type ImportReport struct {
	TotalProcessed    int      `json:"total_processed"`
	SuccessfulImports int      `json:"successful_imports"`
	FailedImports     int      `json:"failed_imports"`
	Errors            []string `json:"errors"`
}
