// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package models defines the domain types shared across the store,
// service, and HTTP layers.
package models

import "time"

// MinPublishedYear is the lower bound for published_year. The upper
// bound is the current year, checked at validation time.
const MinPublishedYear = 1800

// Book is a catalog entry. AuthorName is populated by joins on reads
// and is not a column of the books table.
type Book struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	PublishedYear int       `json:"published_year" db:"published_year"`
	Genre         Genre     `json:"genre" db:"genre"`
	AuthorID      int64     `json:"author_id" db:"author_id"`
	AuthorName    string    `json:"author_name" db:"author_name"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Author is a book author. Authors are created implicitly when a book
// names an author that does not yet exist.
type Author struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	BookCount int       `json:"book_count" db:"book_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// BookInput is the write model for creates, updates, and bulk import
// rows. The author is referenced by name and resolved by the service.
type BookInput struct {
	Title         string `json:"title" validate:"required,max=500"`
	PublishedYear int    `json:"published_year" validate:"required"`
	Genre         string `json:"genre" validate:"required"`
	AuthorName    string `json:"author_name" validate:"required,max=200"`
}

// BookFilters narrows and orders the book listing. Page is zero-based.
type BookFilters struct {
	Title     string
	Author    string
	Genre     Genre
	YearMin   int
	YearMax   int
	Page      int
	Size      int
	SortBy    string
	SortOrder string
}
