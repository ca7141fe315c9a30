// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package database

import (
	"context"
	"time"

	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/models"
)

// GetOrCreateAuthor resolves an author by name, creating the row when
// missing. Matching is case-insensitive against the unique index on
// lower(name): an existing row keeps its stored casing, and concurrent
// creates of the same name converge on one row.
func (db *DB) GetOrCreateAuthor(ctx context.Context, name string) (models.Author, error) {
	const query = `
		INSERT INTO authors (name)
		VALUES ($1)
		ON CONFLICT (lower(name)) DO UPDATE SET name = authors.name
		RETURNING id, name, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var author models.Author
	start := time.Now()
	err := db.conn.QueryRowxContext(ctx, query, name).
		Scan(&author.ID, &author.Name, &author.CreatedAt, &author.UpdatedAt)
	metrics.RecordDBQuery("upsert", "authors", time.Since(start))
	return author, err
}

// ListAuthors returns every author with their catalog book count.
func (db *DB) ListAuthors(ctx context.Context) ([]models.Author, error) {
	const query = `
		SELECT a.id, a.name, count(b.id) AS book_count,
		       a.created_at, a.updated_at
		FROM authors a
		LEFT JOIN books b ON b.author_id = a.id
		GROUP BY a.id
		ORDER BY a.name ASC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	authors := []models.Author{}
	start := time.Now()
	err := db.conn.SelectContext(ctx, &authors, query)
	metrics.RecordDBQuery("select", "authors", time.Since(start))
	return authors, err
}
