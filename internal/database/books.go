// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/models"
)

// bookSortColumns whitelists sort keys. Values are interpolated into
// ORDER BY, so they must never come from user input directly.
var bookSortColumns = map[string]string{
	"title":          "b.title",
	"published_year": "b.published_year",
	"author":         "a.name",
}

// ListBooks returns one page of books matching the filters, plus the
// total match count. Page is zero-based.
func (db *DB) ListBooks(ctx context.Context, f models.BookFilters) ([]models.Book, int, error) {
	sortCol, ok := bookSortColumns[f.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort key %q", f.SortBy)
	}
	sortDir := "ASC"
	if strings.EqualFold(f.SortOrder, "desc") {
		sortDir = "DESC"
	}

	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Title != "" {
		where = append(where, fmt.Sprintf("b.title ILIKE %s", arg("%"+f.Title+"%")))
	}
	if f.Author != "" {
		where = append(where, fmt.Sprintf("a.name ILIKE %s", arg("%"+f.Author+"%")))
	}
	if f.Genre != "" {
		where = append(where, fmt.Sprintf("b.genre = %s", arg(string(f.Genre))))
	}
	if f.YearMin > 0 {
		where = append(where, fmt.Sprintf("b.published_year >= %s", arg(f.YearMin)))
	}
	if f.YearMax > 0 {
		where = append(where, fmt.Sprintf("b.published_year <= %s", arg(f.YearMax)))
	}

	// count(*) OVER() avoids a second round trip for the total.
	query := fmt.Sprintf(`
		SELECT count(*) OVER() AS total,
		       b.id, b.title, b.published_year, b.genre, b.author_id,
		       a.name AS author_name, b.created_at, b.updated_at
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE %s
		ORDER BY %s %s, b.id ASC
		LIMIT %s OFFSET %s`,
		strings.Join(where, " AND "), sortCol, sortDir,
		arg(f.Size), arg(f.Page*f.Size))

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryxContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "books", time.Since(start))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	total := 0
	books := []models.Book{}
	for rows.Next() {
		var row struct {
			Total int `db:"total"`
			models.Book
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, 0, err
		}
		total = row.Total
		books = append(books, row.Book)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

// GetBook fetches a single book with its author name.
func (db *DB) GetBook(ctx context.Context, id int64) (models.Book, error) {
	const query = `
		SELECT b.id, b.title, b.published_year, b.genre, b.author_id,
		       a.name AS author_name, b.created_at, b.updated_at
		FROM books b
		JOIN authors a ON a.id = b.author_id
		WHERE b.id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var book models.Book
	start := time.Now()
	err := db.conn.GetContext(ctx, &book, query, id)
	metrics.RecordDBQuery("select", "books", time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Book{}, ErrNotFound
	}
	return book, err
}

// CreateBook inserts a book and fills the generated fields. A unique
// violation on (lower(title), author_id) surfaces as ErrDuplicateBook.
func (db *DB) CreateBook(ctx context.Context, book *models.Book) error {
	const query = `
		INSERT INTO books (title, published_year, genre, author_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	err := db.conn.QueryRowxContext(ctx, query,
		book.Title, book.PublishedYear, string(book.Genre), book.AuthorID).
		Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	metrics.RecordDBQuery("insert", "books", time.Since(start))
	if isUniqueViolation(err) {
		return ErrDuplicateBook
	}
	return err
}

// UpdateBook replaces all mutable fields of a book.
func (db *DB) UpdateBook(ctx context.Context, book *models.Book) error {
	const query = `
		UPDATE books
		SET title = $1, published_year = $2, genre = $3, author_id = $4,
		    updated_at = now()
		WHERE id = $5
		RETURNING updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	err := db.conn.QueryRowxContext(ctx, query,
		book.Title, book.PublishedYear, string(book.Genre), book.AuthorID, book.ID).
		Scan(&book.UpdatedAt)
	metrics.RecordDBQuery("update", "books", time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return ErrDuplicateBook
	}
	return err
}

// DeleteBook removes a book. Missing rows surface as ErrNotFound.
func (db *DB) DeleteBook(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	metrics.RecordDBQuery("delete", "books", time.Since(start))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// BookExists reports whether another book with the same title (case
// insensitive) already exists for the author. excludeID skips the book
// being updated; pass 0 for creates.
func (db *DB) BookExists(ctx context.Context, title string, authorID, excludeID int64) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM books
			WHERE lower(title) = lower($1) AND author_id = $2 AND id <> $3
		)`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	start := time.Now()
	err := db.conn.GetContext(ctx, &exists, query, title, authorID, excludeID)
	metrics.RecordDBQuery("select", "books", time.Since(start))
	return exists, err
}

// isUniqueViolation reports whether err is Postgres error 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
