// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package catalog implements the book domain rules: validation,
// author resolution, duplicate detection, and bulk import.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shelfmark/shelfmark/internal/models"
)

var (
	// ErrDuplicate means a book with the same title (case insensitive)
	// already exists for the author.
	ErrDuplicate = errors.New("book already exists for this author")

	// ErrNotFound mirrors the store's not-found for callers that only
	// import catalog.
	ErrNotFound = errors.New("book not found")

	// ErrBadSort rejects sort fields outside the whitelist before the
	// query is built.
	ErrBadSort = errors.New("sort_by must be one of title, published_year, author")
)

// Store is the slice of the database layer the catalog needs.
// Satisfied by *database.DB.
type Store interface {
	ListBooks(ctx context.Context, f models.BookFilters) ([]models.Book, int, error)
	GetBook(ctx context.Context, id int64) (models.Book, error)
	CreateBook(ctx context.Context, book *models.Book) error
	UpdateBook(ctx context.Context, book *models.Book) error
	DeleteBook(ctx context.Context, id int64) error
	BookExists(ctx context.Context, title string, authorID, excludeID int64) (bool, error)
	GetOrCreateAuthor(ctx context.Context, name string) (models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
}

// Service holds the catalog rules and pagination bounds.
type Service struct {
	store           Store
	storeNotFound   error
	defaultPageSize int
	maxPageSize     int
}

// NewService wires the catalog service. storeNotFound is the store's
// not-found sentinel, mapped to ErrNotFound at this boundary.
func NewService(store Store, storeNotFound error, defaultPageSize, maxPageSize int) *Service {
	return &Service{
		store:           store,
		storeNotFound:   storeNotFound,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

// List returns one page of books. Filters are normalised here: page
// clamps to zero, size to [1, max], sort defaults to title ascending.
func (s *Service) List(ctx context.Context, f models.BookFilters) (models.BookList, error) {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 {
		f.Size = s.defaultPageSize
	}
	if f.Size > s.maxPageSize {
		f.Size = s.maxPageSize
	}
	if f.SortBy == "" {
		f.SortBy = "title"
	}
	switch f.SortBy {
	case "title", "published_year", "author":
	default:
		return models.BookList{}, ErrBadSort
	}
	if f.SortOrder == "" {
		f.SortOrder = "asc"
	}

	books, total, err := s.store.ListBooks(ctx, f)
	if err != nil {
		return models.BookList{}, err
	}
	return models.BookList{
		Items:      books,
		Pagination: models.NewPagination(total, f.Page, f.Size),
	}, nil
}

// Get fetches one book.
func (s *Service) Get(ctx context.Context, id int64) (models.Book, error) {
	book, err := s.store.GetBook(ctx, id)
	if errors.Is(err, s.storeNotFound) {
		return models.Book{}, ErrNotFound
	}
	return book, err
}

// Create validates the input, resolves the author by name (creating it
// when new), rejects duplicates, and inserts the book.
func (s *Service) Create(ctx context.Context, input models.BookInput) (models.Book, error) {
	if err := ValidateInput(input); err != nil {
		return models.Book{}, err
	}
	return s.upsert(ctx, 0, input)
}

// Update replaces a book's fields under the same rules as Create. The
// duplicate check excludes the book itself.
func (s *Service) Update(ctx context.Context, id int64, input models.BookInput) (models.Book, error) {
	if err := ValidateInput(input); err != nil {
		return models.Book{}, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return models.Book{}, err
	}
	return s.upsert(ctx, id, input)
}

// Delete removes a book.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.store.DeleteBook(ctx, id)
	if errors.Is(err, s.storeNotFound) {
		return ErrNotFound
	}
	return err
}

// Authors lists all authors with book counts.
func (s *Service) Authors(ctx context.Context) ([]models.Author, error) {
	return s.store.ListAuthors(ctx)
}

func (s *Service) upsert(ctx context.Context, id int64, input models.BookInput) (models.Book, error) {
	genre, _ := models.ParseGenre(input.Genre)

	author, err := s.store.GetOrCreateAuthor(ctx, strings.TrimSpace(input.AuthorName))
	if err != nil {
		return models.Book{}, fmt.Errorf("failed to resolve author: %w", err)
	}

	exists, err := s.store.BookExists(ctx, strings.TrimSpace(input.Title), author.ID, id)
	if err != nil {
		return models.Book{}, err
	}
	if exists {
		return models.Book{}, ErrDuplicate
	}

	book := models.Book{
		ID:            id,
		Title:         strings.TrimSpace(input.Title),
		PublishedYear: input.PublishedYear,
		Genre:         genre,
		AuthorID:      author.ID,
		AuthorName:    author.Name,
	}

	if id == 0 {
		err = s.store.CreateBook(ctx, &book)
	} else {
		err = s.store.UpdateBook(ctx, &book)
	}
	if errors.Is(err, s.storeNotFound) {
		return models.Book{}, ErrNotFound
	}
	if err != nil {
		return models.Book{}, err
	}
	return book, nil
}

// ValidateInput checks one write payload against the domain rules.
// The returned error message is safe to show to clients.
func ValidateInput(input models.BookInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return errors.New("title is required")
	}
	if len(title) > 500 {
		return errors.New("title must be at most 500 characters")
	}

	author := strings.TrimSpace(input.AuthorName)
	if author == "" {
		return errors.New("author_name is required")
	}
	if len(author) > 200 {
		return errors.New("author_name must be at most 200 characters")
	}

	if _, err := models.ParseGenre(input.Genre); err != nil {
		return fmt.Errorf("invalid genre %q", input.Genre)
	}

	currentYear := time.Now().Year()
	if input.PublishedYear < models.MinPublishedYear || input.PublishedYear > currentYear {
		return fmt.Errorf("published_year must be between %d and %d", models.MinPublishedYear, currentYear)
	}
	return nil
}
