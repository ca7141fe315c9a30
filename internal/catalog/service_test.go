// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shelfmark/shelfmark/internal/models"
)

var errFakeNotFound = errors.New("fake: not found")

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	mu         sync.Mutex
	books      map[int64]models.Book
	authors    map[string]models.Author
	nextBook   int64
	nextAuthor int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:      make(map[int64]models.Book),
		authors:    make(map[string]models.Author),
		nextBook:   1,
		nextAuthor: 1,
	}
}

func (f *fakeStore) ListBooks(_ context.Context, filters models.BookFilters) ([]models.Book, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []models.Book
	for _, b := range f.books {
		if filters.Genre != "" && b.Genre != filters.Genre {
			continue
		}
		if filters.Title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(filters.Title)) {
			continue
		}
		if filters.YearMin > 0 && b.PublishedYear < filters.YearMin {
			continue
		}
		if filters.YearMax > 0 && b.PublishedYear > filters.YearMax {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })

	total := len(all)
	start := filters.Page * filters.Size
	if start > total {
		start = total
	}
	end := start + filters.Size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeStore) GetBook(_ context.Context, id int64) (models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.books[id]; ok {
		return b, nil
	}
	return models.Book{}, errFakeNotFound
}

func (f *fakeStore) CreateBook(_ context.Context, book *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	book.ID = f.nextBook
	f.nextBook++
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	f.books[book.ID] = *book
	return nil
}

func (f *fakeStore) UpdateBook(_ context.Context, book *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[book.ID]; !ok {
		return errFakeNotFound
	}
	book.UpdatedAt = time.Now()
	f.books[book.ID] = *book
	return nil
}

func (f *fakeStore) DeleteBook(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[id]; !ok {
		return errFakeNotFound
	}
	delete(f.books, id)
	return nil
}

func (f *fakeStore) BookExists(_ context.Context, title string, authorID, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, b := range f.books {
		if id != excludeID && b.AuthorID == authorID && strings.EqualFold(b.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetOrCreateAuthor(_ context.Context, name string) (models.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Case-insensitive resolution, matching the lower(name) index; the
	// first-seen casing is kept.
	key := strings.ToLower(name)
	if a, ok := f.authors[key]; ok {
		return a, nil
	}
	a := models.Author{ID: f.nextAuthor, Name: name}
	f.nextAuthor++
	f.authors[key] = a
	return a, nil
}

func (f *fakeStore) ListAuthors(_ context.Context) ([]models.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var authors []models.Author
	for _, a := range f.authors {
		authors = append(authors, a)
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })
	return authors, nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, errFakeNotFound, 10, 100), store
}

func validInput() models.BookInput {
	return models.BookInput{
		Title:         "1984",
		PublishedYear: 1949,
		Genre:         "Fiction",
		AuthorName:    "George Orwell",
	}
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	book, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if book.ID == 0 {
		t.Error("Create() did not assign an id")
	}
	if book.AuthorName != "George Orwell" {
		t.Errorf("Create() author_name = %q, want George Orwell", book.AuthorName)
	}
	if book.Genre != models.GenreFiction {
		t.Errorf("Create() genre = %q, want canonical Fiction", book.Genre)
	}
}

func TestCreateDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Same title in different case, same author.
	dup := validInput()
	dup.Title = "1984 "
	if _, err := svc.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() duplicate error = %v, want ErrDuplicate", err)
	}

	// Same title, different author is fine.
	other := validInput()
	other.AuthorName = "Someone Else"
	if _, err := svc.Create(ctx, other); err != nil {
		t.Errorf("Create() with different author error = %v", err)
	}
}

func TestCreateDuplicateCaseVariantAuthor(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, validInput()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A case-variant author name resolves to the same author row, so
	// the duplicate check still fires.
	dup := validInput()
	dup.Title = "1984"
	dup.AuthorName = "george orwell"
	if _, err := svc.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() cross-case duplicate error = %v, want ErrDuplicate", err)
	}
	if len(store.authors) != 1 {
		t.Errorf("store has %d authors, want 1", len(store.authors))
	}
}

func TestValidateInput(t *testing.T) {
	currentYear := time.Now().Year()

	tests := []struct {
		name    string
		mutate  func(*models.BookInput)
		wantErr string
	}{
		{name: "valid", mutate: func(*models.BookInput) {}},
		{
			name:    "empty title",
			mutate:  func(i *models.BookInput) { i.Title = "  " },
			wantErr: "title is required",
		},
		{
			name:    "title too long",
			mutate:  func(i *models.BookInput) { i.Title = strings.Repeat("x", 501) },
			wantErr: "at most 500",
		},
		{
			name:    "empty author",
			mutate:  func(i *models.BookInput) { i.AuthorName = "" },
			wantErr: "author_name is required",
		},
		{
			name:    "unknown genre",
			mutate:  func(i *models.BookInput) { i.Genre = "Steampunk" },
			wantErr: "invalid genre",
		},
		{
			name:    "year before 1800",
			mutate:  func(i *models.BookInput) { i.PublishedYear = 1605 },
			wantErr: "published_year",
		},
		{
			name:    "year in the future",
			mutate:  func(i *models.BookInput) { i.PublishedYear = currentYear + 1 },
			wantErr: "published_year",
		},
		{
			name:   "genre case insensitive",
			mutate: func(i *models.BookInput) { i.Genre = "fiction" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			err := ValidateInput(input)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateInput() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateInput() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	book, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated := validInput()
	updated.Title = "Nineteen Eighty-Four"
	got, err := svc.Update(ctx, book.ID, updated)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "Nineteen Eighty-Four" {
		t.Errorf("Update() title = %q", got.Title)
	}

	// Updating a book to its own title is not a duplicate.
	if _, err := svc.Update(ctx, book.ID, updated); err != nil {
		t.Errorf("Update() same title error = %v", err)
	}

	if _, err := svc.Update(ctx, 9999, validInput()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() missing book error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	book, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, book.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, book.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}

func TestListNormalisesFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, title := range []string{"Dune", "Emma", "Hamlet... almost"} {
		input := validInput()
		input.Title = title
		input.PublishedYear = 1950
		if _, err := svc.Create(ctx, input); err != nil {
			t.Fatalf("Create(%q) error = %v", title, err)
		}
	}

	list, err := svc.List(ctx, models.BookFilters{Page: -5, Size: 0})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Pagination.Page != 0 {
		t.Errorf("Pagination.Page = %d, want 0", list.Pagination.Page)
	}
	if list.Pagination.Size != 10 {
		t.Errorf("Pagination.Size = %d, want default 10", list.Pagination.Size)
	}
	if list.Pagination.Total != 3 {
		t.Errorf("Pagination.Total = %d, want 3", list.Pagination.Total)
	}
	if list.Pagination.Pages != 1 {
		t.Errorf("Pagination.Pages = %d, want 1", list.Pagination.Pages)
	}

	list, err = svc.List(ctx, models.BookFilters{Size: 1000})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Pagination.Size != 100 {
		t.Errorf("Pagination.Size = %d, want clamped to 100", list.Pagination.Size)
	}
}

func TestListRejectsUnknownSortField(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.List(context.Background(), models.BookFilters{SortBy: "isbn"})
	if !errors.Is(err, ErrBadSort) {
		t.Errorf("List(sort_by=isbn) error = %v, want ErrBadSort", err)
	}
}
