// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBulkImportCSV(t *testing.T) {
	svc, store := newTestService()

	payload := strings.Join([]string{
		"title,published_year,genre,author_name",
		"1984,1949,Fiction,George Orwell",
		"Animal Farm,1945,Fiction,George Orwell",
		"Bad Year,notayear,Fiction,George Orwell",
		"No Genre,1950,Steampunk,George Orwell",
		"1984,1949,Fiction,George Orwell",
	}, "\n")

	report, err := svc.BulkImport(context.Background(), FormatCSV, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("BulkImport() error = %v", err)
	}

	if report.TotalProcessed != 5 {
		t.Errorf("TotalProcessed = %d, want 5", report.TotalProcessed)
	}
	if report.SuccessfulImports != 2 {
		t.Errorf("SuccessfulImports = %d, want 2", report.SuccessfulImports)
	}
	if report.FailedImports != 3 {
		t.Errorf("FailedImports = %d, want 3", report.FailedImports)
	}
	if len(report.Errors) != 3 {
		t.Fatalf("Errors = %v, want 3 entries", report.Errors)
	}
	if !strings.HasPrefix(report.Errors[0], "Row 3:") {
		t.Errorf("Errors[0] = %q, want Row 3 prefix", report.Errors[0])
	}
	if !strings.HasPrefix(report.Errors[2], "Row 5:") || !strings.Contains(report.Errors[2], "already exists") {
		t.Errorf("Errors[2] = %q, want Row 5 duplicate", report.Errors[2])
	}

	if len(store.books) != 2 {
		t.Errorf("store has %d books, want 2", len(store.books))
	}
}

func TestBulkImportCSVHeaderRequired(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.BulkImport(context.Background(), FormatCSV,
		strings.NewReader("1984,1949,Fiction,George Orwell\n"))
	if err == nil || !strings.Contains(err.Error(), "header") {
		t.Errorf("BulkImport() error = %v, want header error", err)
	}
}

func TestBulkImportCSVHeaderAnyOrder(t *testing.T) {
	svc, store := newTestService()

	payload := strings.Join([]string{
		"isbn,author_name,genre,title,published_year",
		"978-0441013593,Frank Herbert,Science,Dune,1965",
	}, "\n")

	report, err := svc.BulkImport(context.Background(), FormatCSV, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("BulkImport() error = %v", err)
	}
	if report.SuccessfulImports != 1 {
		t.Fatalf("report = %+v, want 1 success", report)
	}
	if got := store.books[1].Title; got != "Dune" {
		t.Errorf("imported title = %q, want Dune", got)
	}
	if got := store.books[1].AuthorName; got != "Frank Herbert" {
		t.Errorf("imported author = %q, want Frank Herbert", got)
	}
}

// stuckReader serves its payload and then fails every subsequent Read
// with the same error, like a request body that hit its size cap.
type stuckReader struct {
	data []byte
	err  error
}

func (r *stuckReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestBulkImportCSVReaderFailureAborts(t *testing.T) {
	svc, _ := newTestService()

	r := &stuckReader{
		data: []byte("title,published_year,genre,author_name\n1984,1949,Fiction,George Orwell\n"),
		err:  errors.New("http: request body too large"),
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.BulkImport(context.Background(), FormatCSV, r)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "request body too large") {
			t.Errorf("BulkImport() error = %v, want wrapped reader error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("BulkImport() did not return on a persistent reader error")
	}
}

func TestBulkImportJSON(t *testing.T) {
	svc, _ := newTestService()

	payload := `[
		{"title": "Dune", "published_year": 1965, "genre": "Science", "author_name": "Frank Herbert"},
		{"title": "", "published_year": 1965, "genre": "Science", "author_name": "Frank Herbert"}
	]`

	report, err := svc.BulkImport(context.Background(), FormatJSON, strings.NewReader(payload))
	if err != nil {
		t.Fatalf("BulkImport() error = %v", err)
	}
	if report.SuccessfulImports != 1 || report.FailedImports != 1 {
		t.Errorf("report = %+v, want 1 success and 1 failure", report)
	}
	if !strings.HasPrefix(report.Errors[0], "Row 2:") {
		t.Errorf("Errors[0] = %q, want Row 2 prefix", report.Errors[0])
	}
}

func TestBulkImportBadPayload(t *testing.T) {
	svc, _ := newTestService()

	if _, err := svc.BulkImport(context.Background(), FormatJSON, strings.NewReader("{not json")); err == nil {
		t.Error("BulkImport() with invalid JSON should fail")
	}
	if _, err := svc.BulkImport(context.Background(), "xml", strings.NewReader("")); err == nil {
		t.Error("BulkImport() with unknown format should fail")
	}
}
