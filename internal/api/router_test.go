// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/models"
)

// fakeDirectory is an in-memory user store satisfying both
// auth.UserStore and UserDirectory.
type fakeDirectory struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: make(map[string]*models.User)}
}

func (f *fakeDirectory) Ping(context.Context) error { return nil }

func (f *fakeDirectory) CreateUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return database.ErrDuplicateEmail
	}
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.Email] = &clone
	return nil
}

func (f *fakeDirectory) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return models.User{}, database.ErrNotFound
	}
	return *user, nil
}

func (f *fakeDirectory) GetUserByID(_ context.Context, id int64) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			return *user, nil
		}
	}
	return models.User{}, database.ErrNotFound
}

func (f *fakeDirectory) ListUsers(_ context.Context, page, size int) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.User, 0, len(f.users))
	for _, user := range f.users {
		all = append(all, *user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := page * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *fakeDirectory) UpdateUserRole(_ context.Context, id int64, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			user.Role = role
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeDirectory) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, user := range f.users {
		if user.ID == id {
			delete(f.users, email)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeDirectory) SetLastLogin(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for _, user := range f.users {
		if user.ID == id {
			user.LastLogin = &now
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeDirectory) Set2FA(_ context.Context, id int64, enabled bool, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			user.Is2FAEnabled = enabled
			user.OTPSecret = secret
			return nil
		}
	}
	return database.ErrNotFound
}

// fakeBooks is an in-memory catalog store.
type fakeBooks struct {
	mu           sync.Mutex
	nextBookID   int64
	nextAuthorID int64
	books        map[int64]models.Book
	authors      map[string]models.Author
}

func newFakeBooks() *fakeBooks {
	return &fakeBooks{
		books:   make(map[int64]models.Book),
		authors: make(map[string]models.Author),
	}
}

func (f *fakeBooks) ListBooks(_ context.Context, filters models.BookFilters) ([]models.Book, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.Book, 0, len(f.books))
	for _, b := range f.books {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := filters.Page * filters.Size
	if start > len(all) {
		start = len(all)
	}
	end := start + filters.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(f.books), nil
}

func (f *fakeBooks) GetBook(_ context.Context, id int64) (models.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return models.Book{}, database.ErrNotFound
	}
	return b, nil
}

func (f *fakeBooks) CreateBook(_ context.Context, book *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextBookID++
	book.ID = f.nextBookID
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	f.books[book.ID] = *book
	return nil
}

func (f *fakeBooks) UpdateBook(_ context.Context, book *models.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[book.ID]; !ok {
		return database.ErrNotFound
	}
	book.UpdatedAt = time.Now()
	f.books[book.ID] = *book
	return nil
}

func (f *fakeBooks) DeleteBook(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.books, id)
	return nil
}

func (f *fakeBooks) BookExists(_ context.Context, title string, authorID, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.ID != excludeID && b.AuthorID == authorID && strings.EqualFold(b.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBooks) GetOrCreateAuthor(_ context.Context, name string) (models.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.authors[name]; ok {
		return a, nil
	}
	f.nextAuthorID++
	a := models.Author{ID: f.nextAuthorID, Name: name}
	f.authors[name] = a
	return a, nil
}

func (f *fakeBooks) ListAuthors(_ context.Context) ([]models.Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]models.Author, 0, len(f.authors))
	for _, a := range f.authors {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// fakeBlacklist tracks revoked jtis in memory.
type fakeBlacklist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]bool)}
}

func (f *fakeBlacklist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[jti] = true
	return nil
}

func (f *fakeBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revoked[jti], nil
}

const testPassword = "password1234"

func newTestRouter(t *testing.T) (http.Handler, *fakeDirectory) {
	t.Helper()

	cfg := &config.Config{
		API: config.APIConfig{DefaultPageSize: 10, MaxPageSize: 100},
	}

	jwtMgr, err := auth.NewJWTManager("test-secret-key-for-router-tests", 30*time.Minute, 7*24*time.Hour, 5*time.Minute)
	if err != nil {
		t.Fatalf("NewJWTManager() error: %v", err)
	}

	dir := newFakeDirectory()
	blacklist := newFakeBlacklist()
	authSvc := auth.NewService(dir, blacklist, jwtMgr, 4, "Shelfmark")

	for _, seed := range []struct {
		email string
		role  string
	}{
		{"admin@example.com", models.RoleAdmin},
		{"reader@example.com", models.RoleUser},
	} {
		user, err := authSvc.Register(context.Background(), seed.email, testPassword)
		if err != nil {
			t.Fatalf("seed Register(%s) error: %v", seed.email, err)
		}
		if seed.role != models.RoleUser {
			if err := dir.UpdateUserRole(context.Background(), user.ID, seed.role); err != nil {
				t.Fatalf("seed role update error: %v", err)
			}
		}
	}

	catalogSvc := catalog.NewService(newFakeBooks(), database.ErrNotFound, cfg.API.DefaultPageSize, cfg.API.MaxPageSize)

	handler := NewHandler(dir, cfg, authSvc, catalogSvc)
	mw := auth.NewMiddleware(jwtMgr, blacklist, []string{"http://localhost:3000"}, nil)
	return NewRouter(handler, mw, nil, nil).Setup(), dir
}

// do performs a request against the router and decodes the envelope.
func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var resp models.APIResponse
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode envelope from %s %s: %v (body %q)", method, path, err, w.Body.String())
		}
	}
	return w, resp
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()

	w, resp := do(t, h, http.MethodPost, "/api/auth/login", "", models.LoginRequest{
		Email:    email,
		Password: testPassword,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}

	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("login data type %T", resp.Data)
	}
	token, _ := data["access_token"].(string)
	if token == "" {
		t.Fatal("login returned no access token")
	}
	return token
}

func TestPing(t *testing.T) {
	h, _ := newTestRouter(t)

	w, resp := do(t, h, http.MethodGet, "/api/ping", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp.Status != "success" {
		t.Errorf("status field = %q", resp.Status)
	}
	data := resp.Data.(map[string]interface{})
	if data["message"] != "pong" {
		t.Errorf("message = %v, want pong", data["message"])
	}
}

func TestBooksRequireAuth(t *testing.T) {
	h, _ := newTestRouter(t)

	w, resp := do(t, h, http.MethodGet, "/api/books", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	h, _ := newTestRouter(t)

	w, resp := do(t, h, http.MethodGet, "/no/such/route", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestRegisterValidationDetails(t *testing.T) {
	h, _ := newTestRouter(t)

	w, resp := do(t, h, http.MethodPost, "/api/auth/register", "", models.RegisterRequest{
		Email:    "not-an-email",
		Password: "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("error = %+v, want VALIDATION_ERROR", resp.Error)
	}

	details, ok := resp.Error.Details.([]interface{})
	if !ok || len(details) != 2 {
		t.Fatalf("details = %#v, want entries for email and password", resp.Error.Details)
	}
	fields := map[string]bool{}
	for _, d := range details {
		entry := d.(map[string]interface{})
		fields[entry["field"].(string)] = true
	}
	if !fields["email"] || !fields["password"] {
		t.Errorf("details fields = %v, want email and password", fields)
	}
}

func TestBookLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)
	reader := login(t, h, "reader@example.com")
	admin := login(t, h, "admin@example.com")

	input := models.BookInput{
		Title:         "The Left Hand of Darkness",
		PublishedYear: 1969,
		Genre:         "Science",
		AuthorName:    "Ursula K. Le Guin",
	}

	w, resp := do(t, h, http.MethodPost, "/api/books", reader, input)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	created := resp.Data.(map[string]interface{})
	id := int64(created["id"].(float64))
	if id == 0 {
		t.Fatal("created book has no id")
	}

	// Duplicate title for the same author is rejected.
	w, resp = do(t, h, http.MethodPost, "/api/books", reader, input)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	if resp.Error.Code != "DUPLICATE_BOOK" {
		t.Errorf("duplicate error code = %q", resp.Error.Code)
	}

	w, resp = do(t, h, http.MethodGet, fmt.Sprintf("/api/books/%d", id), reader, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	got := resp.Data.(map[string]interface{})
	if got["title"] != input.Title {
		t.Errorf("title = %v", got["title"])
	}

	input.PublishedYear = 1970
	w, _ = do(t, h, http.MethodPut, fmt.Sprintf("/api/books/%d", id), reader, input)
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}

	w, resp = do(t, h, http.MethodGet, "/api/books?size=5", reader, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := resp.Data.(map[string]interface{})
	pagination := list["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 1 {
		t.Errorf("total = %v, want 1", pagination["total"])
	}

	// Delete is admin only.
	w, resp = do(t, h, http.MethodDelete, fmt.Sprintf("/api/books/%d", id), reader, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("reader delete status = %d, want 403", w.Code)
	}
	if resp.Error.Code != "FORBIDDEN" {
		t.Errorf("error code = %q", resp.Error.Code)
	}

	w, _ = do(t, h, http.MethodDelete, fmt.Sprintf("/api/books/%d", id), admin, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("admin delete status = %d", w.Code)
	}

	w, _ = do(t, h, http.MethodGet, fmt.Sprintf("/api/books/%d", id), reader, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", w.Code)
	}
}

func TestBulkImportAdminOnly(t *testing.T) {
	h, _ := newTestRouter(t)
	reader := login(t, h, "reader@example.com")
	admin := login(t, h, "admin@example.com")

	csv := "title,published_year,genre,author_name\n" +
		"Dune,1965,Science,Frank Herbert\n" +
		"Bad Year,abc,Science,Frank Herbert\n"

	send := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/books/bulk-import?format=csv", strings.NewReader(csv))
		r.Header.Set("Content-Type", "text/csv")
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	if w := send(reader); w.Code != http.StatusForbidden {
		t.Fatalf("reader import status = %d, want 403", w.Code)
	}

	w := send(admin)
	if w.Code != http.StatusOK {
		t.Fatalf("admin import status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	report := resp.Data.(map[string]interface{})
	if report["total_processed"].(float64) != 2 {
		t.Errorf("total_processed = %v", report["total_processed"])
	}
	if report["successful_imports"].(float64) != 1 {
		t.Errorf("successful_imports = %v", report["successful_imports"])
	}
	if report["failed_imports"].(float64) != 1 {
		t.Errorf("failed_imports = %v", report["failed_imports"])
	}
}

func TestUserEndpoints(t *testing.T) {
	h, dir := newTestRouter(t)
	reader := login(t, h, "reader@example.com")
	admin := login(t, h, "admin@example.com")

	w, resp := do(t, h, http.MethodGet, "/api/users/me", reader, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	me := resp.Data.(map[string]interface{})
	if me["email"] != "reader@example.com" {
		t.Errorf("me email = %v", me["email"])
	}
	if _, leaked := me["hashed_password"]; leaked {
		t.Error("hashed_password leaked in profile response")
	}

	if w, _ := do(t, h, http.MethodGet, "/api/users", reader, nil); w.Code != http.StatusForbidden {
		t.Fatalf("reader list users status = %d, want 403", w.Code)
	}

	w, resp = do(t, h, http.MethodGet, "/api/users", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin list users status = %d", w.Code)
	}
	list := resp.Data.(map[string]interface{})
	if list["pagination"].(map[string]interface{})["total"].(float64) != 2 {
		t.Errorf("user total = %v, want 2", list["pagination"].(map[string]interface{})["total"])
	}

	readerUser, err := dir.GetUserByEmail(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("lookup reader: %v", err)
	}

	w, resp = do(t, h, http.MethodPut, fmt.Sprintf("/api/users/%d/role", readerUser.ID), admin,
		models.UpdateRoleRequest{Role: models.RoleAdmin})
	if w.Code != http.StatusOK {
		t.Fatalf("role update status = %d, body %s", w.Code, w.Body.String())
	}
	if resp.Data.(map[string]interface{})["role"] != models.RoleAdmin {
		t.Errorf("updated role = %v", resp.Data.(map[string]interface{})["role"])
	}

	adminUser, err := dir.GetUserByEmail(context.Background(), "admin@example.com")
	if err != nil {
		t.Fatalf("lookup admin: %v", err)
	}

	w, resp = do(t, h, http.MethodDelete, fmt.Sprintf("/api/users/%d", adminUser.ID), admin, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self delete status = %d, want 400", w.Code)
	}
	if resp.Error.Code != "CANNOT_DELETE_SELF" {
		t.Errorf("error code = %q", resp.Error.Code)
	}

	if w, _ := do(t, h, http.MethodDelete, fmt.Sprintf("/api/users/%d", readerUser.ID), admin, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete reader status = %d", w.Code)
	}
}

func TestLogoutRevokesAccess(t *testing.T) {
	h, _ := newTestRouter(t)
	token := login(t, h, "reader@example.com")

	if w, _ := do(t, h, http.MethodGet, "/api/books", token, nil); w.Code != http.StatusOK {
		t.Fatalf("pre-logout list status = %d", w.Code)
	}

	if w, _ := do(t, h, http.MethodPost, "/api/auth/logout", token, nil); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d", w.Code)
	}

	if w, _ := do(t, h, http.MethodGet, "/api/books", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout list status = %d, want 401", w.Code)
	}
}

func TestInvalidGenreQuery(t *testing.T) {
	h, _ := newTestRouter(t)
	token := login(t, h, "reader@example.com")

	w, resp := do(t, h, http.MethodGet, "/api/books?genre=Horror", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if resp.Error.Code != "INVALID_GENRE" {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}
