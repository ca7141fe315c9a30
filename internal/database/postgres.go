// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package database implements the PostgreSQL persistence layer.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/shelfmark/shelfmark/internal/config"
)

// Sentinel errors returned by store methods. Callers branch with
// errors.Is and map them to HTTP responses at the API layer.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateBook  = errors.New("duplicate book for author")
	ErrDuplicateEmail = errors.New("email already registered")
)

// queryTimeout bounds every single store query.
const queryTimeout = 3 * time.Second

// DB wraps the connection pool and exposes the store methods.
type DB struct {
	conn *sqlx.DB
}

// New opens the connection pool and verifies connectivity.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// NewWithConn wraps an existing pool. Used by tests with sqlmock.
func NewWithConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies database connectivity, used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return db.conn.PingContext(ctx)
}
