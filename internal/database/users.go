// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/models"
)

const userColumns = `id, email, hashed_password, role, is_2fa_enabled,
	otp_secret, created_at, updated_at, last_login`

// CreateUser inserts an account. Email uniqueness violations surface
// as ErrDuplicateEmail.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (email, hashed_password, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	err := db.conn.QueryRowxContext(ctx, query,
		user.Email, user.HashedPassword, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	metrics.RecordDBQuery("insert", "users", time.Since(start))
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// GetUserByEmail fetches an account by its lowercased email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.User
	start := time.Now()
	err := db.conn.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	metrics.RecordDBQuery("select", "users", time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

// GetUserByID fetches an account by primary key.
func (db *DB) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var user models.User
	start := time.Now()
	err := db.conn.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	metrics.RecordDBQuery("select", "users", time.Since(start))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

// ListUsers returns one page of accounts ordered by id, plus the total
// account count. Page is zero-based.
func (db *DB) ListUsers(ctx context.Context, page, size int) ([]models.User, int, error) {
	query := `
		SELECT count(*) OVER() AS total, ` + userColumns + `
		FROM users
		ORDER BY id ASC
		LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryxContext(ctx, query, size, page*size)
	metrics.RecordDBQuery("select", "users", time.Since(start))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	total := 0
	users := []models.User{}
	for rows.Next() {
		var row struct {
			Total int `db:"total"`
			models.User
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, 0, err
		}
		total = row.Total
		users = append(users, row.User)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUserRole sets an account's role.
func (db *DB) UpdateUserRole(ctx context.Context, id int64, role string) error {
	return db.execOne(ctx, "update",
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, role, id)
}

// DeleteUser removes an account.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	return db.execOne(ctx, "delete", `DELETE FROM users WHERE id = $1`, id)
}

// SetLastLogin stamps a successful authentication.
func (db *DB) SetLastLogin(ctx context.Context, id int64) error {
	return db.execOne(ctx, "update",
		`UPDATE users SET last_login = now() WHERE id = $1`, id)
}

// Set2FA enables or disables two-factor authentication. Disabling
// clears the stored secret.
func (db *DB) Set2FA(ctx context.Context, id int64, enabled bool, secret string) error {
	return db.execOne(ctx, "update",
		`UPDATE users SET is_2fa_enabled = $1, otp_secret = $2, updated_at = now() WHERE id = $3`,
		enabled, secret, id)
}

// execOne runs a statement that must affect exactly one users row.
func (db *DB) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, args...)
	metrics.RecordDBQuery(op, "users", time.Since(start))
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
