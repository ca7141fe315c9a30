// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// blacklistPrefix namespaces revoked token IDs in Redis.
const blacklistPrefix = "blacklist:"

// TokenBlacklist stores revoked JWT IDs (jti) until their tokens would
// have expired anyway. Logout and refresh rotation write here; the
// authentication middleware reads.
type TokenBlacklist struct {
	client *redis.Client
}

// NewTokenBlacklist wraps a Redis client.
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

// Revoke marks a token ID as revoked for ttl. A non-positive ttl means
// the token already expired and nothing needs to be stored.
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether a token ID has been revoked.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
