// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package cache holds the Redis-backed token blacklist and the
// in-process counters used by the rate limiter.
package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shelfmark/shelfmark/internal/config"
)

// NewRedisClient connects to Redis and verifies connectivity.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Pinger adapts a Redis client to an error-returning Ping, matching
// the health probe's dependency interface.
type Pinger struct {
	client *redis.Client
}

// NewPinger wraps a Redis client for health probing.
func NewPinger(client *redis.Client) Pinger {
	return Pinger{client: client}
}

// Ping checks Redis reachability.
func (p Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
