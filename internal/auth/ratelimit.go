// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package auth

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shelfmark/shelfmark/internal/cache"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/metrics"
)

// exemptPaths bypass rate limiting: health checks, docs, and metrics
// scrapes must not consume client quota.
var exemptPaths = []string{"/api/ping", "/swagger", "/metrics"}

// clientWindows holds the two sliding windows tracked per client IP.
type clientWindows struct {
	minute *cache.SlidingWindowCounter
	hour   *cache.SlidingWindowCounter
}

// SlidingWindowLimiter enforces per-minute and per-hour request limits
// per client IP. Stale clients are evicted by a background sweep.
type SlidingWindowLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientWindows
	perMinute int64
	perHour   int64
	disabled  bool
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewSlidingWindowLimiter builds the limiter from configuration and
// starts the eviction sweep.
func NewSlidingWindowLimiter(cfg *config.RateLimitConfig) *SlidingWindowLimiter {
	l := &SlidingWindowLimiter{
		clients:   make(map[string]*clientWindows),
		perMinute: int64(cfg.PerMinute),
		perHour:   int64(cfg.PerHour),
		disabled:  cfg.Disabled,
		stop:      make(chan struct{}),
	}
	go l.sweep(5 * time.Minute)
	return l
}

// Allow records one request for the client and reports whether it is
// within both windows.
func (l *SlidingWindowLimiter) Allow(clientIP string) bool {
	if l.disabled {
		return true
	}

	l.mu.Lock()
	cw, ok := l.clients[clientIP]
	if !ok {
		cw = &clientWindows{
			minute: cache.NewSlidingWindowCounter(time.Minute, 6),
			hour:   cache.NewSlidingWindowCounter(time.Hour, 12),
		}
		l.clients[clientIP] = cw
	}
	l.mu.Unlock()

	if cw.minute.Count() >= l.perMinute || cw.hour.Count() >= l.perHour {
		return false
	}
	cw.minute.IncrementOne()
	cw.hour.IncrementOne()
	return true
}

// Stop terminates the eviction sweep.
func (l *SlidingWindowLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *SlidingWindowLimiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for ip, cw := range l.clients {
				if cw.hour.IdleFor() > time.Hour {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// RateLimit applies the sliding-window limits to a handler. Rejected
// requests get 429 with a Retry-After hint.
func (m *Middleware) RateLimit(limiter *SlidingWindowLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, p := range exemptPaths {
			if strings.HasPrefix(r.URL.Path, p) {
				next(w, r)
				return
			}
		}

		if !limiter.Allow(m.ClientIP(r)) {
			metrics.RateLimitRejectionsTotal.Inc()
			w.Header().Set("Retry-After", "60")
			writeAuthError(w, http.StatusTooManyRequests, "RATE_LIMITED",
				"Too many requests, slow down")
			return
		}
		next(w, r)
	}
}

// LoginLimiter is a tighter token-bucket limiter for the login
// endpoint, slowing credential stuffing independently of the general
// request quota.
type LoginLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*loginLimiterEntry
	rate     rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

type loginLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLoginLimiter allows perMinute attempts per client IP with a small
// burst.
func NewLoginLimiter(perMinute int) *LoginLimiter {
	l := &LoginLimiter{
		limiters: make(map[string]*loginLimiterEntry),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(10 * time.Minute)
	return l
}

// Allow reports whether the client may attempt a login now.
func (l *LoginLimiter) Allow(clientIP string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[clientIP]
	if !ok {
		entry = &loginLimiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[clientIP] = entry
	}
	entry.lastAccess = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

// Stop terminates the cleanup loop.
func (l *LoginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *LoginLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for ip, entry := range l.limiters {
				if time.Since(entry.lastAccess) > interval {
					delete(l.limiters, ip)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// RateLimitLogin applies the login limiter to a handler.
func (m *Middleware) RateLimitLogin(limiter *LoginLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(m.ClientIP(r)) {
			metrics.RateLimitRejectionsTotal.Inc()
			w.Header().Set("Retry-After", "60")
			writeAuthError(w, http.StatusTooManyRequests, "RATE_LIMITED",
				"Too many login attempts, try again later")
			return
		}
		next(w, r)
	}
}
