// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/middleware"
)

// Router wires handlers, auth middleware, and rate limiters into a Chi
// routing tree.
type Router struct {
	handler      *Handler
	middleware   *auth.Middleware
	limiter      *auth.SlidingWindowLimiter
	loginLimiter *auth.LoginLimiter
}

// NewRouter creates a router. Either limiter may be nil when rate
// limiting is disabled.
func NewRouter(handler *Handler, mw *auth.Middleware, limiter *auth.SlidingWindowLimiter, loginLimiter *auth.LoginLimiter) *Router {
	return &Router{
		handler:      handler,
		middleware:   mw,
		limiter:      limiter,
		loginLimiter: loginLimiter,
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so it can be used with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// rateLimit applies the sliding-window limiter, or is a no-op when rate
// limiting is disabled.
func (rt *Router) rateLimit(next http.Handler) http.Handler {
	if rt.limiter == nil {
		return next
	}
	return rt.middleware.RateLimit(rt.limiter, next.ServeHTTP)
}

// rateLimitLogin applies the tighter per-IP login limiter.
func (rt *Router) rateLimitLogin(next http.Handler) http.Handler {
	if rt.loginLimiter == nil {
		return next
	}
	return rt.middleware.RateLimitLogin(rt.loginLimiter, next.ServeHTTP)
}

// authenticate requires a valid, non-revoked access token.
func (rt *Router) authenticate(next http.Handler) http.Handler {
	return rt.middleware.Authenticate(next.ServeHTTP)
}

// requireAdmin wraps a handler so only admins reach it.
func (rt *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return rt.middleware.RequireRole("admin", rt.handler.resolveRole, next)
}

// Setup configures all HTTP routes.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chiMiddleware(rt.middleware.CORS))
	r.Use(chiMiddleware(rt.middleware.SecurityHeaders))
	r.Use(middleware.Prometheus)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Liveness probe. No auth, exempt from rate limiting.
	r.Get("/api/ping", rt.handler.Ping)

	// Authentication endpoints. Login gets the tighter per-IP limiter on
	// top of the sliding-window limits.
	r.Route("/api/auth", func(r chi.Router) {
		r.Use(rt.rateLimit)

		r.With(rt.rateLimitLogin).Post("/login", rt.handler.Login)
		r.Post("/register", rt.handler.Register)
		r.Post("/refresh", rt.handler.Refresh)
		r.Post("/2fa/verify", rt.handler.Verify2FA)

		r.Group(func(r chi.Router) {
			r.Use(rt.authenticate)
			r.Post("/logout", rt.handler.Logout)
			r.Post("/2fa/enable", rt.handler.Enable2FA)
			r.Post("/2fa/disable", rt.handler.Disable2FA)
		})
	})

	// Catalog endpoints. All require an access token; destructive and
	// bulk operations require the admin role.
	r.Route("/api/books", func(r chi.Router) {
		r.Use(rt.rateLimit)
		r.Use(rt.authenticate)

		r.Get("/", rt.handler.ListBooks)
		r.Post("/", rt.handler.CreateBook)
		r.Post("/bulk-import", rt.requireAdmin(rt.handler.BulkImportBooks))
		r.Get("/{id}", rt.handler.GetBook)
		r.Put("/{id}", rt.handler.UpdateBook)
		r.Delete("/{id}", rt.requireAdmin(rt.handler.DeleteBook))
	})

	r.Route("/api/authors", func(r chi.Router) {
		r.Use(rt.rateLimit)
		r.Use(rt.authenticate)

		r.Get("/", rt.handler.ListAuthors)
	})

	// User management.
	r.Route("/api/users", func(r chi.Router) {
		r.Use(rt.rateLimit)
		r.Use(rt.authenticate)

		r.Get("/me", rt.handler.Me)
		r.Get("/", rt.requireAdmin(rt.handler.ListUsers))
		r.Get("/{id}", rt.requireAdmin(rt.handler.GetUser))
		r.Put("/{id}/role", rt.requireAdmin(rt.handler.UpdateUserRole))
		r.Delete("/{id}", rt.requireAdmin(rt.handler.DeleteUser))
	})

	// Observability. Exempt from rate limiting.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
