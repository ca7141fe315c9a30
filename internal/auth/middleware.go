// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

package auth

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shelfmark/shelfmark/internal/logging"
	"github.com/shelfmark/shelfmark/internal/metrics"
	"github.com/shelfmark/shelfmark/internal/models"
)

type contextKey string

// ClaimsContextKey stores the validated *Claims of the current request.
const ClaimsContextKey contextKey = "claims"

// Middleware guards HTTP routes with JWT validation, role checks,
// CORS, security headers, and rate limiting.
type Middleware struct {
	jwt            *JWTManager
	blacklist      Blacklist
	corsOrigins    []string
	trustedProxies map[string]bool
}

// NewMiddleware wires the HTTP middleware.
func NewMiddleware(jwt *JWTManager, blacklist Blacklist, corsOrigins, trustedProxies []string) *Middleware {
	proxies := make(map[string]bool, len(trustedProxies))
	for _, p := range trustedProxies {
		proxies[p] = true
	}
	return &Middleware{
		jwt:            jwt,
		blacklist:      blacklist,
		corsOrigins:    corsOrigins,
		trustedProxies: proxies,
	}
}

// Authenticate requires a valid, unrevoked access token. The claims
// are stored in the request context for handlers downstream.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r)
		if !ok {
			m.unauthorized(w, "Missing or malformed Authorization header")
			return
		}

		claims, err := m.jwt.ValidateType(token, TokenTypeAccess)
		if err != nil {
			m.unauthorized(w, "Invalid or expired token")
			return
		}

		// Blacklist outages degrade open for plain reads; refresh
		// rotation performs its own strict check.
		revoked, err := m.blacklist.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			logging.Warn().Err(err).Msg("Blacklist check failed, allowing request")
		} else if revoked {
			metrics.RecordAuthAttempt("blacklisted")
			m.unauthorized(w, "Token has been revoked")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// RoleResolver looks up the current role for an email. Roles live in
// the database rather than the token so role changes apply without
// re-issuing tokens.
type RoleResolver func(ctx context.Context, email string) (string, error)

// RequireRole requires the authenticated user to hold the given role.
// Admins pass every role check.
func (m *Middleware) RequireRole(role string, resolve RoleResolver, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			m.unauthorized(w, "Authentication required")
			return
		}

		userRole, err := resolve(r.Context(), claims.Subject)
		if err != nil {
			m.unauthorized(w, "Authentication required")
			return
		}
		if userRole != role && userRole != models.RoleAdmin {
			m.forbidden(w, "Insufficient permissions")
			return
		}
		next(w, r)
	}
}

// ClaimsFromContext retrieves the validated claims, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}

// CORS handles cross-origin requests against the configured origins.
func (m *Middleware) CORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := m.setOriginHeaders(w, origin)

		if !allowed && origin != "" && r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

func (m *Middleware) setOriginHeaders(w http.ResponseWriter, origin string) bool {
	for _, allowed := range m.corsOrigins {
		if allowed == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			return true
		}
		if allowed == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			return true
		}
	}
	return false
}

// SecurityHeaders sets baseline response hardening headers.
func (m *Middleware) SecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next(w, r)
	}
}

// ClientIP resolves the client address, honouring forwarding headers
// only when the direct peer is a trusted proxy.
func (m *Middleware) ClientIP(r *http.Request) string {
	remoteIP := hostOnly(r.RemoteAddr)

	if len(m.trustedProxies) == 0 || !m.trustedProxies[remoteIP] {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return remoteIP
}

func hostOnly(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	writeAuthError(w, http.StatusForbidden, "FORBIDDEN", message)
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message},
		Metadata: &models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode error response")
	}
}
