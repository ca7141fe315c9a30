// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package config loads and validates service configuration from
// defaults, an optional YAML file, and environment variable overrides.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Security  SecurityConfig  `koanf:"security"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Empty binds all interfaces.
	Host string `koanf:"host"`

	// Port is the HTTP listen port.
	Port int `koanf:"port"`

	// ReadTimeout bounds reading the full request, including body.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds writes of the response.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Environment is "development" or "production". Production enforces
	// stricter secret validation.
	Environment string `koanf:"environment"`
}

// DatabaseConfig holds PostgreSQL connection settings. When URL is set
// it takes precedence over the discrete fields.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"sslmode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`

	// MigrateOnStart runs pending schema migrations during startup.
	MigrateOnStart bool `koanf:"migrate_on_start"`
}

// DSN returns the lib/pq connection string.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig holds settings for the token revocation store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// SecurityConfig holds authentication and transport security settings.
type SecurityConfig struct {
	// JWTSecret signs all tokens (HS256). Required; must be at least
	// 32 bytes outside development.
	JWTSecret string `koanf:"jwt_secret"`

	// AccessTokenTTL is the lifetime of access tokens.
	AccessTokenTTL time.Duration `koanf:"access_token_ttl"`

	// RefreshTokenTTL is the lifetime of refresh tokens.
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`

	// TempTokenTTL is the lifetime of the short-lived token issued to
	// users with 2FA enabled between password and OTP verification.
	TempTokenTTL time.Duration `koanf:"temp_token_ttl"`

	// BcryptCost is the bcrypt work factor for password hashing.
	BcryptCost int `koanf:"bcrypt_cost"`

	// TOTPIssuer appears in authenticator apps for provisioned secrets.
	TOTPIssuer string `koanf:"totp_issuer"`

	// CORSOrigins lists allowed origins. Empty allows none.
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies lists proxy addresses whose X-Forwarded-For and
	// X-Real-IP headers are honoured for client IP resolution.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Disabled bool `koanf:"disabled"`

	// PerMinute and PerHour are sliding-window limits per client IP.
	PerMinute int `koanf:"per_minute"`
	PerHour   int `koanf:"per_hour"`

	// LoginPerMinute is a tighter limit applied to the login endpoint.
	LoginPerMinute int `koanf:"login_per_minute"`
}

// APIConfig holds pagination defaults.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Validate checks configuration consistency. It is called after all
// layers are merged, so it sees the effective values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.IsProduction() && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 bytes in production")
	}
	if c.Security.AccessTokenTTL <= 0 || c.Security.RefreshTokenTTL <= 0 || c.Security.TempTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("security.bcrypt_cost must be in 4..31, got %d", c.Security.BcryptCost)
	}

	if c.Database.URL == "" && c.Database.Name == "" {
		return fmt.Errorf("database.url or database.name is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be in 1..%d", c.API.MaxPageSize)
	}
	if c.API.MaxPageSize < 1 {
		return fmt.Errorf("api.max_page_size must be positive")
	}

	if !c.RateLimit.Disabled {
		if c.RateLimit.PerMinute < 1 || c.RateLimit.PerHour < 1 {
			return fmt.Errorf("ratelimit.per_minute and ratelimit.per_hour must be positive")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}

	return nil
}
