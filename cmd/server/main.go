// Shelfmark - Book Catalog and Library Management API
// Copyright 2026 The Shelfmark Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfmark/shelfmark

// Package main is the entry point for the Shelfmark server.
//
// The server initializes components in the following order:
//
//  1. Environment: load .env if present (godotenv)
//  2. Configuration: layered defaults, config file, environment (Koanf v2)
//  3. Logging: zerolog with configured level and format
//  4. PostgreSQL: connection pool, then embedded migrations when enabled
//  5. Redis: token blacklist for JWT revocation
//  6. Services: auth, catalog, rate limiters, HTTP router
//  7. Supervisor tree: HTTP server and health probe under suture
//
// Graceful shutdown is triggered by SIGINT or SIGTERM: the server stops
// accepting connections, waits for in-flight requests up to the
// configured shutdown timeout, then closes Postgres and Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/shelfmark/shelfmark/docs" // generated swagger docs
	"github.com/shelfmark/shelfmark/internal/api"
	"github.com/shelfmark/shelfmark/internal/auth"
	"github.com/shelfmark/shelfmark/internal/cache"
	"github.com/shelfmark/shelfmark/internal/catalog"
	"github.com/shelfmark/shelfmark/internal/config"
	"github.com/shelfmark/shelfmark/internal/database"
	"github.com/shelfmark/shelfmark/internal/logging"
	"github.com/shelfmark/shelfmark/internal/supervisor"
	"github.com/shelfmark/shelfmark/internal/supervisor/services"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting Shelfmark")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(); err != nil {
			logging.Fatal().Err(err).Msg("Failed to run migrations")
		}
		logging.Info().Msg("Database migrations applied")
	}

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing Redis client")
		}
	}()
	blacklist := cache.NewTokenBlacklist(redisClient)

	jwtManager, err := auth.NewJWTManager(
		cfg.Security.JWTSecret,
		cfg.Security.AccessTokenTTL,
		cfg.Security.RefreshTokenTTL,
		cfg.Security.TempTokenTTL,
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	authSvc := auth.NewService(db, blacklist, jwtManager, cfg.Security.BcryptCost, cfg.Security.TOTPIssuer)
	catalogSvc := catalog.NewService(db, database.ErrNotFound, cfg.API.DefaultPageSize, cfg.API.MaxPageSize)

	middleware := auth.NewMiddleware(jwtManager, blacklist, cfg.Security.CORSOrigins, cfg.Security.TrustedProxies)

	var limiter *auth.SlidingWindowLimiter
	var loginLimiter *auth.LoginLimiter
	if cfg.RateLimit.Disabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	} else {
		limiter = auth.NewSlidingWindowLimiter(&cfg.RateLimit)
		defer limiter.Stop()
		loginLimiter = auth.NewLoginLimiter(cfg.RateLimit.LoginPerMinute)
		defer loginLimiter.Stop()
	}

	handler := api.NewHandler(db, cfg, authSvc, catalogSvc)
	router := api.NewRouter(handler, middleware, limiter, loginLimiter)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddWorkerService(services.NewHealthProbeService(map[string]services.Pinger{
		"postgres": db,
		"redis":    cache.NewPinger(redisClient),
	}, 30*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
