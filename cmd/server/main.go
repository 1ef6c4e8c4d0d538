// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

// Package main is the entry point for the Datagate server.
//
// Datagate exposes a small authenticated HTTP API over a single-file
// DuckDB database populated by an external pipeline. Clients query
// bounded slices of allow-listed tables; everything else (admin
// credential, rate budgets, table allow-list) comes from configuration.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Database: single-file DuckDB connection with pool tuning
//  3. Authentication: static admin credential, bcrypt-hashed at startup
//  4. Rate limiting: dual fixed or sliding windows keyed by client address
//  5. HTTP server: Chi router under a suture supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults. Required settings:
//
//	export DESTINATION_TABLE=events
//	export ADMIN_USERNAME=admin
//	export ADMIN_PASSWORD=secure-password
//	./datagate
//
// Optional tuning:
//
//	export DUCKDB_PATH=/data/datagate.duckdb
//	export RATE_LIMIT_PER_SECOND=1
//	export RATE_LIMIT_PER_MINUTE=10
//	export RATE_LIMIT_STRATEGY=fixed
//	export HTTP_PORT=8000
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests to complete
// (10s timeout), then closes the database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/datagate/datagate/internal/api"
	"github.com/datagate/datagate/internal/auth"
	"github.com/datagate/datagate/internal/config"
	"github.com/datagate/datagate/internal/database"
	"github.com/datagate/datagate/internal/logging"
	"github.com/datagate/datagate/internal/ratelimit"
	"github.com/datagate/datagate/internal/supervisor"
	"github.com/datagate/datagate/internal/supervisor/services"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration first to get logging settings
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
		Str("version", version).
		Str("destination_table", cfg.Pipeline.DestinationTable).
		Str("db_path", cfg.Database.Path).
		Str("address", cfg.Address()).
		Msg("Starting Datagate")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	executor := database.NewQueryExecutor(db, cfg.Pipeline.DestinationTable, cfg.Pipeline.AllowedTables)

	basicAuthManager, err := auth.NewBasicAuthManager(cfg.API.Admin.Username, cfg.API.Admin.Password)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize Basic Auth manager")
	}
	logging.Info().Msg("Basic authentication enabled")
	logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")

	rateLimiter := ratelimit.NewService(ratelimit.Options{
		PerSecond: cfg.API.RateLimits.PerSecond,
		PerMinute: cfg.API.RateLimits.PerMinute,
		Strategy:  cfg.API.RateLimits.Strategy,
		Disabled:  cfg.API.RateLimits.Disabled,
	})
	defer rateLimiter.Stop()

	if cfg.API.RateLimits.Disabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	} else {
		logging.Info().
			Int("per_second", cfg.API.RateLimits.PerSecond).
			Int("per_minute", cfg.API.RateLimits.PerMinute).
			Str("strategy", cfg.API.RateLimits.Strategy).
			Msg("Rate limiting enabled")
	}

	handler := api.NewHandler(executor, db, cfg.API.DefaultLimit, cfg.API.MaxLimit, version)
	router := api.NewRouter(handler, auth.NewMiddleware(basicAuthManager), rateLimiter, cfg.API.CORSOrigins)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
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
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
