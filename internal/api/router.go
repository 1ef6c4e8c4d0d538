// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

// Package api provides HTTP routing using the Chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datagate/datagate/internal/auth"
	"github.com/datagate/datagate/internal/middleware"
	"github.com/datagate/datagate/internal/ratelimit"
)

// Router wires handlers, authentication and rate limiting into the HTTP
// surface.
type Router struct {
	handler     *Handler
	authMW      *auth.Middleware
	rateLimiter *ratelimit.Service
	corsOrigins []string
}

// NewRouter creates a router for the query API.
func NewRouter(handler *Handler, authMW *auth.Middleware, rateLimiter *ratelimit.Service, corsOrigins []string) *Router {
	return &Router{
		handler:     handler,
		authMW:      authMW,
		rateLimiter: rateLimiter,
		corsOrigins: corsOrigins,
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	// Health is unauthenticated but guarded by a permissive IP limiter so
	// monitoring tools can poll it without opening an abuse vector.
	r.Route("/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Use(SecurityHeaders())
		r.Get("/", router.handler.Health)
	})

	// Prometheus exposition for scrapers.
	r.Handle("/metrics", promhttp.Handler())

	// Protected query endpoints. Authentication resolves before the rate
	// limiter so anonymous probes get a 401, not a window charge.
	r.Group(func(r chi.Router) {
		r.Use(SecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(router.authMW.Authenticate)
		r.Use(router.rateLimiter.Middleware)

		r.Post("/get_data", router.handler.GetData)
		r.Get("/users/me", router.handler.WhoAmI)
	})

	return r
}

// SecurityHeaders adds defensive headers to API responses.
//
// Content-Security-Policy is omitted because these endpoints never serve
// HTML. HSTS is added only when the request arrived over TLS or through a
// TLS-terminating proxy.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cache-Control", "no-store")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
