// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/datagate/datagate/internal/auth"
	"github.com/datagate/datagate/internal/logging"
	"github.com/datagate/datagate/internal/models"
)

// QueryStore is the data access surface the handlers need. Satisfied by
// *database.QueryExecutor; narrowed to an interface for handler tests.
type QueryStore interface {
	DefaultTable() string
	FetchRows(ctx context.Context, table string, limit int) ([]models.Record, error)
}

// HealthChecker reports whether the backing database is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler serves the query API endpoints.
type Handler struct {
	store        QueryStore
	health       HealthChecker
	defaultLimit int
	maxLimit     int
	version      string
}

// NewHandler creates a handler bound to the given store. maxLimit is the
// configured per-request row cap; the struct tag on QueryRequest keeps
// 1000 as the absolute ceiling regardless of configuration.
func NewHandler(store QueryStore, health HealthChecker, defaultLimit, maxLimit int, version string) *Handler {
	return &Handler{
		store:        store,
		health:       health,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		version:      version,
	}
}

// GetData handles POST /get_data. It decodes and validates the request,
// runs a bounded select against the resolved table and wraps the rows in
// the standard envelope. Any store failure collapses into the ERROR
// envelope with HTTP 400.
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be valid JSON", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusUnprocessableEntity, apiErr)
		return
	}

	if req.Limit != nil && *req.Limit > h.maxLimit {
		respondJSON(w, http.StatusUnprocessableEntity, &models.APIError{
			Code:    "VALIDATION_ERROR",
			Message: fmt.Sprintf("limit must be at most %d", h.maxLimit),
			Details: map[string]interface{}{
				"field": "limit",
				"tag":   "max",
				"value": *req.Limit,
			},
		})
		return
	}

	table := req.table(h.store.DefaultTable())
	limit := req.limit(h.defaultLimit)

	rows, err := h.store.FetchRows(r.Context(), table, limit)
	if err != nil {
		logging.CtxErr(r.Context(), err).
			Str("table", sanitizeLogValue(table)).
			Int("limit", limit).
			Msg("Query failed")
		respondJSON(w, http.StatusBadRequest, models.NewQueryError())
		return
	}

	respondJSON(w, http.StatusOK, models.NewQueryResponse(rows))
}

// WhoAmI handles GET /users/me, echoing the authenticated username.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		// Route is auth-guarded; reaching here without claims means the
		// middleware chain is miswired.
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}

	respondJSON(w, http.StatusOK, models.IdentityResponse{Username: claims.Username})
}

// Health handles GET /health with a database reachability probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:   "healthy",
		Database: "connected",
		Version:  h.version,
	}

	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			logging.CtxErr(r.Context(), err).Msg("Database health check failed")
			resp.Status = "degraded"
			resp.Database = "unavailable"
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
