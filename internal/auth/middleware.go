// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package auth

import (
	"context"
	"net/http"

	"github.com/datagate/datagate/internal/logging"
	"github.com/datagate/datagate/internal/metrics"
)

type contextKey string

// ClaimsContextKey is the request context key under which authenticated
// claims are stored.
const ClaimsContextKey contextKey = "claims"

// Claims describes the authenticated caller.
type Claims struct {
	Username string
}

// ClaimsFromContext retrieves the authenticated claims from the request
// context. Returns nil if the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}

// Middleware enforces Basic authentication on protected routes.
type Middleware struct {
	manager *BasicAuthManager
}

// NewMiddleware creates authentication middleware around the given manager.
func NewMiddleware(manager *BasicAuthManager) *Middleware {
	return &Middleware{manager: manager}
}

// Authenticate wraps a handler with Basic auth enforcement. Requests
// without valid credentials receive 401 with a WWW-Authenticate challenge;
// authenticated requests carry Claims in their context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.sendChallenge(w, "Unauthorized: authentication required")
			return
		}

		username, err := m.manager.ValidateCredentials(authHeader)
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("basic auth validation failed")
			metrics.RecordAuthAttempt(false)
			m.sendChallenge(w, "Unauthorized: invalid credentials")
			return
		}

		metrics.RecordAuthAttempt(true)
		ctx := context.WithValue(r.Context(), ClaimsContextKey, &Claims{Username: username})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sendChallenge sends a WWW-Authenticate challenge and error response.
func (m *Middleware) sendChallenge(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", m.manager.GetWWWAuthenticateHeader())
	http.Error(w, message, http.StatusUnauthorized)
}
