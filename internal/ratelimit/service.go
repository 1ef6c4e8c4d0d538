// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package ratelimit

import (
	"net"
	"net/http"
	"time"

	"github.com/datagate/datagate/internal/logging"
	"github.com/datagate/datagate/internal/metrics"
)

// Options configures the dual-window service.
type Options struct {
	// PerSecond is the request budget per client per second.
	PerSecond int

	// PerMinute is the request budget per client per minute.
	PerMinute int

	// Strategy is the window algorithm: StrategyFixed or StrategySliding.
	Strategy string

	// Disabled bypasses limiting entirely.
	Disabled bool
}

// Service enforces two concurrent windows per client key. A request is
// charged against both windows and rejected when either is exhausted, so
// the per-second budget smooths bursts while the per-minute budget caps
// sustained throughput.
type Service struct {
	perSecond Strategy
	perMinute Strategy
	disabled  bool
}

// NewService creates the rate-limit service from the given options.
func NewService(opts Options) *Service {
	if opts.Disabled {
		return &Service{disabled: true}
	}

	return &Service{
		perSecond: NewStrategy(opts.Strategy, opts.PerSecond, time.Second),
		perMinute: NewStrategy(opts.Strategy, opts.PerMinute, time.Minute),
	}
}

// Allow charges one request to key against both windows. Both windows
// are charged even when a request is rejected. Returns the name of the
// first exhausted window, or "" when the request is allowed.
func (s *Service) Allow(key string) (allowed bool, window string) {
	if s.disabled {
		return true, ""
	}

	secondOK := s.perSecond.Allow(key)
	minuteOK := s.perMinute.Allow(key)

	switch {
	case !secondOK:
		return false, "per_second"
	case !minuteOK:
		return false, "per_minute"
	default:
		return true, ""
	}
}

// Middleware enforces the limits keyed by client address. Rejected
// requests get a plain 429 without the response envelope.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.disabled {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		allowed, window := s.Allow(key)
		if !allowed {
			metrics.RecordRateLimitHit(window)
			logging.Ctx(r.Context()).Warn().
				Str("client", key).
				Str("window", window).
				Msg("rate limit exceeded")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		metrics.RateLimitTrackedKeys.Set(float64(s.perMinute.Len()))
		next.ServeHTTP(w, r)
	})
}

// Stop releases the window cleanup goroutines.
func (s *Service) Stop() {
	if s.disabled {
		return
	}
	s.perSecond.Stop()
	s.perMinute.Stop()
}

// clientKey derives the limiter key from the client address. The RealIP
// middleware has already resolved proxy headers into RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
