// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

// Package ratelimit provides per-client request limiting over two
// concurrent windows (per-second and per-minute) with a pluggable
// window strategy.
package ratelimit

import "time"

// Strategy decides whether a request charged to a key fits within a
// single window. Implementations must be safe for concurrent use.
type Strategy interface {
	// Allow charges one request to key and reports whether it fits
	// within the window.
	Allow(key string) bool

	// Len returns the number of keys currently tracked.
	Len() int

	// Stop releases background resources (cleanup goroutines).
	Stop()
}

// StrategyFixed and StrategySliding name the available window algorithms.
const (
	StrategyFixed   = "fixed"
	StrategySliding = "sliding"
)

// NewStrategy constructs the named strategy for one window.
// Unknown names fall back to the fixed window.
func NewStrategy(name string, limit int, window time.Duration) Strategy {
	switch name {
	case StrategySliding:
		return NewSlidingWindow(limit, window)
	default:
		return NewFixedWindow(limit, window)
	}
}
