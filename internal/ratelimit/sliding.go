// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SlidingWindow approximates a sliding window with a token bucket per
// key: tokens refill continuously at limit/window, so the budget drains
// and recovers smoothly instead of resetting at boundaries.
type SlidingWindow struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*slidingEntry

	stopClean chan struct{}
	stopOnce  sync.Once
}

type slidingEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewSlidingWindow creates a sliding-window limiter allowing limit
// requests per window per key.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	sw := &SlidingWindow{
		rate:      rate.Limit(float64(limit) / window.Seconds()),
		burst:     limit,
		limiters:  make(map[string]*slidingEntry),
		stopClean: make(chan struct{}),
	}
	go sw.startCleanup(5 * time.Minute)
	return sw
}

// Allow charges one request to key and reports whether it fits.
func (sw *SlidingWindow) Allow(key string) bool {
	sw.mu.Lock()
	entry, ok := sw.limiters[key]
	if !ok {
		entry = &slidingEntry{
			limiter:    rate.NewLimiter(sw.rate, sw.burst),
			lastAccess: time.Now(),
		}
		sw.limiters[key] = entry
	} else {
		entry.lastAccess = time.Now()
	}
	limiter := entry.limiter
	sw.mu.Unlock()

	return limiter.Allow()
}

// Len returns the number of keys currently tracked.
func (sw *SlidingWindow) Len() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(sw.limiters)
}

// startCleanup periodically removes stale limiters.
func (sw *SlidingWindow) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.cleanup()
		case <-sw.stopClean:
			return
		}
	}
}

// cleanup removes limiters that have not been touched in the last hour.
func (sw *SlidingWindow) cleanup() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	threshold := time.Now().Add(-1 * time.Hour)
	for key, entry := range sw.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(sw.limiters, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (sw *SlidingWindow) Stop() {
	sw.stopOnce.Do(func() {
		close(sw.stopClean)
	})
}
