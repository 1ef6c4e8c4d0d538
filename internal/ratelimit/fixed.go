// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package ratelimit

import (
	"sync"
	"time"
)

// FixedWindow counts requests per key in discrete, aligned windows.
// The count resets abruptly at each window boundary: a client that
// exhausts its budget regains the full budget when the next window
// starts. Rejected requests still count against the window.
type FixedWindow struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*fixedBucket

	// now is the clock; replaceable in tests.
	now func() time.Time

	stopClean chan struct{}
	stopOnce  sync.Once
}

type fixedBucket struct {
	windowStart time.Time
	count       int
}

// NewFixedWindow creates a fixed-window counter allowing limit requests
// per window per key.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	fw := &FixedWindow{
		limit:     limit,
		window:    window,
		buckets:   make(map[string]*fixedBucket),
		now:       time.Now,
		stopClean: make(chan struct{}),
	}
	go fw.startCleanup(5 * time.Minute)
	return fw
}

// newFixedWindowWithClock is used by tests to control time.
func newFixedWindowWithClock(limit int, window time.Duration, now func() time.Time) *FixedWindow {
	return &FixedWindow{
		limit:     limit,
		window:    window,
		buckets:   make(map[string]*fixedBucket),
		now:       now,
		stopClean: make(chan struct{}),
	}
}

// Allow charges one request to key and reports whether it fits.
func (fw *FixedWindow) Allow(key string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()
	start := now.Truncate(fw.window)

	b, ok := fw.buckets[key]
	if !ok || b.windowStart.Before(start) {
		b = &fixedBucket{windowStart: start}
		fw.buckets[key] = b
	}

	b.count++
	return b.count <= fw.limit
}

// Len returns the number of keys currently tracked.
func (fw *FixedWindow) Len() int {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return len(fw.buckets)
}

// startCleanup periodically removes buckets from past windows.
func (fw *FixedWindow) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fw.cleanup()
		case <-fw.stopClean:
			return
		}
	}
}

// cleanup drops buckets whose window has long passed.
func (fw *FixedWindow) cleanup() {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	threshold := fw.now().Add(-2 * fw.window)
	for key, b := range fw.buckets {
		if b.windowStart.Before(threshold) {
			delete(fw.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (fw *FixedWindow) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.stopClean)
	})
}
