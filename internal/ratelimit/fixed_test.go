// Datagate - Authenticated Query API for Pipeline Data
// Copyright 2026 Datagate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/datagate/datagate

package ratelimit

import (
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now atomic.Int64 // unix nanos
}

func newFakeClock(start time.Time) *fakeClock {
	c := &fakeClock{}
	c.now.Store(start.UnixNano())
	return c
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.now.Load())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}

func TestFixedWindowAllowsUpToLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	fw := newFixedWindowWithClock(3, time.Second, clock.Now)
	defer fw.Stop()

	for i := 0; i < 3; i++ {
		if !fw.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if fw.Allow("10.0.0.1") {
		t.Error("request 4 should be rejected")
	}
}

func TestFixedWindowResetsAtBoundary(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	fw := newFixedWindowWithClock(1, time.Second, clock.Now)
	defer fw.Stop()

	if !fw.Allow("10.0.0.1") {
		t.Fatal("first request should be allowed")
	}
	if fw.Allow("10.0.0.1") {
		t.Fatal("second request in the same window should be rejected")
	}

	// The next aligned window grants a fresh budget.
	clock.Advance(time.Second)
	if !fw.Allow("10.0.0.1") {
		t.Error("request in the next window should be allowed")
	}
}

func TestFixedWindowRejectedRequestsStillCount(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 500_000_000, time.UTC))
	fw := newFixedWindowWithClock(2, time.Second, clock.Now)
	defer fw.Stop()

	fw.Allow("10.0.0.1")
	fw.Allow("10.0.0.1")
	fw.Allow("10.0.0.1") // rejected, still charged

	// Still inside the same aligned window.
	clock.Advance(200 * time.Millisecond)
	if fw.Allow("10.0.0.1") {
		t.Error("window should remain exhausted")
	}
}

func TestFixedWindowKeysAreIndependent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	fw := newFixedWindowWithClock(1, time.Second, clock.Now)
	defer fw.Stop()

	if !fw.Allow("10.0.0.1") {
		t.Fatal("first key should be allowed")
	}
	if !fw.Allow("10.0.0.2") {
		t.Error("second key should have its own budget")
	}
	if fw.Len() != 2 {
		t.Errorf("Len() = %d, want 2", fw.Len())
	}
}

func TestFixedWindowCleanupDropsStaleBuckets(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	fw := newFixedWindowWithClock(5, time.Second, clock.Now)
	defer fw.Stop()

	fw.Allow("10.0.0.1")
	fw.Allow("10.0.0.2")

	clock.Advance(time.Minute)
	fw.cleanup()

	if fw.Len() != 0 {
		t.Errorf("Len() after cleanup = %d, want 0", fw.Len())
	}
}

func TestSlidingWindowAllowsBurstThenThrottles(t *testing.T) {
	t.Parallel()

	sw := NewSlidingWindow(2, time.Minute)
	defer sw.Stop()

	if !sw.Allow("10.0.0.1") || !sw.Allow("10.0.0.1") {
		t.Fatal("burst within budget should be allowed")
	}
	if sw.Allow("10.0.0.1") {
		t.Error("request above budget should be rejected")
	}
	if !sw.Allow("10.0.0.2") {
		t.Error("other keys keep their own budget")
	}
}

func TestNewStrategySelection(t *testing.T) {
	t.Parallel()

	fixed := NewStrategy(StrategyFixed, 1, time.Second)
	defer fixed.Stop()
	if _, ok := fixed.(*FixedWindow); !ok {
		t.Errorf("expected *FixedWindow, got %T", fixed)
	}

	sliding := NewStrategy(StrategySliding, 1, time.Second)
	defer sliding.Stop()
	if _, ok := sliding.(*SlidingWindow); !ok {
		t.Errorf("expected *SlidingWindow, got %T", sliding)
	}

	// Unknown names fall back to the fixed window.
	fallback := NewStrategy("leaky", 1, time.Second)
	defer fallback.Stop()
	if _, ok := fallback.(*FixedWindow); !ok {
		t.Errorf("expected fallback *FixedWindow, got %T", fallback)
	}
}
