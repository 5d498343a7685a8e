package inmem

import (
	"math"
	"sync"
	"time"

	"crownkeys/internal/api"
)

const staleThreshold = 10 * time.Minute

// SlidingWindow implements a per-key sliding-window rate limiter: it keeps a
// ledger of request timestamps per client key, prunes entries older than the
// window on each check, and rejects once the pruned count reaches the limit.
type SlidingWindow struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu     sync.Mutex
	ledger map[string][]time.Time
}

// NewSlidingWindow creates a limiter allowing limit requests per window.
// clock is injectable for deterministic testing.
func NewSlidingWindow(window time.Duration, limit int, clock func() time.Time) *SlidingWindow {
	return &SlidingWindow{
		window: window,
		limit:  limit,
		now:    clock,
		ledger: make(map[string][]time.Time),
	}
}

// Allow checks whether a request identified by key should be allowed and,
// if so, records it. The check-then-record sequence holds the lock so
// concurrent requests cannot both claim the last slot.
func (sw *SlidingWindow) Allow(key string) api.RateLimitResult {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	cutoff := now.Add(-sw.window)

	stamps := sw.ledger[key]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= sw.limit {
		sw.ledger[key] = live
		// A slot frees when the oldest live timestamp ages out.
		wait := live[0].Sub(cutoff).Seconds()
		return api.RateLimitResult{
			Allowed:    false,
			RetryAfter: max(int(math.Ceil(wait)), 1),
		}
	}

	sw.ledger[key] = append(live, now)
	return api.RateLimitResult{Allowed: true}
}

// Cleanup drops keys whose newest entry is long past the window, bounding
// ledger growth across many distinct clients.
func (sw *SlidingWindow) Cleanup() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	cutoff := sw.now().Add(-sw.window - staleThreshold)
	for key, stamps := range sw.ledger {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(sw.ledger, key)
		}
	}
}

// KeyCount returns the number of tracked client keys (for testing).
func (sw *SlidingWindow) KeyCount() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return len(sw.ledger)
}
