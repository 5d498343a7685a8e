package inmem_test

import (
	"testing"
	"time"

	"crownkeys/internal/api/adapter/inmem"
)

func TestSlidingWindowAllowsUpToLimit(t *testing.T) {
	now := time.Now()
	sw := inmem.NewSlidingWindow(time.Minute, 3, func() time.Time { return now })

	for i := range 3 {
		if res := sw.Allow("1.2.3.4"); !res.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
	}
	if res := sw.Allow("1.2.3.4"); res.Allowed {
		t.Fatal("request 4: expected denied")
	}
}

func TestSlidingWindowRetryAfter(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	sw := inmem.NewSlidingWindow(time.Minute, 1, clock)

	sw.Allow("k")
	res := sw.Allow("k")
	if res.Allowed {
		t.Fatal("expected denied")
	}
	// The single slot frees when the first request ages out, a full window
	// from now.
	if res.RetryAfter < 1 || res.RetryAfter > 60 {
		t.Errorf("expected RetryAfter in (0, 60], got %d", res.RetryAfter)
	}
}

func TestSlidingWindowResetsAfterWindow(t *testing.T) {
	now := time.Now()
	sw := inmem.NewSlidingWindow(time.Minute, 2, func() time.Time { return now })

	sw.Allow("k")
	sw.Allow("k")
	if res := sw.Allow("k"); res.Allowed {
		t.Fatal("expected denied at limit")
	}

	now = now.Add(time.Minute + time.Second)
	if res := sw.Allow("k"); !res.Allowed {
		t.Fatal("expected allowed after the window passed")
	}
}

func TestSlidingWindowSlides(t *testing.T) {
	now := time.Now()
	sw := inmem.NewSlidingWindow(time.Minute, 2, func() time.Time { return now })

	sw.Allow("k")
	now = now.Add(40 * time.Second)
	sw.Allow("k")

	// 61s after the first request: only the first has aged out, so exactly
	// one slot is free.
	now = now.Add(21 * time.Second)
	if res := sw.Allow("k"); !res.Allowed {
		t.Fatal("expected one freed slot")
	}
	if res := sw.Allow("k"); res.Allowed {
		t.Fatal("expected denied, window still holds two")
	}
}

func TestSlidingWindowKeysAreIndependent(t *testing.T) {
	now := time.Now()
	sw := inmem.NewSlidingWindow(time.Minute, 1, func() time.Time { return now })

	sw.Allow("a")
	if res := sw.Allow("b"); !res.Allowed {
		t.Fatal("key b must not share key a's budget")
	}
	if res := sw.Allow("a"); res.Allowed {
		t.Fatal("key a should be exhausted")
	}
}

func TestCleanupDropsStaleKeys(t *testing.T) {
	now := time.Now()
	sw := inmem.NewSlidingWindow(time.Minute, 5, func() time.Time { return now })

	sw.Allow("old")
	sw.Allow("fresh")
	if got := sw.KeyCount(); got != 2 {
		t.Fatalf("expected 2 keys, got %d", got)
	}

	now = now.Add(30 * time.Minute)
	sw.Allow("fresh")
	sw.Cleanup()

	if got := sw.KeyCount(); got != 1 {
		t.Errorf("expected stale key dropped, got %d keys", got)
	}
}
