package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crownkeys/internal/api/adapter/inmem"
	"crownkeys/internal/api/middleware"
)

func TestRateLimitAllowsWithinWindow(t *testing.T) {
	now := time.Now()
	limiter := inmem.NewSlidingWindow(time.Minute, 3, func() time.Time { return now })

	handler := middleware.RateLimit(limiter, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for i := range 3 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitDeniesOverLimit(t *testing.T) {
	now := time.Now()
	limiter := inmem.NewSlidingWindow(time.Minute, 2, func() time.Time { return now })

	handler := middleware.RateLimit(limiter, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		handler.ServeHTTP(rec, req)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	resp := decodeEnvelope(t, rec)
	if resp.Success || resp.Message != "Too many requests. Please try again later." {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}

func TestRateLimitWindowSlidesOpen(t *testing.T) {
	now := time.Now()
	limiter := inmem.NewSlidingWindow(time.Minute, 1, func() time.Time { return now })

	handler := middleware.RateLimit(limiter, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	send := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
		req.RemoteAddr = "10.0.0.1:1"
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", code)
	}

	now = now.Add(61 * time.Second)
	if code := send(); code != http.StatusOK {
		t.Fatalf("after window: expected 200, got %d", code)
	}
}

func TestRateLimitSeparatesClients(t *testing.T) {
	now := time.Now()
	limiter := inmem.NewSlidingWindow(time.Minute, 1, func() time.Time { return now })

	handler := middleware.RateLimit(limiter, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	send := func(addr string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/listings", nil)
		req.RemoteAddr = addr
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1"); code != http.StatusOK {
		t.Fatalf("client A: expected 200, got %d", code)
	}
	if code := send("10.0.0.2:1"); code != http.StatusOK {
		t.Fatalf("client B must have its own budget, got %d", code)
	}
	if code := send("10.0.0.1:9"); code != http.StatusTooManyRequests {
		t.Fatalf("client A (different port) should share the budget, got %d", code)
	}
}
