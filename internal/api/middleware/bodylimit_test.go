package middleware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crownkeys/internal/api/middleware"
)

func TestMaxBodySize(t *testing.T) {
	const limit int64 = 16

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "within limit", body: "hello", wantStatus: http.StatusOK},
		{name: "exact boundary", body: strings.Repeat("x", int(limit)), wantStatus: http.StatusOK},
		{name: "exceeds limit", body: strings.Repeat("x", int(limit)+1), wantStatus: http.StatusRequestEntityTooLarge},
		{name: "empty body", body: "", wantStatus: http.StatusOK},
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.MaxBodySize(limit)(inner)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
