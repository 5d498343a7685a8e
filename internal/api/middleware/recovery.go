package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"crownkeys/internal/api"
)

// Recovery catches panics from downstream handlers and returns a 500 JSON
// error. The stack goes to the log, never to the response body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				reqID := api.RequestIDFromContext(r.Context())
				slog.Error("panic recovered",
					"error", err,
					"request_id", reqID,
					"stack", string(debug.Stack()),
				)
				writeGuardError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
