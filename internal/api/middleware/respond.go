package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"crownkeys/internal/domain"
)

// writeGuardError writes the structured failure envelope for a guard.
// Guards are terminal: the downstream handler never runs after this.
func writeGuardError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(domain.Response{
		Success: false,
		Message: msg,
	}); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}
