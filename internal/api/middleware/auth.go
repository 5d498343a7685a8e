package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
	"crownkeys/internal/platform/telemetry"
)

// RequireAuth returns the required-auth guard: without a resolvable
// Principal the request fails with 401 and never reaches the handler. On
// success the Principal is attached to the request context.
// The metrics parameter is optional; pass nil to skip metric recording.
func RequireAuth(authn api.Authenticator, m *telemetry.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if m != nil {
					m.RecordAuthValidation(r.Context(), "failure")
				}
				writeGuardError(w, http.StatusUnauthorized, "Access denied. No token provided.")
				return
			}

			principal, err := authn.Authenticate(r.Context(), header)
			if err != nil {
				slog.Debug("auth validation failed", "error", err)
				if m != nil {
					m.RecordAuthValidation(r.Context(), "failure")
				}
				if errors.Is(err, domain.ErrUpstream) {
					writeGuardError(w, http.StatusServiceUnavailable, "Service temporarily unavailable.")
					return
				}
				// Single opaque message for every verification failure.
				writeGuardError(w, http.StatusUnauthorized, "Access denied. Invalid token.")
				return
			}

			if m != nil {
				m.RecordAuthValidation(r.Context(), "success")
			}
			ctx := api.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches a Principal when the credential resolves and passes
// the request through anonymously otherwise. It never fails the request;
// downstream handlers branch on PrincipalFromContext.
func OptionalAuth(authn api.Authenticator, m *telemetry.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authn.Authenticate(r.Context(), header)
			if err != nil {
				slog.Debug("optional auth: treating request as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if m != nil {
				m.RecordAuthValidation(r.Context(), "success")
			}
			ctx := api.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
