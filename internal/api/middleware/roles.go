package middleware

import (
	"fmt"
	"net/http"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
)

// RequireRole returns the role guard: a resolved Principal whose role is
// outside the permitted set fails with 403.
//
// The guard must be chained after RequireAuth. Reaching it without a
// Principal is a route-wiring bug, not a runtime condition, so it panics;
// the recovery middleware converts that into a 500.
func RequireRole(roles ...domain.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := api.PrincipalFromContext(r.Context())
			if !ok {
				panic(fmt.Sprintf("role guard on %s without a preceding auth guard", r.URL.Path))
			}

			if !principal.HasRole(roles...) {
				writeGuardError(w, http.StatusForbidden, "Access denied. Insufficient permissions.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
