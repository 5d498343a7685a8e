package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
)

// RequireOwnership returns the ownership guard for a resource kind. It
// reads the resource id from the route variable, fetches the recorded owner
// fresh from the datastore and compares it against the Principal. Admins
// bypass the comparison.
//
// Must be chained after RequireAuth; like the role guard, a missing
// Principal is treated as a wiring bug.
func RequireOwnership(store api.OwnershipStore, kind domain.ResourceKind, pathVar string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := api.PrincipalFromContext(r.Context())
			if !ok {
				panic(fmt.Sprintf("ownership guard on %s without a preceding auth guard", r.URL.Path))
			}

			id, err := strconv.ParseInt(mux.Vars(r)[pathVar], 10, 64)
			if err != nil {
				writeGuardError(w, http.StatusNotFound, fmt.Sprintf("%s not found", kind))
				return
			}

			owner, err := store.OwnerOf(r.Context(), kind, id)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				writeGuardError(w, http.StatusNotFound, fmt.Sprintf("%s not found", kind))
				return
			case err != nil:
				slog.Error("ownership lookup failed", "kind", kind.String(), "id", id, "error", err)
				writeGuardError(w, http.StatusServiceUnavailable, "Service temporarily unavailable.")
				return
			}

			if owner != principal.ID && !principal.IsAdmin() {
				writeGuardError(w, http.StatusForbidden, "Access denied. You can only access your own resources.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
