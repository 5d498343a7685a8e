package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"crownkeys/internal/api"
	"crownkeys/internal/api/middleware"
	"crownkeys/internal/domain"
)

// fakeOwnerships maps resource ids to owner ids for one kind.
type fakeOwnerships struct {
	owners map[int64]string
	err    error
}

func (f fakeOwnerships) OwnerOf(ctx context.Context, kind domain.ResourceKind, id int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	owner, ok := f.owners[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return owner, nil
}

func ownershipRequest(t *testing.T, principal domain.Principal, id string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/api/listings/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"id": id})
	return req.WithContext(api.ContextWithPrincipal(req.Context(), principal))
}

func TestRequireOwnershipOwnerPasses(t *testing.T) {
	store := fakeOwnerships{owners: map[int64]string{7: "u-1"}}
	guard := middleware.RequireOwnership(store, domain.KindListing, "id")

	var ran bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ran = true })

	rec := httptest.NewRecorder()
	guard(inner).ServeHTTP(rec, ownershipRequest(t, domain.Principal{ID: "u-1"}, "7"))

	if !ran {
		t.Fatal("expected owner to pass")
	}
}

func TestRequireOwnershipNonOwnerDenied(t *testing.T) {
	store := fakeOwnerships{owners: map[int64]string{7: "u-1"}}
	guard := middleware.RequireOwnership(store, domain.KindListing, "id")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})

	rec := httptest.NewRecorder()
	guard(inner).ServeHTTP(rec, ownershipRequest(t, domain.Principal{ID: "intruder"}, "7"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if msg := decodeEnvelope(t, rec).Message; msg != "Access denied. You can only access your own resources." {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestRequireOwnershipAdminBypasses(t *testing.T) {
	store := fakeOwnerships{owners: map[int64]string{7: "u-1"}}
	guard := middleware.RequireOwnership(store, domain.KindListing, "id")

	var ran bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ran = true })

	rec := httptest.NewRecorder()
	admin := domain.Principal{ID: "root", Role: domain.RoleAdmin}
	guard(inner).ServeHTTP(rec, ownershipRequest(t, admin, "7"))

	if !ran {
		t.Fatal("expected admin to bypass the ownership check")
	}
}

func TestRequireOwnershipMissingResource(t *testing.T) {
	store := fakeOwnerships{owners: map[int64]string{}}
	guard := middleware.RequireOwnership(store, domain.KindListing, "id")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})

	rec := httptest.NewRecorder()
	guard(inner).ServeHTTP(rec, ownershipRequest(t, domain.Principal{ID: "u-1"}, "404"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decodeEnvelope(t, rec).Message; msg != "listing not found" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestRequireOwnershipBadIDIsNotFound(t *testing.T) {
	store := fakeOwnerships{owners: map[int64]string{}}
	guard := middleware.RequireOwnership(store, domain.KindListing, "id")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})

	rec := httptest.NewRecorder()
	guard(inner).ServeHTTP(rec, ownershipRequest(t, domain.Principal{ID: "u-1"}, "not-a-number"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRequireOwnershipStoreOutage(t *testing.T) {
	store := fakeOwnerships{err: errors.New("connection refused")}
	guard := middleware.RequireOwnership(store, domain.KindListing, "id")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})

	rec := httptest.NewRecorder()
	guard(inner).ServeHTTP(rec, ownershipRequest(t, domain.Principal{ID: "u-1"}, "7"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
