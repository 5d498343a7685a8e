// Package testutil holds helpers shared by the package tests: local token
// minting, a mock identity provider and an in-memory user directory.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crownkeys/internal/domain"
)

// IssueLocalToken creates an HS256-signed token in the service's local
// format. A negative ttl produces an already-expired token.
func IssueLocalToken(t *testing.T, secret []byte, user domain.User, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role.String(),
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// MockIdentityHandler emulates the hosted identity provider's auth API.
// It accepts exactly one bearer token and answers /auth/v1/user with the
// given identity; everything else is rejected with 401.
func MockIdentityHandler(accessToken string, ident domain.ExternalIdentity) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if got != accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		meta := make(map[string]any, len(ident.Metadata))
		for k, v := range ident.Metadata {
			meta[k] = v
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":            ident.ID,
			"email":         ident.Email,
			"user_metadata": meta,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	return mux
}

// Directory is an in-memory user directory keyed by id.
type Directory struct {
	Users map[string]domain.User
	Err   error // returned verbatim when set
}

// NewDirectory builds a directory holding the given users.
func NewDirectory(users ...domain.User) *Directory {
	d := &Directory{Users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		d.Users[u.ID] = u
	}
	return d
}

func (d *Directory) UserByID(ctx context.Context, id string) (domain.User, error) {
	if d.Err != nil {
		return domain.User{}, d.Err
	}
	u, ok := d.Users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}
