package auth

import (
	"context"
	"errors"
	"fmt"

	"crownkeys/internal/domain"
)

// UserDirectory is the read-only view of the application's user table the
// resolver needs. UserByID returns domain.ErrNotFound for absent rows.
type UserDirectory interface {
	UserByID(ctx context.Context, id string) (domain.User, error)
}

// Resolver maps a verified credential to an application Principal. It never
// writes to the directory; registration owns row creation.
type Resolver struct {
	directory UserDirectory
}

// NewResolver creates a resolver over the given directory.
func NewResolver(directory UserDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve returns the Principal for a verified credential.
//
// A directory row, when present, is authoritative and returned verbatim.
// An externally-verified identity without a row is not an error: the
// resolver synthesizes a Principal with the baseline role and whatever
// profile fields the provider's metadata carries. A locally-signed token
// whose subject has no row is rejected — local tokens are only issued to
// registered users.
func (r *Resolver) Resolve(ctx context.Context, v Verified) (domain.Principal, error) {
	var id string
	switch v.Source {
	case SourceExternal:
		id = v.External.ID
	case SourceLocal:
		id = v.Local.UserID
	}

	user, err := r.directory.UserByID(ctx, id)
	switch {
	case err == nil:
		return user.Principal(), nil
	case errors.Is(err, domain.ErrNotFound):
		if v.Source == SourceLocal {
			return domain.Principal{}, domain.ErrInvalidCredential
		}
		return synthesize(v.External), nil
	default:
		return domain.Principal{}, fmt.Errorf("directory lookup: %w", domain.ErrUpstream)
	}
}

func synthesize(ident domain.ExternalIdentity) domain.Principal {
	return domain.Principal{
		ID:        ident.ID,
		Email:     ident.Email,
		Role:      domain.RoleBuyer,
		FirstName: ident.Meta("first_name"),
		LastName:  ident.Meta("last_name"),
		Phone:     ident.Meta("phone"),
	}
}
