package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crownkeys/internal/domain"
)

// OwnerOf answers the ownership guard's single question: who owns the
// resource of the given kind and id. The owner field is fetched fresh per
// check, never cached.
func (s *Store) OwnerOf(ctx context.Context, kind domain.ResourceKind, id int64) (string, error) {
	var table, ownerCol string
	switch kind {
	case domain.KindListing:
		table, ownerCol = "listings", "user_id"
	case domain.KindAgent:
		table, ownerCol = "agents", "user_id"
	case domain.KindProperty:
		table, ownerCol = "properties", "owner_id"
	default:
		return "", fmt.Errorf("unknown resource kind %d", kind)
	}
	defer s.observe(ctx, table, time.Now())

	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT `+ownerCol+` FROM `+table+` WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("owner lookup in %s: %w", table, err)
	}
	return owner, nil
}
