package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crownkeys/internal/domain"
)

const userColumns = "id, email, role, first_name, last_name, phone, created_at"

// UserByID fetches a directory row. Returns domain.ErrNotFound for absent rows.
func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	defer s.observe(ctx, "users", time.Now())

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UserByEmail fetches a directory row by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	defer s.observe(ctx, "users", time.Now())

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// CreateUser inserts a directory row for a freshly registered identity.
func (s *Store) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	defer s.observe(ctx, "users", time.Now())

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (id, email, role, first_name, last_name, phone, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 RETURNING `+userColumns,
		u.ID, u.Email, u.Role.String(), u.FirstName, u.LastName, u.Phone)
	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return created, nil
}

// UserUpdate carries the mutable profile fields. Nil means unchanged;
// id, email, role and created_at are immutable through this path.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// UpdateUser applies a partial profile update and returns the new row.
func (s *Store) UpdateUser(ctx context.Context, id string, upd UserUpdate) (domain.User, error) {
	defer s.observe(ctx, "users", time.Now())

	b := &qb{}
	var sets []string
	if upd.FirstName != nil {
		sets = append(sets, "first_name = "+b.arg(*upd.FirstName))
	}
	if upd.LastName != nil {
		sets = append(sets, "last_name = "+b.arg(*upd.LastName))
	}
	if upd.Phone != nil {
		sets = append(sets, "phone = "+b.arg(*upd.Phone))
	}
	if len(sets) == 0 {
		return s.UserByID(ctx, id)
	}

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = %s RETURNING `+userColumns,
		joinSets(sets), b.arg(id))
	return scanUser(s.db.QueryRowContext(ctx, query, b.args...))
}

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &role, &u.FirstName, &u.LastName, &u.Phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scanning user: %w", err)
	}
	u.Role = domain.RoleOrBaseline(role)
	return u, nil
}
