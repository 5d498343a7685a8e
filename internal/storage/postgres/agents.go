package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crownkeys/internal/domain"
)

const agentColumns = "id, user_id, agency, bio, city, state, profile_image, status, created_at, updated_at"

// Agents lists active agent profiles matching the filter.
func (s *Store) Agents(ctx context.Context, f domain.AgentFilter, p domain.Page) ([]domain.Agent, int, error) {
	defer s.observe(ctx, "agents", time.Now())

	b := &qb{}
	if f.Status != "" && f.Status != "all" {
		b.add("status = " + b.arg(f.Status))
	}
	if f.City != "" {
		b.add("city ILIKE " + b.arg("%"+f.City+"%"))
	}
	if f.State != "" {
		b.add("state ILIKE " + b.arg("%"+f.State+"%"))
	}

	total, err := s.count(ctx, "agents", b)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + agentColumns + ` FROM agents` + b.where() +
		` ORDER BY created_at DESC` +
		fmt.Sprintf(" OFFSET %s LIMIT %s", b.arg(p.Offset()), b.arg(p.Limit))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying agents: %w", err)
	}
	defer rows.Close()

	var out []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// AgentByID fetches an agent profile by its numeric id.
func (s *Store) AgentByID(ctx context.Context, id int64) (domain.Agent, error) {
	defer s.observe(ctx, "agents", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	return scanAgent(row)
}

// AgentByUserID fetches the agent profile owned by a user. Each user has at
// most one profile.
func (s *Store) AgentByUserID(ctx context.Context, userID string) (domain.Agent, error) {
	defer s.observe(ctx, "agents", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE user_id = $1`, userID)
	return scanAgent(row)
}

// CreateAgent inserts an agent profile. The unique index on user_id rejects
// a second profile for the same user; that surfaces as domain.ErrConflict.
func (s *Store) CreateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error) {
	defer s.observe(ctx, "agents", time.Now())

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO agents (user_id, agency, bio, city, state, profile_image, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		 RETURNING `+agentColumns,
		a.UserID, a.Agency, a.Bio, a.City, a.State, a.ProfileImage, domain.StatusActive)
	created, err := scanAgent(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Agent{}, domain.ErrConflict
		}
		return domain.Agent{}, fmt.Errorf("inserting agent: %w", err)
	}
	return created, nil
}

// AgentUpdate carries the mutable agent profile fields; nil means unchanged.
type AgentUpdate struct {
	Agency       *string
	Bio          *string
	City         *string
	State        *string
	ProfileImage *string
}

// UpdateAgent applies a partial update and returns the new row.
func (s *Store) UpdateAgent(ctx context.Context, id int64, upd AgentUpdate) (domain.Agent, error) {
	defer s.observe(ctx, "agents", time.Now())

	b := &qb{}
	var sets []string
	set := func(col string, v any) { sets = append(sets, col+" = "+b.arg(v)) }

	if upd.Agency != nil {
		set("agency", *upd.Agency)
	}
	if upd.Bio != nil {
		set("bio", *upd.Bio)
	}
	if upd.City != nil {
		set("city", *upd.City)
	}
	if upd.State != nil {
		set("state", *upd.State)
	}
	if upd.ProfileImage != nil {
		set("profile_image", *upd.ProfileImage)
	}
	if len(sets) == 0 {
		return s.AgentByID(ctx, id)
	}

	query := fmt.Sprintf(`UPDATE agents SET %s WHERE id = %s RETURNING `+agentColumns,
		joinSets(sets), b.arg(id))
	return scanAgent(s.db.QueryRowContext(ctx, query, b.args...))
}

// DeleteAgent removes an agent profile. Listings keep their rows; the
// foreign key sets their agent_id to NULL.
func (s *Store) DeleteAgent(ctx context.Context, id int64) error {
	defer s.observe(ctx, "agents", time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAgent(row rowScanner) (domain.Agent, error) {
	var a domain.Agent
	var profileImage sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.Agency, &a.Bio, &a.City, &a.State,
		&profileImage, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Agent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("scanning agent: %w", err)
	}
	a.ProfileImage = profileImage.String
	return a, nil
}
