// Package postgres implements the marketplace datastore on PostgreSQL with
// a filtered, paginated query surface over the marketplace collections.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"crownkeys/internal/platform/telemetry"
)

// Store is the PostgreSQL-backed datastore.
type Store struct {
	db      *sql.DB
	metrics *telemetry.Metrics
}

// Open connects to the database at dsn and verifies connectivity.
// The metrics parameter is optional; pass nil to skip query metrics.
func Open(dsn string, m *telemetry.Metrics) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Schema creation belongs to migrations; just verify connectivity.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return &Store{db: db, metrics: m}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) observe(ctx context.Context, collection string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(ctx, collection, time.Since(start).Seconds())
	}
}

// qb accumulates WHERE conditions with positional arguments.
type qb struct {
	conds []string
	args  []any
}

// arg registers a query argument and returns its placeholder.
func (b *qb) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// add appends a ready condition built with arg placeholders.
func (b *qb) add(cond string) { b.conds = append(b.conds, cond) }

// where returns the assembled WHERE clause, or empty when unfiltered.
func (b *qb) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// joinSets assembles an UPDATE's SET list, always touching updated_at.
func joinSets(sets []string) string {
	return strings.Join(append(sets, "updated_at = now()"), ", ")
}

// prefixColumns qualifies each column in a comma-separated list with a table
// alias, for SELECTs that join.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// orderBy validates the requested sort column against the collection's
// allowlist; anything else falls back to created_at descending. Sorting is
// the one place client input meets SQL text, so it never interpolates the
// raw value.
func orderBy(allowed map[string]bool, by string, ascending bool) string {
	if !allowed[by] {
		by = "created_at"
		ascending = false
	}
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", by, dir)
}
