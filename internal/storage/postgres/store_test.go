package postgres

import (
	"strings"
	"testing"
)

func TestQueryBuilder(t *testing.T) {
	b := &qb{}

	if got := b.where(); got != "" {
		t.Errorf("unfiltered builder should produce no WHERE, got %q", got)
	}

	b.add("city ILIKE " + b.arg("%austin%"))
	b.add("price >= " + b.arg(100000.0))

	want := " WHERE city ILIKE $1 AND price >= $2"
	if got := b.where(); got != want {
		t.Errorf("where() = %q, want %q", got, want)
	}
	if len(b.args) != 2 {
		t.Errorf("expected 2 args, got %d", len(b.args))
	}
}

func TestOrderByAllowlist(t *testing.T) {
	allowed := map[string]bool{"price": true, "created_at": true}

	if got := orderBy(allowed, "price", true); got != " ORDER BY price ASC" {
		t.Errorf("unexpected order clause: %q", got)
	}
	// Unknown columns never reach SQL.
	if got := orderBy(allowed, "password; DROP TABLE users", true); got != " ORDER BY created_at DESC" {
		t.Errorf("disallowed column should fall back: %q", got)
	}
	if got := orderBy(allowed, "", false); got != " ORDER BY created_at DESC" {
		t.Errorf("empty column should fall back: %q", got)
	}
}

func TestJoinSets(t *testing.T) {
	got := joinSets([]string{"title = $1", "price = $2"})
	if got != "title = $1, price = $2, updated_at = now()" {
		t.Errorf("joinSets() = %q", got)
	}
	if got := joinSets(nil); got != "updated_at = now()" {
		t.Errorf("empty set list should still touch updated_at, got %q", got)
	}
}

func TestPrefixColumns(t *testing.T) {
	got := prefixColumns("p", "id, title,price")
	if got != "p.id, p.title, p.price" {
		t.Errorf("prefixColumns() = %q", got)
	}
	if strings.Contains(got, " ,") {
		t.Errorf("ragged spacing in %q", got)
	}
}
