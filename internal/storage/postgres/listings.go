package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"crownkeys/internal/domain"
)

const listingColumns = `id, user_id, agent_id, title, description, type, property_type,
	price, bedrooms, bathrooms, area, address, city, state, zip_code,
	images, status, views, created_at, updated_at`

var listingSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"price":      true,
	"area":       true,
	"bedrooms":   true,
	"views":      true,
}

// Listings returns listings matching the filter plus the exact count of all
// matches for pagination.
func (s *Store) Listings(ctx context.Context, f domain.ListingFilter, p domain.Page) ([]domain.Listing, int, error) {
	defer s.observe(ctx, "listings", time.Now())

	b := &qb{}
	listingFilterConds(b, f)

	total, err := s.count(ctx, "listings", b)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + listingColumns + ` FROM listings` + b.where() +
		orderBy(listingSortColumns, f.Sort.By, f.Sort.Ascending) +
		fmt.Sprintf(" OFFSET %s LIMIT %s", b.arg(p.Offset()), b.arg(p.Limit))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// ListingByID fetches a listing by id.
func (s *Store) ListingByID(ctx context.Context, id int64) (domain.Listing, error) {
	defer s.observe(ctx, "listings", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	return scanListing(row)
}

// IncrementListingViews bumps the view counter. The increment happens in
// SQL so concurrent reads never lose counts.
func (s *Store) IncrementListingViews(ctx context.Context, id int64) error {
	defer s.observe(ctx, "listings", time.Now())

	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("incrementing views: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateListing inserts a listing owned by l.UserID.
func (s *Store) CreateListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	defer s.observe(ctx, "listings", time.Now())

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO listings (user_id, agent_id, title, description, type, property_type,
			price, bedrooms, bathrooms, area, address, city, state, zip_code,
			images, status, views, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,0,now(),now())
		 RETURNING `+listingColumns,
		l.UserID, l.AgentID, l.Title, l.Description, l.Type, l.PropertyType,
		l.Price, l.Bedrooms, l.Bathrooms, l.Area, l.Address, l.City, l.State, l.ZipCode,
		pq.Array(l.Images), domain.StatusActive)
	created, err := scanListing(row)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("inserting listing: %w", err)
	}
	return created, nil
}

// ListingUpdate carries the mutable listing fields; nil means unchanged.
type ListingUpdate struct {
	AgentID      *int64
	Title        *string
	Description  *string
	Type         *string
	PropertyType *string
	Price        *float64
	Bedrooms     *int
	Bathrooms    *float64
	Area         *float64
	Address      *string
	City         *string
	State        *string
	ZipCode      *string
	Images       *[]string
	Status       *string
}

// UpdateListing applies a partial update and returns the new row.
func (s *Store) UpdateListing(ctx context.Context, id int64, upd ListingUpdate) (domain.Listing, error) {
	defer s.observe(ctx, "listings", time.Now())

	b := &qb{}
	var sets []string
	set := func(col string, v any) { sets = append(sets, col+" = "+b.arg(v)) }

	if upd.AgentID != nil {
		set("agent_id", *upd.AgentID)
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Type != nil {
		set("type", *upd.Type)
	}
	if upd.PropertyType != nil {
		set("property_type", *upd.PropertyType)
	}
	if upd.Price != nil {
		set("price", *upd.Price)
	}
	if upd.Bedrooms != nil {
		set("bedrooms", *upd.Bedrooms)
	}
	if upd.Bathrooms != nil {
		set("bathrooms", *upd.Bathrooms)
	}
	if upd.Area != nil {
		set("area", *upd.Area)
	}
	if upd.Address != nil {
		set("address", *upd.Address)
	}
	if upd.City != nil {
		set("city", *upd.City)
	}
	if upd.State != nil {
		set("state", *upd.State)
	}
	if upd.ZipCode != nil {
		set("zip_code", *upd.ZipCode)
	}
	if upd.Images != nil {
		set("images", pq.Array(*upd.Images))
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if len(sets) == 0 {
		return s.ListingByID(ctx, id)
	}

	query := fmt.Sprintf(`UPDATE listings SET %s WHERE id = %s RETURNING `+listingColumns,
		joinSets(sets), b.arg(id))
	return scanListing(s.db.QueryRowContext(ctx, query, b.args...))
}

// DeleteListing removes a listing. Saved-listing rows go with it via the
// foreign key cascade.
func (s *Store) DeleteListing(ctx context.Context, id int64) error {
	defer s.observe(ctx, "listings", time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ToggleListingFavorite saves the listing for the user, or removes the save
// if it exists. It reports whether the listing is saved after the call.
func (s *Store) ToggleListingFavorite(ctx context.Context, userID string, listingID int64) (bool, error) {
	defer s.observe(ctx, "listing_favorites", time.Now())

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM listing_favorites WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID)
	if err != nil {
		return false, fmt.Errorf("removing saved listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO listing_favorites (user_id, listing_id, created_at) VALUES ($1, $2, now())`,
		userID, listingID)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent toggle; the save exists.
			return true, nil
		}
		return false, fmt.Errorf("saving listing: %w", err)
	}
	return true, nil
}

// SavedListings returns the listings a user has saved, newest save first.
func (s *Store) SavedListings(ctx context.Context, userID string, p domain.Page) ([]domain.Listing, int, error) {
	defer s.observe(ctx, "listing_favorites", time.Now())

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM listing_favorites WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting saved listings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixColumns("l", listingColumns)+`
		 FROM listing_favorites f JOIN listings l ON l.id = f.listing_id
		 WHERE f.user_id = $1
		 ORDER BY f.created_at DESC OFFSET $2 LIMIT $3`,
		userID, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("querying saved listings: %w", err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func listingFilterConds(b *qb, f domain.ListingFilter) {
	if f.UserID != "" {
		b.add("user_id = " + b.arg(f.UserID))
	}
	if f.AgentID != nil {
		b.add("agent_id = " + b.arg(*f.AgentID))
	}
	if f.Status != "" && f.Status != "all" {
		b.add("status = " + b.arg(f.Status))
	}
	if f.Type != "" {
		b.add("type = " + b.arg(f.Type))
	}
	if f.PropertyType != "" {
		b.add("property_type = " + b.arg(f.PropertyType))
	}
	if f.City != "" {
		b.add("city ILIKE " + b.arg("%"+f.City+"%"))
	}
	if f.State != "" {
		b.add("state ILIKE " + b.arg("%"+f.State+"%"))
	}
	if f.PriceMin != nil {
		b.add("price >= " + b.arg(*f.PriceMin))
	}
	if f.PriceMax != nil {
		b.add("price <= " + b.arg(*f.PriceMax))
	}
	if f.Bedrooms != nil {
		b.add("bedrooms = " + b.arg(*f.Bedrooms))
	}
	if f.BathroomsMin != nil {
		b.add("bathrooms >= " + b.arg(*f.BathroomsMin))
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		b.add(fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR address ILIKE %s OR city ILIKE %s)",
			b.arg(pat), b.arg(pat), b.arg(pat), b.arg(pat)))
	}
}

func scanListing(row rowScanner) (domain.Listing, error) {
	var l domain.Listing
	var agentID sql.NullInt64
	var images pq.StringArray
	err := row.Scan(&l.ID, &l.UserID, &agentID, &l.Title, &l.Description, &l.Type,
		&l.PropertyType, &l.Price, &l.Bedrooms, &l.Bathrooms, &l.Area,
		&l.Address, &l.City, &l.State, &l.ZipCode, &images, &l.Status, &l.Views,
		&l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Listing{}, fmt.Errorf("scanning listing: %w", err)
	}
	if agentID.Valid {
		l.AgentID = &agentID.Int64
	}
	l.Images = images
	return l, nil
}
