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

const propertyColumns = `id, owner_id, title, description, price, size, property_type,
	address, city, state, zip_code, location, bedrooms, bathrooms,
	amenities, photos, status, created_at, updated_at`

var propertySortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"price":      true,
	"size":       true,
	"bedrooms":   true,
}

// Properties returns properties matching the filter plus the exact count of
// all matches (for pagination), independent of the page bounds.
func (s *Store) Properties(ctx context.Context, f domain.PropertyFilter, p domain.Page) ([]domain.Property, int, error) {
	defer s.observe(ctx, "properties", time.Now())

	b := &qb{}
	propertyFilterConds(b, f)

	total, err := s.count(ctx, "properties", b)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + propertyColumns + ` FROM properties` + b.where() +
		orderBy(propertySortColumns, f.Sort.By, f.Sort.Ascending) +
		fmt.Sprintf(" OFFSET %s LIMIT %s", b.arg(p.Offset()), b.arg(p.Limit))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, prop)
	}
	return out, total, rows.Err()
}

// PropertyByID fetches a property regardless of status.
func (s *Store) PropertyByID(ctx context.Context, id int64) (domain.Property, error) {
	defer s.observe(ctx, "properties", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	return scanProperty(row)
}

// ActivePropertyByID fetches a property only if it is active; inactive and
// missing properties are indistinguishable to buyers.
func (s *Store) ActivePropertyByID(ctx context.Context, id int64) (domain.Property, error) {
	defer s.observe(ctx, "properties", time.Now())
	row := s.db.QueryRowContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1 AND status = $2`,
		id, domain.StatusActive)
	return scanProperty(row)
}

// CreateProperty inserts a property owned by prop.OwnerID.
func (s *Store) CreateProperty(ctx context.Context, prop domain.Property) (domain.Property, error) {
	defer s.observe(ctx, "properties", time.Now())

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO properties (owner_id, title, description, price, size, property_type,
			address, city, state, zip_code, location, bedrooms, bathrooms,
			amenities, photos, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
		 RETURNING `+propertyColumns,
		prop.OwnerID, prop.Title, prop.Description, prop.Price, prop.Size, prop.PropertyType,
		prop.Address, prop.City, prop.State, prop.ZipCode, prop.Location,
		prop.Bedrooms, prop.Bathrooms,
		pq.Array(prop.Amenities), pq.Array(prop.Photos), domain.StatusActive)
	created, err := scanProperty(row)
	if err != nil {
		return domain.Property{}, fmt.Errorf("inserting property: %w", err)
	}
	return created, nil
}

// PropertyUpdate carries the mutable property fields; nil means unchanged.
type PropertyUpdate struct {
	Title        *string
	Description  *string
	Price        *float64
	Size         *float64
	PropertyType *string
	Address      *string
	City         *string
	State        *string
	ZipCode      *string
	Location     *string
	Bedrooms     *int
	Bathrooms    *float64
	Amenities    *[]string
	Photos       *[]string
}

// UpdateProperty applies a partial update and returns the new row.
func (s *Store) UpdateProperty(ctx context.Context, id int64, upd PropertyUpdate) (domain.Property, error) {
	defer s.observe(ctx, "properties", time.Now())

	b := &qb{}
	var sets []string
	set := func(col string, v any) { sets = append(sets, col+" = "+b.arg(v)) }

	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Price != nil {
		set("price", *upd.Price)
	}
	if upd.Size != nil {
		set("size", *upd.Size)
	}
	if upd.PropertyType != nil {
		set("property_type", *upd.PropertyType)
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
	if upd.Location != nil {
		set("location", *upd.Location)
	}
	if upd.Bedrooms != nil {
		set("bedrooms", *upd.Bedrooms)
	}
	if upd.Bathrooms != nil {
		set("bathrooms", *upd.Bathrooms)
	}
	if upd.Amenities != nil {
		set("amenities", pq.Array(*upd.Amenities))
	}
	if upd.Photos != nil {
		set("photos", pq.Array(*upd.Photos))
	}
	if len(sets) == 0 {
		return s.PropertyByID(ctx, id)
	}

	query := fmt.Sprintf(`UPDATE properties SET %s WHERE id = %s RETURNING `+propertyColumns,
		joinSets(sets), b.arg(id))
	return scanProperty(s.db.QueryRowContext(ctx, query, b.args...))
}

// SetPropertyStatus flips a property between active and inactive.
func (s *Store) SetPropertyStatus(ctx context.Context, id int64, status string) (domain.Property, error) {
	defer s.observe(ctx, "properties", time.Now())
	row := s.db.QueryRowContext(ctx,
		`UPDATE properties SET status = $1, updated_at = now() WHERE id = $2 RETURNING `+propertyColumns,
		status, id)
	return scanProperty(row)
}

// DeleteProperty removes a property row.
func (s *Store) DeleteProperty(ctx context.Context, id int64) error {
	defer s.observe(ctx, "properties", time.Now())

	res, err := s.db.ExecContext(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// OwnerStats summarizes an owner's portfolio by status.
type OwnerStats struct {
	Total    int `json:"total_properties"`
	Active   int `json:"active_properties"`
	Inactive int `json:"inactive_properties"`
}

// OwnerPropertyStats counts the owner's properties per status.
func (s *Store) OwnerPropertyStats(ctx context.Context, ownerID string) (OwnerStats, error) {
	defer s.observe(ctx, "properties", time.Now())

	var st OwnerStats
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*),
			count(*) FILTER (WHERE status = $2),
			count(*) FILTER (WHERE status = $3)
		 FROM properties WHERE owner_id = $1`,
		ownerID, domain.StatusActive, domain.StatusInactive).
		Scan(&st.Total, &st.Active, &st.Inactive)
	if err != nil {
		return OwnerStats{}, fmt.Errorf("owner stats: %w", err)
	}
	return st, nil
}

func propertyFilterConds(b *qb, f domain.PropertyFilter) {
	if f.OwnerID != "" {
		b.add("owner_id = " + b.arg(f.OwnerID))
	}
	if f.Status != "" && f.Status != "all" {
		b.add("status = " + b.arg(f.Status))
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
	if f.SizeMin != nil {
		b.add("size >= " + b.arg(*f.SizeMin))
	}
	if f.SizeMax != nil {
		b.add("size <= " + b.arg(*f.SizeMax))
	}
	if f.Bedrooms != nil {
		b.add("bedrooms = " + b.arg(*f.Bedrooms))
	}
	if f.BathroomsMin != nil {
		b.add("bathrooms >= " + b.arg(*f.BathroomsMin))
	}
	if f.Search != "" {
		pat := "%" + f.Search + "%"
		b.add(fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR address ILIKE %s)",
			b.arg(pat), b.arg(pat), b.arg(pat)))
	}
}

// count runs an exact count with the builder's current conditions, before
// pagination arguments are appended.
func (s *Store) count(ctx context.Context, table string, b *qb) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM `+table+b.where(), b.args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProperty(row rowScanner) (domain.Property, error) {
	var p domain.Property
	var amenities, photos pq.StringArray
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.Price, &p.Size,
		&p.PropertyType, &p.Address, &p.City, &p.State, &p.ZipCode, &p.Location,
		&p.Bedrooms, &p.Bathrooms, &amenities, &photos, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("scanning property: %w", err)
	}
	p.Amenities = amenities
	p.Photos = photos
	return p, nil
}
