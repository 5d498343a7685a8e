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

// AddFavorite saves a property for a buyer. A duplicate save is a conflict.
func (s *Store) AddFavorite(ctx context.Context, buyerID string, propertyID int64) (domain.Favorite, error) {
	defer s.observe(ctx, "favorites", time.Now())

	var f domain.Favorite
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO favorites (buyer_id, property_id, created_at)
		 VALUES ($1, $2, now())
		 RETURNING id, buyer_id, property_id, created_at`,
		buyerID, propertyID).
		Scan(&f.ID, &f.BuyerID, &f.PropertyID, &f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Favorite{}, domain.ErrConflict
		}
		return domain.Favorite{}, fmt.Errorf("inserting favorite: %w", err)
	}
	return f, nil
}

// RemoveFavorite deletes a buyer's save of a property.
func (s *Store) RemoveFavorite(ctx context.Context, buyerID string, propertyID int64) error {
	defer s.observe(ctx, "favorites", time.Now())

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE buyer_id = $1 AND property_id = $2`,
		buyerID, propertyID)
	if err != nil {
		return fmt.Errorf("deleting favorite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Favorites returns a buyer's saved properties, newest save first, with the
// property row embedded.
func (s *Store) Favorites(ctx context.Context, buyerID string, p domain.Page) ([]domain.Favorite, int, error) {
	defer s.observe(ctx, "favorites", time.Now())

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM favorites WHERE buyer_id = $1`, buyerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting favorites: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.buyer_id, f.property_id, f.created_at, `+prefixColumns("p", propertyColumns)+`
		 FROM favorites f JOIN properties p ON p.id = f.property_id
		 WHERE f.buyer_id = $1
		 ORDER BY f.created_at DESC OFFSET $2 LIMIT $3`,
		buyerID, p.Offset(), p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("querying favorites: %w", err)
	}
	defer rows.Close()

	var out []domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		var prop domain.Property
		var amenities, photos pq.StringArray
		err := rows.Scan(&f.ID, &f.BuyerID, &f.PropertyID, &f.CreatedAt,
			&prop.ID, &prop.OwnerID, &prop.Title, &prop.Description, &prop.Price, &prop.Size,
			&prop.PropertyType, &prop.Address, &prop.City, &prop.State, &prop.ZipCode, &prop.Location,
			&prop.Bedrooms, &prop.Bathrooms, &amenities, &photos, &prop.Status,
			&prop.CreatedAt, &prop.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning favorite: %w", err)
		}
		prop.Amenities = amenities
		prop.Photos = photos
		f.Property = &prop
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// FavoritePropertyIDs returns which of the given property ids the buyer has
// saved, for flagging results on public reads.
func (s *Store) FavoritePropertyIDs(ctx context.Context, buyerID string, propertyIDs []int64) (map[int64]bool, error) {
	defer s.observe(ctx, "favorites", time.Now())

	if len(propertyIDs) == 0 {
		return map[int64]bool{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT property_id FROM favorites WHERE buyer_id = $1 AND property_id = ANY($2)`,
		buyerID, pq.Array(propertyIDs))
	if err != nil {
		return nil, fmt.Errorf("querying favorite ids: %w", err)
	}
	defer rows.Close()

	saved := make(map[int64]bool, len(propertyIDs))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning favorite id: %w", err)
		}
		saved[id] = true
	}
	return saved, rows.Err()
}

// CreateInterest records a buyer's visit request on a property.
func (s *Store) CreateInterest(ctx context.Context, in domain.Interest) (domain.Interest, error) {
	defer s.observe(ctx, "interests", time.Now())

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO interests (buyer_id, property_id, message, preferred_date, contact_method, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 RETURNING id, buyer_id, property_id, message, preferred_date, contact_method, status, created_at`,
		in.BuyerID, in.PropertyID, in.Message, in.PreferredDate, in.ContactMethod, domain.StatusPending)
	created, err := scanInterest(row)
	if err != nil {
		return domain.Interest{}, fmt.Errorf("inserting interest: %w", err)
	}
	return created, nil
}

// Interests lists a buyer's interests, optionally filtered by status.
func (s *Store) Interests(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Interest, int, error) {
	defer s.observe(ctx, "interests", time.Now())

	b := &qb{}
	b.add("buyer_id = " + b.arg(f.BuyerID))
	if f.Status != "" && f.Status != "all" {
		b.add("status = " + b.arg(f.Status))
	}

	total, err := s.count(ctx, "interests", b)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT id, buyer_id, property_id, message, preferred_date, contact_method, status, created_at
		 FROM interests` + b.where() +
		fmt.Sprintf(" ORDER BY created_at DESC OFFSET %s LIMIT %s", b.arg(p.Offset()), b.arg(p.Limit))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying interests: %w", err)
	}
	defer rows.Close()

	var out []domain.Interest
	for rows.Next() {
		in, err := scanInterest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, in)
	}
	return out, total, rows.Err()
}

// PendingInterest reports whether the buyer already has a pending interest
// on the property.
func (s *Store) PendingInterest(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	defer s.observe(ctx, "interests", time.Now())

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM interests WHERE buyer_id = $1 AND property_id = $2 AND status = $3)`,
		buyerID, propertyID, domain.StatusPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking pending interest: %w", err)
	}
	return exists, nil
}

// CreateOffer records a buyer's offer on a property.
func (s *Store) CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	defer s.observe(ctx, "offers", time.Now())

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO offers (buyer_id, property_id, owner_id, offer_amount, message, offer_type,
			contingencies, closing_date, earnest_money, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		 RETURNING `+offerColumns,
		o.BuyerID, o.PropertyID, o.OwnerID, o.Amount, o.Message, o.OfferType,
		pq.Array(o.Contingencies), o.ClosingDate, o.EarnestMoney, domain.StatusPending)
	created, err := scanOffer(row)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("inserting offer: %w", err)
	}
	return created, nil
}

const offerColumns = `id, buyer_id, property_id, owner_id, offer_amount, message, offer_type,
	contingencies, closing_date, earnest_money, status, created_at`

// Offers lists a buyer's offers, optionally filtered by status.
func (s *Store) Offers(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Offer, int, error) {
	defer s.observe(ctx, "offers", time.Now())

	b := &qb{}
	b.add("buyer_id = " + b.arg(f.BuyerID))
	if f.Status != "" && f.Status != "all" {
		b.add("status = " + b.arg(f.Status))
	}

	total, err := s.count(ctx, "offers", b)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + offerColumns + ` FROM offers` + b.where() +
		fmt.Sprintf(" ORDER BY created_at DESC OFFSET %s LIMIT %s", b.arg(p.Offset()), b.arg(p.Limit))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying offers: %w", err)
	}
	defer rows.Close()

	var out []domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// PendingOffer reports whether the buyer already has a pending offer on the
// property.
func (s *Store) PendingOffer(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	defer s.observe(ctx, "offers", time.Now())

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM offers WHERE buyer_id = $1 AND property_id = $2 AND status = $3)`,
		buyerID, propertyID, domain.StatusPending).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking pending offer: %w", err)
	}
	return exists, nil
}

// AcceptedOffer fetches the buyer's accepted offer on the property, the
// precondition for initiating a purchase.
func (s *Store) AcceptedOffer(ctx context.Context, buyerID string, propertyID int64) (domain.Offer, error) {
	defer s.observe(ctx, "offers", time.Now())

	row := s.db.QueryRowContext(ctx,
		`SELECT `+offerColumns+` FROM offers
		 WHERE buyer_id = $1 AND property_id = $2 AND status = $3
		 ORDER BY created_at DESC LIMIT 1`,
		buyerID, propertyID, domain.StatusAccepted)
	return scanOffer(row)
}

// CreatePurchase records an initiated purchase backed by an accepted offer.
func (s *Store) CreatePurchase(ctx context.Context, pu domain.Purchase) (domain.Purchase, error) {
	defer s.observe(ctx, "purchases", time.Now())

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO purchases (buyer_id, property_id, owner_id, offer_id, purchase_type,
			advance_amount, remaining_amount, payment_method, financing_details,
			closing_date, notes, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		 RETURNING `+purchaseColumns,
		pu.BuyerID, pu.PropertyID, pu.OwnerID, pu.OfferID, pu.PurchaseType,
		pu.AdvanceAmount, pu.RemainingAmount, pu.PaymentMethod, pu.FinancingDetails,
		pu.ClosingDate, pu.Notes, domain.StatusPending)
	created, err := scanPurchase(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Purchase{}, domain.ErrConflict
		}
		return domain.Purchase{}, fmt.Errorf("inserting purchase: %w", err)
	}
	return created, nil
}

const purchaseColumns = `id, buyer_id, property_id, owner_id, offer_id, purchase_type,
	advance_amount, remaining_amount, payment_method, financing_details,
	closing_date, notes, status, created_at`

// Purchases lists a buyer's purchases, optionally filtered by status.
func (s *Store) Purchases(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Purchase, int, error) {
	defer s.observe(ctx, "purchases", time.Now())

	b := &qb{}
	b.add("buyer_id = " + b.arg(f.BuyerID))
	if f.Status != "" && f.Status != "all" {
		b.add("status = " + b.arg(f.Status))
	}

	total, err := s.count(ctx, "purchases", b)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + purchaseColumns + ` FROM purchases` + b.where() +
		fmt.Sprintf(" ORDER BY created_at DESC OFFSET %s LIMIT %s", b.arg(p.Offset()), b.arg(p.Limit))

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying purchases: %w", err)
	}
	defer rows.Close()

	var out []domain.Purchase
	for rows.Next() {
		pu, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, pu)
	}
	return out, total, rows.Err()
}

// ActivePurchase reports whether the buyer has a pending or accepted
// purchase on the property.
func (s *Store) ActivePurchase(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	defer s.observe(ctx, "purchases", time.Now())

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM purchases
			WHERE buyer_id = $1 AND property_id = $2 AND status IN ($3, $4))`,
		buyerID, propertyID, domain.StatusPending, domain.StatusAccepted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking active purchase: %w", err)
	}
	return exists, nil
}

// BuyerStats summarizes a buyer's activity for the dashboard.
type BuyerStats struct {
	Favorites        int `json:"total_favorites"`
	Interests        int `json:"total_interests"`
	PendingInterests int `json:"pending_interests"`
	Offers           int `json:"total_offers"`
	PendingOffers    int `json:"pending_offers"`
	AcceptedOffers   int `json:"accepted_offers"`
	Purchases        int `json:"total_purchases"`
}

// BuyerDashboard aggregates a buyer's activity counts in one round trip.
func (s *Store) BuyerDashboard(ctx context.Context, buyerID string) (BuyerStats, error) {
	defer s.observe(ctx, "dashboard", time.Now())

	var st BuyerStats
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT count(*) FROM favorites WHERE buyer_id = $1),
			(SELECT count(*) FROM interests WHERE buyer_id = $1),
			(SELECT count(*) FROM interests WHERE buyer_id = $1 AND status = $2),
			(SELECT count(*) FROM offers WHERE buyer_id = $1),
			(SELECT count(*) FROM offers WHERE buyer_id = $1 AND status = $2),
			(SELECT count(*) FROM offers WHERE buyer_id = $1 AND status = $3),
			(SELECT count(*) FROM purchases WHERE buyer_id = $1)`,
		buyerID, domain.StatusPending, domain.StatusAccepted).
		Scan(&st.Favorites, &st.Interests, &st.PendingInterests,
			&st.Offers, &st.PendingOffers, &st.AcceptedOffers, &st.Purchases)
	if err != nil {
		return BuyerStats{}, fmt.Errorf("buyer dashboard: %w", err)
	}
	return st, nil
}

func scanInterest(row rowScanner) (domain.Interest, error) {
	var in domain.Interest
	var preferred sql.NullTime
	err := row.Scan(&in.ID, &in.BuyerID, &in.PropertyID, &in.Message, &preferred,
		&in.ContactMethod, &in.Status, &in.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Interest{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Interest{}, fmt.Errorf("scanning interest: %w", err)
	}
	if preferred.Valid {
		in.PreferredDate = &preferred.Time
	}
	return in, nil
}

func scanOffer(row rowScanner) (domain.Offer, error) {
	var o domain.Offer
	var contingencies pq.StringArray
	var closing sql.NullTime
	var earnest sql.NullFloat64
	err := row.Scan(&o.ID, &o.BuyerID, &o.PropertyID, &o.OwnerID, &o.Amount, &o.Message,
		&o.OfferType, &contingencies, &closing, &earnest, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Offer{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Offer{}, fmt.Errorf("scanning offer: %w", err)
	}
	o.Contingencies = contingencies
	if closing.Valid {
		o.ClosingDate = &closing.Time
	}
	if earnest.Valid {
		o.EarnestMoney = &earnest.Float64
	}
	return o, nil
}

func scanPurchase(row rowScanner) (domain.Purchase, error) {
	var pu domain.Purchase
	var closing sql.NullTime
	var payment, financing, notes sql.NullString
	err := row.Scan(&pu.ID, &pu.BuyerID, &pu.PropertyID, &pu.OwnerID, &pu.OfferID,
		&pu.PurchaseType, &pu.AdvanceAmount, &pu.RemainingAmount,
		&payment, &financing, &closing, &notes, &pu.Status, &pu.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Purchase{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Purchase{}, fmt.Errorf("scanning purchase: %w", err)
	}
	pu.PaymentMethod = payment.String
	pu.FinancingDetails = financing.String
	if closing.Valid {
		pu.ClosingDate = &closing.Time
	}
	pu.Notes = notes.String
	return pu, nil
}
