package domain

import "math"

// Page is offset/limit pagination as requested by a client.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Clamped normalizes out-of-range values to sane defaults.
func (p Page) Clamped(defaultLimit int) Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Pagination is the envelope echoed back alongside paginated results.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the pagination envelope for total matching rows.
func NewPagination(p Page, total int) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages}
}

// Sort is an ordering request validated against a per-collection allowlist
// before it reaches SQL.
type Sort struct {
	By        string
	Ascending bool
}

// PropertyFilter selects properties. Nil fields are not applied.
type PropertyFilter struct {
	OwnerID      string
	Status       string // empty means active-only for public reads, "all" disables
	PropertyType string
	City         string // ILIKE substring
	State        string // ILIKE substring
	PriceMin     *float64
	PriceMax     *float64
	SizeMin      *float64
	SizeMax      *float64
	Bedrooms     *int
	BathroomsMin *float64
	Search       string // OR over title/description/address
	Sort         Sort
}

// ListingFilter selects listings. Nil fields are not applied.
type ListingFilter struct {
	UserID       string
	AgentID      *int64
	Status       string
	Type         string // sale | rent
	PropertyType string
	City         string
	State        string
	PriceMin     *float64
	PriceMax     *float64
	Bedrooms     *int
	BathroomsMin *float64
	Search       string // OR over title/description/address/city
	Sort         Sort
}

// AgentFilter selects agent profiles.
type AgentFilter struct {
	Status string
	City   string
	State  string
}

// ActivityFilter selects a buyer's interests/offers/purchases.
type ActivityFilter struct {
	BuyerID string
	Status  string // empty or "all" disables the status filter
}
