package domain

import "time"

// ResourceKind tags a resource type for ownership checks.
type ResourceKind int

const (
	KindListing ResourceKind = iota
	KindAgent
	KindProperty
)

func (k ResourceKind) String() string {
	switch k {
	case KindListing:
		return "listing"
	case KindAgent:
		return "agent"
	case KindProperty:
		return "property"
	default:
		return "unknown"
	}
}

// User is a row in the application's user directory. The id comes from the
// identity provider; the row itself carries the authoritative role.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal returns the request-scoped identity for this user.
func (u User) Principal() Principal {
	return Principal{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}

// Agent is a public agent profile owned by a user.
type Agent struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Agency       string    `json:"agency"`
	Bio          string    `json:"bio"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Listing is a sale/rent listing created by a user, optionally tied to an
// agent profile.
type Listing struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	AgentID      *int64    `json:"agent_id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Type         string    `json:"type"` // sale | rent
	PropertyType string    `json:"property_type"`
	Price        float64   `json:"price"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	Area         float64   `json:"area"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zip_code,omitempty"`
	Images       []string  `json:"images"`
	Status       string    `json:"status"`
	Views        int       `json:"views"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Property is an owner-managed property open to buyer interactions.
type Property struct {
	ID           int64     `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	Size         float64   `json:"size"`
	PropertyType string    `json:"property_type"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zip_code,omitempty"`
	Location     string    `json:"location,omitempty"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    float64   `json:"bathrooms"`
	Amenities    []string  `json:"amenities"`
	Photos       []string  `json:"photos"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Statuses shared by listings and properties.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Favorite marks a property saved by a buyer.
type Favorite struct {
	ID         int64     `json:"id"`
	BuyerID    string    `json:"buyer_id"`
	PropertyID int64     `json:"property_id"`
	Property   *Property `json:"property,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Interest is a buyer's visit request / expression of interest.
type Interest struct {
	ID            int64      `json:"id"`
	BuyerID       string     `json:"buyer_id"`
	PropertyID    int64      `json:"property_id"`
	Message       string     `json:"message"`
	PreferredDate *time.Time `json:"preferred_date,omitempty"`
	ContactMethod string     `json:"contact_method"`
	Status        string     `json:"status"`
	Property      *Property  `json:"property,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Offer is a buyer's offer on a property.
type Offer struct {
	ID            int64      `json:"id"`
	BuyerID       string     `json:"buyer_id"`
	PropertyID    int64      `json:"property_id"`
	OwnerID       string     `json:"owner_id"`
	Amount        float64    `json:"offer_amount"`
	Message       string     `json:"message"`
	OfferType     string     `json:"offer_type"`
	Contingencies []string   `json:"contingencies"`
	ClosingDate   *time.Time `json:"closing_date,omitempty"`
	EarnestMoney  *float64   `json:"earnest_money,omitempty"`
	Status        string     `json:"status"`
	Property      *Property  `json:"property,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Offer/interest/purchase lifecycle states.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Purchase records an initiated purchase backed by an accepted offer.
type Purchase struct {
	ID               int64      `json:"id"`
	BuyerID          string     `json:"buyer_id"`
	PropertyID       int64      `json:"property_id"`
	OwnerID          string     `json:"owner_id"`
	OfferID          int64      `json:"offer_id"`
	PurchaseType     string     `json:"purchase_type"`
	AdvanceAmount    float64    `json:"advance_amount"`
	RemainingAmount  float64    `json:"remaining_amount"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	FinancingDetails string     `json:"financing_details,omitempty"`
	ClosingDate      *time.Time `json:"closing_date,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	Status           string     `json:"status"`
	Property         *Property  `json:"property,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
