package handler

import (
	"context"
	"io"

	"crownkeys/internal/api/adapter/identity"
	"crownkeys/internal/domain"
	"crownkeys/internal/storage/postgres"
)

// IdentityProvider is the slice of the hosted identity provider the auth
// handlers consume. Implemented by identity.Client.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (identity.Session, error)
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
	Refresh(ctx context.Context, refreshToken string) (identity.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ObjectStore persists uploaded files. Implemented by objstore.Client.
type ObjectStore interface {
	Upload(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// TokenIssuer signs local tokens for freshly registered users.
// Implemented by auth.Verifier.
type TokenIssuer interface {
	Issue(user domain.User) (string, error)
}

// UserStore is the directory slice the auth handlers consume.
type UserStore interface {
	UserByID(ctx context.Context, id string) (domain.User, error)
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	UpdateUser(ctx context.Context, id string, upd postgres.UserUpdate) (domain.User, error)
}

// AgentStore backs the agent profile handlers.
type AgentStore interface {
	Agents(ctx context.Context, f domain.AgentFilter, p domain.Page) ([]domain.Agent, int, error)
	AgentByID(ctx context.Context, id int64) (domain.Agent, error)
	AgentByUserID(ctx context.Context, userID string) (domain.Agent, error)
	CreateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error)
	UpdateAgent(ctx context.Context, id int64, upd postgres.AgentUpdate) (domain.Agent, error)
	DeleteAgent(ctx context.Context, id int64) error
}

// ListingStore backs the listing handlers.
type ListingStore interface {
	Listings(ctx context.Context, f domain.ListingFilter, p domain.Page) ([]domain.Listing, int, error)
	ListingByID(ctx context.Context, id int64) (domain.Listing, error)
	IncrementListingViews(ctx context.Context, id int64) error
	CreateListing(ctx context.Context, l domain.Listing) (domain.Listing, error)
	UpdateListing(ctx context.Context, id int64, upd postgres.ListingUpdate) (domain.Listing, error)
	DeleteListing(ctx context.Context, id int64) error
	ToggleListingFavorite(ctx context.Context, userID string, listingID int64) (bool, error)
	SavedListings(ctx context.Context, userID string, p domain.Page) ([]domain.Listing, int, error)
}

// PropertyStore backs the owner property handlers and public property reads.
type PropertyStore interface {
	Properties(ctx context.Context, f domain.PropertyFilter, p domain.Page) ([]domain.Property, int, error)
	PropertyByID(ctx context.Context, id int64) (domain.Property, error)
	ActivePropertyByID(ctx context.Context, id int64) (domain.Property, error)
	CreateProperty(ctx context.Context, prop domain.Property) (domain.Property, error)
	UpdateProperty(ctx context.Context, id int64, upd postgres.PropertyUpdate) (domain.Property, error)
	SetPropertyStatus(ctx context.Context, id int64, status string) (domain.Property, error)
	DeleteProperty(ctx context.Context, id int64) error
	OwnerPropertyStats(ctx context.Context, ownerID string) (postgres.OwnerStats, error)
}

// BuyerStore backs the buyer activity handlers.
type BuyerStore interface {
	AddFavorite(ctx context.Context, buyerID string, propertyID int64) (domain.Favorite, error)
	RemoveFavorite(ctx context.Context, buyerID string, propertyID int64) error
	Favorites(ctx context.Context, buyerID string, p domain.Page) ([]domain.Favorite, int, error)
	FavoritePropertyIDs(ctx context.Context, buyerID string, propertyIDs []int64) (map[int64]bool, error)
	CreateInterest(ctx context.Context, in domain.Interest) (domain.Interest, error)
	Interests(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Interest, int, error)
	PendingInterest(ctx context.Context, buyerID string, propertyID int64) (bool, error)
	CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error)
	Offers(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Offer, int, error)
	PendingOffer(ctx context.Context, buyerID string, propertyID int64) (bool, error)
	AcceptedOffer(ctx context.Context, buyerID string, propertyID int64) (domain.Offer, error)
	CreatePurchase(ctx context.Context, pu domain.Purchase) (domain.Purchase, error)
	Purchases(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Purchase, int, error)
	ActivePurchase(ctx context.Context, buyerID string, propertyID int64) (bool, error)
	BuyerDashboard(ctx context.Context, buyerID string) (postgres.BuyerStats, error)
}
