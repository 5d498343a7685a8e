package handler_test

import (
	"context"
	"io"

	"crownkeys/internal/api/adapter/identity"
	"crownkeys/internal/domain"
	"crownkeys/internal/storage/postgres"
)

// fakeProvider answers identity calls from canned data.
type fakeProvider struct {
	session   identity.Session
	signUpErr error
	signInErr error
	signedOut []string
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string, metadata map[string]string) (identity.Session, error) {
	if f.signUpErr != nil {
		return identity.Session{}, f.signUpErr
	}
	return f.session, nil
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (identity.Session, error) {
	if f.signInErr != nil {
		return identity.Session{}, f.signInErr
	}
	return f.session, nil
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (identity.Session, error) {
	if refreshToken != f.session.RefreshToken {
		return identity.Session{}, domain.ErrInvalidCredential
	}
	return f.session, nil
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	f.signedOut = append(f.signedOut, accessToken)
	return nil
}

// fakeIssuer mints a fixed token.
type fakeIssuer struct{ token string }

func (f fakeIssuer) Issue(user domain.User) (string, error) { return f.token, nil }

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	users map[string]domain.User
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) UserByID(ctx context.Context, id string) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if _, exists := f.users[u.ID]; exists {
		return domain.User{}, domain.ErrConflict
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) UpdateUser(ctx context.Context, id string, upd postgres.UserUpdate) (domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	f.users[id] = u
	return u, nil
}

// fakeProperties serves canned property rows.
type fakeProperties struct {
	props map[int64]domain.Property
	stats postgres.OwnerStats
}

func newFakeProperties(props ...domain.Property) *fakeProperties {
	f := &fakeProperties{props: make(map[int64]domain.Property)}
	for _, p := range props {
		f.props[p.ID] = p
	}
	return f
}

func (f *fakeProperties) Properties(ctx context.Context, filter domain.PropertyFilter, p domain.Page) ([]domain.Property, int, error) {
	var out []domain.Property
	for _, prop := range f.props {
		if filter.Status != "" && filter.Status != "all" && prop.Status != filter.Status {
			continue
		}
		if filter.OwnerID != "" && prop.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, prop)
	}
	return out, len(out), nil
}

func (f *fakeProperties) PropertyByID(ctx context.Context, id int64) (domain.Property, error) {
	prop, ok := f.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return prop, nil
}

func (f *fakeProperties) ActivePropertyByID(ctx context.Context, id int64) (domain.Property, error) {
	prop, ok := f.props[id]
	if !ok || prop.Status != domain.StatusActive {
		return domain.Property{}, domain.ErrNotFound
	}
	return prop, nil
}

func (f *fakeProperties) CreateProperty(ctx context.Context, prop domain.Property) (domain.Property, error) {
	prop.ID = int64(len(f.props) + 1)
	prop.Status = domain.StatusActive
	f.props[prop.ID] = prop
	return prop, nil
}

func (f *fakeProperties) UpdateProperty(ctx context.Context, id int64, upd postgres.PropertyUpdate) (domain.Property, error) {
	prop, ok := f.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	if upd.Title != nil {
		prop.Title = *upd.Title
	}
	if upd.Photos != nil {
		prop.Photos = *upd.Photos
	}
	f.props[id] = prop
	return prop, nil
}

func (f *fakeProperties) SetPropertyStatus(ctx context.Context, id int64, status string) (domain.Property, error) {
	prop, ok := f.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	prop.Status = status
	f.props[id] = prop
	return prop, nil
}

func (f *fakeProperties) DeleteProperty(ctx context.Context, id int64) error {
	if _, ok := f.props[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.props, id)
	return nil
}

func (f *fakeProperties) OwnerPropertyStats(ctx context.Context, ownerID string) (postgres.OwnerStats, error) {
	return f.stats, nil
}

// fakeObjects records uploads without storing bytes.
type fakeObjects struct {
	uploaded []string
	deleted  []string
}

func (f *fakeObjects) Upload(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (string, error) {
	key := ownerID + "/" + filename
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

// fakeListings is an in-memory ListingStore.
type fakeListings struct {
	listings map[int64]domain.Listing
	saved    map[int64]bool // listing id -> saved by the test's single user
	views    map[int64]int
}

func newFakeListings(listings ...domain.Listing) *fakeListings {
	f := &fakeListings{
		listings: make(map[int64]domain.Listing),
		saved:    make(map[int64]bool),
		views:    make(map[int64]int),
	}
	for _, l := range listings {
		f.listings[l.ID] = l
	}
	return f
}

func (f *fakeListings) Listings(ctx context.Context, filter domain.ListingFilter, p domain.Page) ([]domain.Listing, int, error) {
	var out []domain.Listing
	for _, l := range f.listings {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		out = append(out, l)
	}
	return out, len(out), nil
}

func (f *fakeListings) ListingByID(ctx context.Context, id int64) (domain.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (f *fakeListings) IncrementListingViews(ctx context.Context, id int64) error {
	f.views[id]++
	return nil
}

func (f *fakeListings) CreateListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	l.ID = int64(len(f.listings) + 1)
	l.Status = domain.StatusActive
	f.listings[l.ID] = l
	return l, nil
}

func (f *fakeListings) UpdateListing(ctx context.Context, id int64, upd postgres.ListingUpdate) (domain.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.Price != nil {
		l.Price = *upd.Price
	}
	if upd.Status != nil {
		l.Status = *upd.Status
	}
	f.listings[id] = l
	return l, nil
}

func (f *fakeListings) DeleteListing(ctx context.Context, id int64) error {
	if _, ok := f.listings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.listings, id)
	return nil
}

func (f *fakeListings) ToggleListingFavorite(ctx context.Context, userID string, listingID int64) (bool, error) {
	if f.saved[listingID] {
		delete(f.saved, listingID)
		return false, nil
	}
	f.saved[listingID] = true
	return true, nil
}

func (f *fakeListings) SavedListings(ctx context.Context, userID string, p domain.Page) ([]domain.Listing, int, error) {
	var out []domain.Listing
	for id := range f.saved {
		out = append(out, f.listings[id])
	}
	return out, len(out), nil
}

// fakeBuyers is an in-memory BuyerStore.
type fakeBuyers struct {
	favorites map[int64]bool // property id -> saved
	interests []domain.Interest
	offers    []domain.Offer
	purchases []domain.Purchase
	stats     postgres.BuyerStats
	err       error
}

func newFakeBuyers() *fakeBuyers {
	return &fakeBuyers{favorites: make(map[int64]bool)}
}

func (f *fakeBuyers) AddFavorite(ctx context.Context, buyerID string, propertyID int64) (domain.Favorite, error) {
	if f.favorites[propertyID] {
		return domain.Favorite{}, domain.ErrConflict
	}
	f.favorites[propertyID] = true
	return domain.Favorite{ID: propertyID, BuyerID: buyerID, PropertyID: propertyID}, nil
}

func (f *fakeBuyers) RemoveFavorite(ctx context.Context, buyerID string, propertyID int64) error {
	if !f.favorites[propertyID] {
		return domain.ErrNotFound
	}
	delete(f.favorites, propertyID)
	return nil
}

func (f *fakeBuyers) Favorites(ctx context.Context, buyerID string, p domain.Page) ([]domain.Favorite, int, error) {
	var out []domain.Favorite
	for id := range f.favorites {
		out = append(out, domain.Favorite{BuyerID: buyerID, PropertyID: id})
	}
	return out, len(out), nil
}

func (f *fakeBuyers) FavoritePropertyIDs(ctx context.Context, buyerID string, propertyIDs []int64) (map[int64]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	saved := make(map[int64]bool)
	for _, id := range propertyIDs {
		if f.favorites[id] {
			saved[id] = true
		}
	}
	return saved, nil
}

func (f *fakeBuyers) CreateInterest(ctx context.Context, in domain.Interest) (domain.Interest, error) {
	in.ID = int64(len(f.interests) + 1)
	in.Status = domain.StatusPending
	f.interests = append(f.interests, in)
	return in, nil
}

func (f *fakeBuyers) Interests(ctx context.Context, filter domain.ActivityFilter, p domain.Page) ([]domain.Interest, int, error) {
	return f.interests, len(f.interests), nil
}

func (f *fakeBuyers) PendingInterest(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	for _, in := range f.interests {
		if in.PropertyID == propertyID && in.Status == domain.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBuyers) CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	o.ID = int64(len(f.offers) + 1)
	o.Status = domain.StatusPending
	f.offers = append(f.offers, o)
	return o, nil
}

func (f *fakeBuyers) Offers(ctx context.Context, filter domain.ActivityFilter, p domain.Page) ([]domain.Offer, int, error) {
	return f.offers, len(f.offers), nil
}

func (f *fakeBuyers) PendingOffer(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	for _, o := range f.offers {
		if o.PropertyID == propertyID && o.Status == domain.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBuyers) AcceptedOffer(ctx context.Context, buyerID string, propertyID int64) (domain.Offer, error) {
	for _, o := range f.offers {
		if o.BuyerID == buyerID && o.PropertyID == propertyID && o.Status == domain.StatusAccepted {
			return o, nil
		}
	}
	return domain.Offer{}, domain.ErrNotFound
}

func (f *fakeBuyers) CreatePurchase(ctx context.Context, pu domain.Purchase) (domain.Purchase, error) {
	for _, existing := range f.purchases {
		if existing.OfferID == pu.OfferID {
			return domain.Purchase{}, domain.ErrConflict
		}
	}
	pu.ID = int64(len(f.purchases) + 1)
	pu.Status = domain.StatusPending
	f.purchases = append(f.purchases, pu)
	return pu, nil
}

func (f *fakeBuyers) Purchases(ctx context.Context, filter domain.ActivityFilter, p domain.Page) ([]domain.Purchase, int, error) {
	return f.purchases, len(f.purchases), nil
}

func (f *fakeBuyers) ActivePurchase(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	for _, pu := range f.purchases {
		if pu.PropertyID == propertyID &&
			(pu.Status == domain.StatusPending || pu.Status == domain.StatusAccepted) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBuyers) BuyerDashboard(ctx context.Context, buyerID string) (postgres.BuyerStats, error) {
	return f.stats, nil
}
