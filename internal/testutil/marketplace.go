package testutil

import (
	"context"
	"io"
	"sort"
	"sync"

	"crownkeys/internal/domain"
	"crownkeys/internal/storage/postgres"
)

// Marketplace is a mutex-guarded in-memory datastore implementing the same
// method sets as the Postgres store. It backs integration and load tests
// that run the full HTTP stack without a database.
type Marketplace struct {
	mu          sync.Mutex
	users       map[string]domain.User
	agents      map[int64]domain.Agent
	listings    map[int64]domain.Listing
	listingFavs map[string]map[int64]bool
	properties  map[int64]domain.Property
	favorites   map[string]map[int64]bool
	interests   []domain.Interest
	offers      []domain.Offer
	purchases   []domain.Purchase
	nextID      int64

	PingErr error
}

// NewMarketplace creates an empty in-memory datastore.
func NewMarketplace() *Marketplace {
	return &Marketplace{
		users:       make(map[string]domain.User),
		agents:      make(map[int64]domain.Agent),
		listings:    make(map[int64]domain.Listing),
		listingFavs: make(map[string]map[int64]bool),
		properties:  make(map[int64]domain.Property),
		favorites:   make(map[string]map[int64]bool),
	}
}

func (m *Marketplace) id() int64 {
	m.nextID++
	return m.nextID
}

// Ping reports the configured reachability.
func (m *Marketplace) Ping(ctx context.Context) error { return m.PingErr }

// SeedUser inserts a directory row.
func (m *Marketplace) SeedUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// SeedProperty inserts a property and returns it with an assigned id.
func (m *Marketplace) SeedProperty(p domain.Property) domain.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.id()
	}
	if p.Status == "" {
		p.Status = domain.StatusActive
	}
	m.properties[p.ID] = p
	return p
}

// SeedListing inserts a listing and returns it with an assigned id.
func (m *Marketplace) SeedListing(l domain.Listing) domain.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == 0 {
		l.ID = m.id()
	}
	if l.Status == "" {
		l.Status = domain.StatusActive
	}
	m.listings[l.ID] = l
	return l
}

// --- users ---

func (m *Marketplace) UserByID(ctx context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *Marketplace) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; exists {
		return domain.User{}, domain.ErrConflict
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Marketplace) UpdateUser(ctx context.Context, id string, upd postgres.UserUpdate) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
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
	m.users[id] = u
	return u, nil
}

// --- agents ---

func (m *Marketplace) Agents(ctx context.Context, f domain.AgentFilter, p domain.Page) ([]domain.Agent, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Agent
	for _, a := range m.agents {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *Marketplace) AgentByID(ctx context.Context, id int64) (domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return domain.Agent{}, domain.ErrNotFound
	}
	return a, nil
}

func (m *Marketplace) AgentByUserID(ctx context.Context, userID string) (domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.UserID == userID {
			return a, nil
		}
	}
	return domain.Agent{}, domain.ErrNotFound
}

func (m *Marketplace) CreateAgent(ctx context.Context, a domain.Agent) (domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.agents {
		if existing.UserID == a.UserID {
			return domain.Agent{}, domain.ErrConflict
		}
	}
	a.ID = m.id()
	if a.Status == "" {
		a.Status = domain.StatusActive
	}
	m.agents[a.ID] = a
	return a, nil
}

func (m *Marketplace) UpdateAgent(ctx context.Context, id int64, upd postgres.AgentUpdate) (domain.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.agents[id]
	if !ok {
		return domain.Agent{}, domain.ErrNotFound
	}
	if upd.Agency != nil {
		a.Agency = *upd.Agency
	}
	if upd.Bio != nil {
		a.Bio = *upd.Bio
	}
	if upd.City != nil {
		a.City = *upd.City
	}
	if upd.State != nil {
		a.State = *upd.State
	}
	if upd.ProfileImage != nil {
		a.ProfileImage = *upd.ProfileImage
	}
	m.agents[id] = a
	return a, nil
}

func (m *Marketplace) DeleteAgent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.agents, id)
	return nil
}

// --- listings ---

func (m *Marketplace) Listings(ctx context.Context, f domain.ListingFilter, p domain.Page) ([]domain.Listing, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Listing
	for _, l := range m.listings {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.UserID != "" && l.UserID != f.UserID {
			continue
		}
		if f.AgentID != nil && (l.AgentID == nil || *l.AgentID != *f.AgentID) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *Marketplace) ListingByID(ctx context.Context, id int64) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return l, nil
}

func (m *Marketplace) IncrementListingViews(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Views++
	m.listings[id] = l
	return nil
}

func (m *Marketplace) CreateListing(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	l.Status = domain.StatusActive
	m.listings[l.ID] = l
	return l, nil
}

func (m *Marketplace) UpdateListing(ctx context.Context, id int64, upd postgres.ListingUpdate) (domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	if upd.AgentID != nil {
		l.AgentID = upd.AgentID
	}
	if upd.Title != nil {
		l.Title = *upd.Title
	}
	if upd.Description != nil {
		l.Description = *upd.Description
	}
	if upd.Type != nil {
		l.Type = *upd.Type
	}
	if upd.PropertyType != nil {
		l.PropertyType = *upd.PropertyType
	}
	if upd.Price != nil {
		l.Price = *upd.Price
	}
	if upd.Bedrooms != nil {
		l.Bedrooms = *upd.Bedrooms
	}
	if upd.Bathrooms != nil {
		l.Bathrooms = *upd.Bathrooms
	}
	if upd.Area != nil {
		l.Area = *upd.Area
	}
	if upd.Address != nil {
		l.Address = *upd.Address
	}
	if upd.City != nil {
		l.City = *upd.City
	}
	if upd.State != nil {
		l.State = *upd.State
	}
	if upd.ZipCode != nil {
		l.ZipCode = *upd.ZipCode
	}
	if upd.Images != nil {
		l.Images = *upd.Images
	}
	if upd.Status != nil {
		l.Status = *upd.Status
	}
	m.listings[id] = l
	return l, nil
}

func (m *Marketplace) DeleteListing(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.listings, id)
	return nil
}

func (m *Marketplace) ToggleListingFavorite(ctx context.Context, userID string, listingID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := m.listingFavs[userID]
	if saved == nil {
		saved = make(map[int64]bool)
		m.listingFavs[userID] = saved
	}
	if saved[listingID] {
		delete(saved, listingID)
		return false, nil
	}
	saved[listingID] = true
	return true, nil
}

func (m *Marketplace) SavedListings(ctx context.Context, userID string, p domain.Page) ([]domain.Listing, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Listing
	for id := range m.listingFavs[userID] {
		if l, ok := m.listings[id]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

// --- properties ---

func (m *Marketplace) Properties(ctx context.Context, f domain.PropertyFilter, p domain.Page) ([]domain.Property, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Property
	for _, prop := range m.properties {
		if f.Status != "" && f.Status != "all" && prop.Status != f.Status {
			continue
		}
		if f.OwnerID != "" && prop.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, prop)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *Marketplace) PropertyByID(ctx context.Context, id int64) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prop, ok := m.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return prop, nil
}

func (m *Marketplace) ActivePropertyByID(ctx context.Context, id int64) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prop, ok := m.properties[id]
	if !ok || prop.Status != domain.StatusActive {
		return domain.Property{}, domain.ErrNotFound
	}
	return prop, nil
}

func (m *Marketplace) CreateProperty(ctx context.Context, prop domain.Property) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prop.ID = m.id()
	prop.Status = domain.StatusActive
	m.properties[prop.ID] = prop
	return prop, nil
}

func (m *Marketplace) UpdateProperty(ctx context.Context, id int64, upd postgres.PropertyUpdate) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prop, ok := m.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	if upd.Title != nil {
		prop.Title = *upd.Title
	}
	if upd.Description != nil {
		prop.Description = *upd.Description
	}
	if upd.Price != nil {
		prop.Price = *upd.Price
	}
	if upd.Size != nil {
		prop.Size = *upd.Size
	}
	if upd.PropertyType != nil {
		prop.PropertyType = *upd.PropertyType
	}
	if upd.Address != nil {
		prop.Address = *upd.Address
	}
	if upd.City != nil {
		prop.City = *upd.City
	}
	if upd.State != nil {
		prop.State = *upd.State
	}
	if upd.ZipCode != nil {
		prop.ZipCode = *upd.ZipCode
	}
	if upd.Location != nil {
		prop.Location = *upd.Location
	}
	if upd.Bedrooms != nil {
		prop.Bedrooms = *upd.Bedrooms
	}
	if upd.Bathrooms != nil {
		prop.Bathrooms = *upd.Bathrooms
	}
	if upd.Amenities != nil {
		prop.Amenities = *upd.Amenities
	}
	if upd.Photos != nil {
		prop.Photos = *upd.Photos
	}
	m.properties[id] = prop
	return prop, nil
}

func (m *Marketplace) SetPropertyStatus(ctx context.Context, id int64, status string) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prop, ok := m.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	prop.Status = status
	m.properties[id] = prop
	return prop, nil
}

func (m *Marketplace) DeleteProperty(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.properties[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.properties, id)
	return nil
}

func (m *Marketplace) OwnerPropertyStats(ctx context.Context, ownerID string) (postgres.OwnerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st postgres.OwnerStats
	for _, prop := range m.properties {
		if prop.OwnerID != ownerID {
			continue
		}
		st.Total++
		switch prop.Status {
		case domain.StatusActive:
			st.Active++
		case domain.StatusInactive:
			st.Inactive++
		}
	}
	return st, nil
}

// --- buyer activity ---

func (m *Marketplace) AddFavorite(ctx context.Context, buyerID string, propertyID int64) (domain.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := m.favorites[buyerID]
	if saved == nil {
		saved = make(map[int64]bool)
		m.favorites[buyerID] = saved
	}
	if saved[propertyID] {
		return domain.Favorite{}, domain.ErrConflict
	}
	saved[propertyID] = true
	return domain.Favorite{ID: m.id(), BuyerID: buyerID, PropertyID: propertyID}, nil
}

func (m *Marketplace) RemoveFavorite(ctx context.Context, buyerID string, propertyID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.favorites[buyerID][propertyID] {
		return domain.ErrNotFound
	}
	delete(m.favorites[buyerID], propertyID)
	return nil
}

func (m *Marketplace) Favorites(ctx context.Context, buyerID string, p domain.Page) ([]domain.Favorite, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Favorite
	for id := range m.favorites[buyerID] {
		fav := domain.Favorite{BuyerID: buyerID, PropertyID: id}
		if prop, ok := m.properties[id]; ok {
			fav.Property = &prop
		}
		out = append(out, fav)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PropertyID < out[j].PropertyID })
	return out, len(out), nil
}

func (m *Marketplace) FavoritePropertyIDs(ctx context.Context, buyerID string, propertyIDs []int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[int64]bool)
	for _, id := range propertyIDs {
		if m.favorites[buyerID][id] {
			saved[id] = true
		}
	}
	return saved, nil
}

func (m *Marketplace) CreateInterest(ctx context.Context, in domain.Interest) (domain.Interest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = m.id()
	in.Status = domain.StatusPending
	m.interests = append(m.interests, in)
	return in, nil
}

func (m *Marketplace) Interests(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Interest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Interest
	for _, in := range m.interests {
		if f.BuyerID != "" && in.BuyerID != f.BuyerID {
			continue
		}
		out = append(out, in)
	}
	return out, len(out), nil
}

func (m *Marketplace) PendingInterest(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.interests {
		if in.BuyerID == buyerID && in.PropertyID == propertyID && in.Status == domain.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *Marketplace) CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.id()
	o.Status = domain.StatusPending
	m.offers = append(m.offers, o)
	return o, nil
}

func (m *Marketplace) Offers(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Offer, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Offer
	for _, o := range m.offers {
		if f.BuyerID != "" && o.BuyerID != f.BuyerID {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *Marketplace) PendingOffer(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offers {
		if o.BuyerID == buyerID && o.PropertyID == propertyID && o.Status == domain.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *Marketplace) AcceptedOffer(ctx context.Context, buyerID string, propertyID int64) (domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.offers {
		if o.BuyerID == buyerID && o.PropertyID == propertyID && o.Status == domain.StatusAccepted {
			return o, nil
		}
	}
	return domain.Offer{}, domain.ErrNotFound
}

// AcceptOffer marks an offer accepted, standing in for the owner-side flow.
func (m *Marketplace) AcceptOffer(offerID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.offers {
		if o.ID == offerID {
			m.offers[i].Status = domain.StatusAccepted
			return
		}
	}
}

func (m *Marketplace) CreatePurchase(ctx context.Context, pu domain.Purchase) (domain.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.purchases {
		if existing.OfferID == pu.OfferID {
			return domain.Purchase{}, domain.ErrConflict
		}
	}
	pu.ID = m.id()
	pu.Status = domain.StatusPending
	m.purchases = append(m.purchases, pu)
	return pu, nil
}

func (m *Marketplace) Purchases(ctx context.Context, f domain.ActivityFilter, p domain.Page) ([]domain.Purchase, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Purchase
	for _, pu := range m.purchases {
		if f.BuyerID != "" && pu.BuyerID != f.BuyerID {
			continue
		}
		out = append(out, pu)
	}
	return out, len(out), nil
}

func (m *Marketplace) ActivePurchase(ctx context.Context, buyerID string, propertyID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pu := range m.purchases {
		if pu.PropertyID == propertyID &&
			(pu.Status == domain.StatusPending || pu.Status == domain.StatusAccepted) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Marketplace) BuyerDashboard(ctx context.Context, buyerID string) (postgres.BuyerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st postgres.BuyerStats
	st.Favorites = len(m.favorites[buyerID])
	for _, in := range m.interests {
		if in.BuyerID != buyerID {
			continue
		}
		st.Interests++
		if in.Status == domain.StatusPending {
			st.PendingInterests++
		}
	}
	for _, o := range m.offers {
		if o.BuyerID != buyerID {
			continue
		}
		st.Offers++
		switch o.Status {
		case domain.StatusPending:
			st.PendingOffers++
		case domain.StatusAccepted:
			st.AcceptedOffers++
		}
	}
	for _, pu := range m.purchases {
		if pu.BuyerID == buyerID {
			st.Purchases++
		}
	}
	return st, nil
}

// --- ownership ---

// OwnerOf answers the ownership guard's lookup.
func (m *Marketplace) OwnerOf(ctx context.Context, kind domain.ResourceKind, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case domain.KindListing:
		if l, ok := m.listings[id]; ok {
			return l.UserID, nil
		}
	case domain.KindAgent:
		if a, ok := m.agents[id]; ok {
			return a.UserID, nil
		}
	case domain.KindProperty:
		if p, ok := m.properties[id]; ok {
			return p.OwnerID, nil
		}
	}
	return "", domain.ErrNotFound
}

// --- object store ---

// Objects is an in-memory object store for upload paths in tests.
type Objects struct {
	mu   sync.Mutex
	Keys []string
}

func (o *Objects) Upload(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := ownerID + "/" + filename
	o.Keys = append(o.Keys, key)
	return key, nil
}

func (o *Objects) Delete(ctx context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, k := range o.Keys {
		if k == key {
			o.Keys = append(o.Keys[:i], o.Keys[i+1:]...)
			break
		}
	}
	return nil
}

func (o *Objects) PublicURL(key string) string { return "https://objects.test/" + key }
