package handler

import (
	"context"
	"net/http"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
)

// Properties handles the buyer-facing property catalog. Reads run behind
// OptionalAuth: anonymous callers see the active catalog, authenticated
// callers additionally see which properties they have saved.
type Properties struct {
	properties PropertyStore
	buyers     BuyerStore
}

// NewProperties wires the public property handlers.
func NewProperties(properties PropertyStore, buyers BuyerStore) *Properties {
	return &Properties{properties: properties, buyers: buyers}
}

// propertyView is a property with the caller-specific saved flag.
type propertyView struct {
	domain.Property
	IsFavorited *bool `json:"is_favorited,omitempty"`
}

func propertyFilterFromQuery(r *http.Request) domain.PropertyFilter {
	q := r.URL.Query()
	return domain.PropertyFilter{
		Status:       domain.StatusActive,
		PropertyType: q.Get("property_type"),
		City:         q.Get("city"),
		State:        q.Get("state"),
		PriceMin:     queryFloat(r, "price_min"),
		PriceMax:     queryFloat(r, "price_max"),
		SizeMin:      queryFloat(r, "size_min"),
		SizeMax:      queryFloat(r, "size_max"),
		Bedrooms:     queryInt(r, "bedrooms"),
		BathroomsMin: queryFloat(r, "bathrooms_min"),
		Sort:         parseSort(r),
	}
}

// List returns active properties, personalized when authenticated.
func (h *Properties) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, propertyFilterFromQuery(r))
}

// Search is List with a free-text query.
func (h *Properties) Search(w http.ResponseWriter, r *http.Request) {
	f := propertyFilterFromQuery(r)
	f.Search = r.URL.Query().Get("q")
	if f.Search == "" {
		writeError(w, http.StatusBadRequest, "Search query is required.")
		return
	}
	h.list(w, r, f)
}

func (h *Properties) list(w http.ResponseWriter, r *http.Request, f domain.PropertyFilter) {
	p := parsePage(r)
	properties, total, err := h.properties.Properties(r.Context(), f, p)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	views, err := h.personalize(r.Context(), properties)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, views, p, total)
}

// Get returns an active property. Inactive and missing properties answer
// the same 404.
func (h *Properties) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}
	prop, err := h.properties.ActivePropertyByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}

	views, err := h.personalize(r.Context(), []domain.Property{prop})
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusOK, views[0])
}

// personalize flags which properties the caller has saved. Anonymous
// callers get the plain rows; the flag is simply absent.
func (h *Properties) personalize(ctx context.Context, properties []domain.Property) ([]propertyView, error) {
	views := make([]propertyView, len(properties))
	for i, prop := range properties {
		views[i] = propertyView{Property: prop}
	}

	p, ok := api.PrincipalFromContext(ctx)
	if !ok {
		return views, nil
	}

	ids := make([]int64, len(properties))
	for i, prop := range properties {
		ids[i] = prop.ID
	}
	saved, err := h.buyers.FavoritePropertyIDs(ctx, p.ID, ids)
	if err != nil {
		return nil, err
	}
	for i := range views {
		fav := saved[views[i].ID]
		views[i].IsFavorited = &fav
	}
	return views, nil
}
