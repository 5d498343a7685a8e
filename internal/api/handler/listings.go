package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
	"crownkeys/internal/storage/postgres"
)

// Listings handles the public listing catalog and listing management.
type Listings struct {
	listings ListingStore
	uploads  uploader
}

// NewListings wires the listing handlers.
func NewListings(listings ListingStore, store ObjectStore, maxFileBytes int64, maxFiles int) *Listings {
	return &Listings{
		listings: listings,
		uploads:  uploader{store: store, maxFileBytes: maxFileBytes, maxFiles: maxFiles},
	}
}

func listingFilterFromQuery(r *http.Request) domain.ListingFilter {
	q := r.URL.Query()
	f := domain.ListingFilter{
		Status:       domain.StatusActive,
		Type:         q.Get("type"),
		PropertyType: q.Get("property_type"),
		City:         q.Get("city"),
		State:        q.Get("state"),
		PriceMin:     queryFloat(r, "price_min"),
		PriceMax:     queryFloat(r, "price_max"),
		Bedrooms:     queryInt(r, "bedrooms"),
		BathroomsMin: queryFloat(r, "bathrooms_min"),
		Sort:         parseSort(r),
	}
	if agentID := q.Get("agent_id"); agentID != "" {
		if id, err := strconv.ParseInt(agentID, 10, 64); err == nil {
			f.AgentID = &id
		}
	}
	return f
}

// List returns active listings, filtered and paginated.
func (h *Listings) List(w http.ResponseWriter, r *http.Request) {
	f := listingFilterFromQuery(r)
	p := parsePage(r)

	listings, total, err := h.listings.Listings(r.Context(), f, p)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, listings, p, total)
}

// Search is List with a free-text query over title, description, address
// and city.
func (h *Listings) Search(w http.ResponseWriter, r *http.Request) {
	f := listingFilterFromQuery(r)
	f.Search = r.URL.Query().Get("q")
	if f.Search == "" {
		writeError(w, http.StatusBadRequest, "Search query is required.")
		return
	}
	p := parsePage(r)

	listings, total, err := h.listings.Listings(r.Context(), f, p)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, listings, p, total)
}

// Get returns a listing and counts the view.
func (h *Listings) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid listing id.")
		return
	}

	// The lost view is preferable to a failed read.
	if err := h.listings.IncrementListingViews(r.Context(), id); err != nil {
		slog.Debug("incrementing listing views", "listing_id", id, "error", err)
	}

	listing, err := h.listings.ListingByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Listing not found.")
		return
	}
	writeData(w, http.StatusOK, listing)
}

// UserListings returns a user's active listings.
func (h *Listings) UserListings(w http.ResponseWriter, r *http.Request) {
	userID := muxVar(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "Invalid user id.")
		return
	}
	p := parsePage(r)

	listings, total, err := h.listings.Listings(r.Context(), domain.ListingFilter{
		UserID: userID,
		Status: domain.StatusActive,
	}, p)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, listings, p, total)
}

type listingRequest struct {
	AgentID      *int64   `json:"agent_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	PropertyType string   `json:"property_type"`
	Price        float64  `json:"price"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	Area         float64  `json:"area"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Images       []string `json:"images"`
}

// Create publishes a listing owned by the caller. Accepts JSON or multipart
// with image files.
func (h *Listings) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	var req listingRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.uploads.maxFileBytes); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		req = listingRequestFromForm(r)

		images, err := h.uploads.files(r, "images", p.ID)
		if err != nil {
			writeDomainError(w, err, "")
			return
		}
		req.Images = images
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	fe := fieldErrors{}
	fe.require("title", req.Title)
	fe.require("address", req.Address)
	fe.require("city", req.City)
	fe.require("state", req.State)
	fe.positive("price", req.Price)
	fe.oneOf("type", req.Type, "sale", "rent")
	if fe.write(w) {
		return
	}

	created, err := h.listings.CreateListing(r.Context(), domain.Listing{
		UserID:       p.ID,
		AgentID:      req.AgentID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		PropertyType: req.PropertyType,
		Price:        req.Price,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Area:         req.Area,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Images:       req.Images,
	})
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, created)
}

type listingUpdateRequest struct {
	AgentID      *int64    `json:"agent_id"`
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Type         *string   `json:"type"`
	PropertyType *string   `json:"property_type"`
	Price        *float64  `json:"price"`
	Bedrooms     *int      `json:"bedrooms"`
	Bathrooms    *float64  `json:"bathrooms"`
	Area         *float64  `json:"area"`
	Address      *string   `json:"address"`
	City         *string   `json:"city"`
	State        *string   `json:"state"`
	ZipCode      *string   `json:"zip_code"`
	Images       *[]string `json:"images"`
	Status       *string   `json:"status"`
}

// Update applies a partial update to a listing. The ownership guard has
// already run.
func (h *Listings) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid listing id.")
		return
	}

	var req listingUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	fe := fieldErrors{}
	if req.Price != nil {
		fe.positive("price", *req.Price)
	}
	if req.Type != nil {
		fe.oneOf("type", *req.Type, "sale", "rent")
	}
	if req.Status != nil {
		fe.oneOf("status", *req.Status, domain.StatusActive, domain.StatusInactive)
	}
	if fe.write(w) {
		return
	}

	listing, err := h.listings.UpdateListing(r.Context(), id, postgres.ListingUpdate{
		AgentID:      req.AgentID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		PropertyType: req.PropertyType,
		Price:        req.Price,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Area:         req.Area,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Images:       req.Images,
		Status:       req.Status,
	})
	if err != nil {
		writeDomainError(w, err, "Listing not found.")
		return
	}
	writeData(w, http.StatusOK, listing)
}

// Delete removes a listing.
func (h *Listings) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid listing id.")
		return
	}
	if err := h.listings.DeleteListing(r.Context(), id); err != nil {
		writeDomainError(w, err, "Listing not found.")
		return
	}
	writeMessage(w, http.StatusOK, "Listing deleted successfully.")
}

// ToggleFavorite saves or unsaves the listing for the caller.
func (h *Listings) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid listing id.")
		return
	}
	if _, err := h.listings.ListingByID(r.Context(), id); err != nil {
		writeDomainError(w, err, "Listing not found.")
		return
	}

	saved, err := h.listings.ToggleListingFavorite(r.Context(), p.ID, id)
	if err != nil {
		writeDomainError(w, err, "Listing not found.")
		return
	}
	if saved {
		writeJSON(w, http.StatusOK, domain.Response{
			Success: true, Message: "Listing saved.", Data: map[string]bool{"saved": true},
		})
		return
	}
	writeJSON(w, http.StatusOK, domain.Response{
		Success: true, Message: "Listing removed from saved.", Data: map[string]bool{"saved": false},
	})
}

// Saved returns the caller's saved listings.
func (h *Listings) Saved(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())
	page := parsePage(r)

	listings, total, err := h.listings.SavedListings(r.Context(), p.ID, page)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, listings, page, total)
}

func listingRequestFromForm(r *http.Request) listingRequest {
	req := listingRequest{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		Type:         r.FormValue("type"),
		PropertyType: r.FormValue("property_type"),
		Address:      r.FormValue("address"),
		City:         r.FormValue("city"),
		State:        r.FormValue("state"),
		ZipCode:      r.FormValue("zip_code"),
	}
	req.Price, _ = strconv.ParseFloat(r.FormValue("price"), 64)
	req.Bedrooms, _ = strconv.Atoi(r.FormValue("bedrooms"))
	req.Bathrooms, _ = strconv.ParseFloat(r.FormValue("bathrooms"), 64)
	req.Area, _ = strconv.ParseFloat(r.FormValue("area"), 64)
	if v := r.FormValue("agent_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.AgentID = &id
		}
	}
	return req
}
