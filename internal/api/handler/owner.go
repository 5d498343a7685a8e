package handler

import (
	"net/http"
	"strconv"
	"strings"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
	"crownkeys/internal/storage/postgres"
)

// Owner handles owner-managed properties.
type Owner struct {
	properties PropertyStore
	uploads    uploader
}

// NewOwner wires the owner property handlers.
func NewOwner(properties PropertyStore, store ObjectStore, maxFileBytes int64, maxFiles int) *Owner {
	return &Owner{
		properties: properties,
		uploads:    uploader{store: store, maxFileBytes: maxFileBytes, maxFiles: maxFiles},
	}
}

type propertyRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	Size         float64  `json:"size"`
	PropertyType string   `json:"property_type"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Location     string   `json:"location"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	Amenities    []string `json:"amenities"`
	Photos       []string `json:"photos"`
}

// Create adds a property to the caller's portfolio. Accepts JSON or
// multipart with photo files.
func (h *Owner) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	var req propertyRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.uploads.maxFileBytes); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		req = propertyRequestFromForm(r)

		photos, err := h.uploads.files(r, "photos", p.ID)
		if err != nil {
			writeDomainError(w, err, "")
			return
		}
		req.Photos = photos
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
	fe.positive("size", req.Size)
	if fe.write(w) {
		return
	}

	created, err := h.properties.CreateProperty(r.Context(), domain.Property{
		OwnerID:      p.ID,
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Size:         req.Size,
		PropertyType: req.PropertyType,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Location:     req.Location,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Amenities:    req.Amenities,
		Photos:       req.Photos,
	})
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, created)
}

// List returns the caller's properties, all statuses.
func (h *Owner) List(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	f := domain.PropertyFilter{
		OwnerID: p.ID,
		Status:  r.URL.Query().Get("status"),
		Sort:    parseSort(r),
	}
	if f.Status == "" {
		f.Status = "all"
	}
	page := parsePage(r)

	properties, total, err := h.properties.Properties(r.Context(), f, page)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, properties, page, total)
}

// Get returns one of the caller's properties. The ownership guard has
// already run.
func (h *Owner) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}
	prop, err := h.properties.PropertyByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}
	writeData(w, http.StatusOK, prop)
}

type propertyUpdateRequest struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Price        *float64  `json:"price"`
	Size         *float64  `json:"size"`
	PropertyType *string   `json:"property_type"`
	Address      *string   `json:"address"`
	City         *string   `json:"city"`
	State        *string   `json:"state"`
	ZipCode      *string   `json:"zip_code"`
	Location     *string   `json:"location"`
	Bedrooms     *int      `json:"bedrooms"`
	Bathrooms    *float64  `json:"bathrooms"`
	Amenities    *[]string `json:"amenities"`
}

// Update applies a partial update to a property. Photos change through the
// dedicated photo endpoints, not here.
func (h *Owner) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}

	var req propertyUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	fe := fieldErrors{}
	if req.Price != nil {
		fe.positive("price", *req.Price)
	}
	if req.Size != nil {
		fe.positive("size", *req.Size)
	}
	if fe.write(w) {
		return
	}

	prop, err := h.properties.UpdateProperty(r.Context(), id, postgres.PropertyUpdate{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		Size:         req.Size,
		PropertyType: req.PropertyType,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		Location:     req.Location,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		Amenities:    req.Amenities,
	})
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}
	writeData(w, http.StatusOK, prop)
}

// AddPhotos uploads additional photos onto a property.
func (h *Owner) AddPhotos(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}
	if err := r.ParseMultipartForm(h.uploads.maxFileBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}

	prop, err := h.properties.PropertyByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}

	photos, err := h.uploads.files(r, "photos", p.ID)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	if len(photos) == 0 {
		writeError(w, http.StatusBadRequest, "No photos provided.")
		return
	}
	if len(prop.Photos)+len(photos) > h.uploads.maxFiles {
		h.uploads.remove(r, photos)
		writeError(w, http.StatusBadRequest, "Too many photos for one property.")
		return
	}

	merged := append(prop.Photos, photos...)
	updated, err := h.properties.UpdateProperty(r.Context(), id, postgres.PropertyUpdate{Photos: &merged})
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}
	writeData(w, http.StatusOK, updated)
}

type removePhotosRequest struct {
	Photos []string `json:"photos"`
}

// RemovePhotos detaches the given photo URLs from the property and deletes
// the stored objects.
func (h *Owner) RemovePhotos(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}

	var req removePhotosRequest
	if err := decodeJSON(r, &req); err != nil || len(req.Photos) == 0 {
		writeError(w, http.StatusBadRequest, "photos is required")
		return
	}

	prop, err := h.properties.PropertyByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}

	drop := make(map[string]bool, len(req.Photos))
	for _, u := range req.Photos {
		drop[u] = true
	}
	kept := make([]string, 0, len(prop.Photos))
	var removed []string
	for _, u := range prop.Photos {
		if drop[u] {
			removed = append(removed, u)
		} else {
			kept = append(kept, u)
		}
	}
	if len(removed) == 0 {
		writeError(w, http.StatusBadRequest, "None of the given photos belong to this property.")
		return
	}

	updated, err := h.properties.UpdateProperty(r.Context(), id, postgres.PropertyUpdate{Photos: &kept})
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}
	h.uploads.remove(r, removed)
	writeData(w, http.StatusOK, updated)
}

// SetStatus enables or disables a property. Disabled properties disappear
// from buyer-facing reads but stay in the owner's portfolio.
func (h *Owner) SetStatus(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid property id.")
			return
		}
		prop, err := h.properties.SetPropertyStatus(r.Context(), id, status)
		if err != nil {
			writeDomainError(w, err, "Property not found.")
			return
		}
		writeData(w, http.StatusOK, prop)
	}
}

// Delete removes a property and its stored photos.
func (h *Owner) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}

	prop, err := h.properties.PropertyByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}
	if err := h.properties.DeleteProperty(r.Context(), id); err != nil {
		writeDomainError(w, err, "Property not found.")
		return
	}
	h.uploads.remove(r, prop.Photos)
	writeMessage(w, http.StatusOK, "Property deleted successfully.")
}

// Stats returns the caller's portfolio summary.
func (h *Owner) Stats(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	stats, err := h.properties.OwnerPropertyStats(r.Context(), p.ID)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusOK, stats)
}

func propertyRequestFromForm(r *http.Request) propertyRequest {
	req := propertyRequest{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		PropertyType: r.FormValue("property_type"),
		Address:      r.FormValue("address"),
		City:         r.FormValue("city"),
		State:        r.FormValue("state"),
		ZipCode:      r.FormValue("zip_code"),
		Location:     r.FormValue("location"),
	}
	req.Price, _ = strconv.ParseFloat(r.FormValue("price"), 64)
	req.Size, _ = strconv.ParseFloat(r.FormValue("size"), 64)
	req.Bedrooms, _ = strconv.Atoi(r.FormValue("bedrooms"))
	req.Bathrooms, _ = strconv.ParseFloat(r.FormValue("bathrooms"), 64)
	if v := r.FormValue("amenities"); v != "" {
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				req.Amenities = append(req.Amenities, a)
			}
		}
	}
	return req
}
