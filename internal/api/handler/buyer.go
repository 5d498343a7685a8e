package handler

import (
	"errors"
	"net/http"
	"time"

	"crownkeys/internal/api"
	"crownkeys/internal/domain"
)

// Buyer handles buyer activity: favorites, interests, offers and purchases.
// Every route runs behind RequireAuth + RequireRole(Buyer, Admin).
type Buyer struct {
	buyers     BuyerStore
	properties PropertyStore
}

// NewBuyer wires the buyer activity handlers.
func NewBuyer(buyers BuyerStore, properties PropertyStore) *Buyer {
	return &Buyer{buyers: buyers, properties: properties}
}

// activeProperty resolves the property if it is open to buyer interactions,
// writing the response on failure.
func (h *Buyer) activeProperty(w http.ResponseWriter, r *http.Request, id int64) (domain.Property, bool) {
	prop, err := h.properties.ActivePropertyByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Property not found or not available.")
		return domain.Property{}, false
	}
	return prop, true
}

type favoriteRequest struct {
	PropertyID int64 `json:"property_id"`
}

// AddFavorite saves a property for the caller.
func (h *Buyer) AddFavorite(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil || req.PropertyID < 1 {
		writeError(w, http.StatusBadRequest, "property_id is required")
		return
	}
	if _, ok := h.activeProperty(w, r, req.PropertyID); !ok {
		return
	}

	fav, err := h.buyers.AddFavorite(r.Context(), p.ID, req.PropertyID)
	if errors.Is(err, domain.ErrConflict) {
		writeError(w, http.StatusConflict, "Property is already in your favorites.")
		return
	}
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, fav)
}

// RemoveFavorite deletes a saved property.
func (h *Buyer) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	propertyID, err := pathID(r, "propertyId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}
	if err := h.buyers.RemoveFavorite(r.Context(), p.ID, propertyID); err != nil {
		writeDomainError(w, err, "Favorite not found.")
		return
	}
	writeMessage(w, http.StatusOK, "Property removed from favorites.")
}

// Favorites lists the caller's saved properties.
func (h *Buyer) Favorites(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())
	page := parsePage(r)

	favorites, total, err := h.buyers.Favorites(r.Context(), p.ID, page)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, favorites, page, total)
}

type interestRequest struct {
	PropertyID    int64      `json:"property_id"`
	Message       string     `json:"message"`
	PreferredDate *time.Time `json:"preferred_date"`
	ContactMethod string     `json:"contact_method"`
}

// CreateInterest records a visit request on a property. One pending
// interest per buyer per property.
func (h *Buyer) CreateInterest(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	var req interestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.ContactMethod == "" {
		req.ContactMethod = "email"
	}

	fe := fieldErrors{}
	if req.PropertyID < 1 {
		fe["property_id"] = "property_id is required"
	}
	fe.oneOf("contact_method", req.ContactMethod, "email", "phone")
	if fe.write(w) {
		return
	}
	if _, ok := h.activeProperty(w, r, req.PropertyID); !ok {
		return
	}

	pending, err := h.buyers.PendingInterest(r.Context(), p.ID, req.PropertyID)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	if pending {
		writeError(w, http.StatusConflict, "You already have a pending interest for this property.")
		return
	}

	interest, err := h.buyers.CreateInterest(r.Context(), domain.Interest{
		BuyerID:       p.ID,
		PropertyID:    req.PropertyID,
		Message:       req.Message,
		PreferredDate: req.PreferredDate,
		ContactMethod: req.ContactMethod,
	})
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, interest)
}

// Interests lists the caller's interests, optionally filtered by status.
func (h *Buyer) Interests(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())
	page := parsePage(r)

	interests, total, err := h.buyers.Interests(r.Context(), domain.ActivityFilter{
		BuyerID: p.ID,
		Status:  r.URL.Query().Get("status"),
	}, page)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, interests, page, total)
}

type offerRequest struct {
	PropertyID    int64      `json:"property_id"`
	Amount        float64    `json:"offer_amount"`
	Message       string     `json:"message"`
	OfferType     string     `json:"offer_type"`
	Contingencies []string   `json:"contingencies"`
	ClosingDate   *time.Time `json:"closing_date"`
	EarnestMoney  *float64   `json:"earnest_money"`
}

// CreateOffer records an offer on a property. One pending offer per buyer
// per property.
func (h *Buyer) CreateOffer(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	var req offerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.OfferType == "" {
		req.OfferType = "cash"
	}

	fe := fieldErrors{}
	if req.PropertyID < 1 {
		fe["property_id"] = "property_id is required"
	}
	fe.positive("offer_amount", req.Amount)
	fe.oneOf("offer_type", req.OfferType, "cash", "financed")
	if fe.write(w) {
		return
	}
	prop, ok := h.activeProperty(w, r, req.PropertyID)
	if !ok {
		return
	}

	pending, err := h.buyers.PendingOffer(r.Context(), p.ID, req.PropertyID)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	if pending {
		writeError(w, http.StatusConflict, "You already have a pending offer for this property.")
		return
	}

	offer, err := h.buyers.CreateOffer(r.Context(), domain.Offer{
		BuyerID:       p.ID,
		PropertyID:    req.PropertyID,
		OwnerID:       prop.OwnerID,
		Amount:        req.Amount,
		Message:       req.Message,
		OfferType:     req.OfferType,
		Contingencies: req.Contingencies,
		ClosingDate:   req.ClosingDate,
		EarnestMoney:  req.EarnestMoney,
	})
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, offer)
}

// Offers lists the caller's offers, optionally filtered by status.
func (h *Buyer) Offers(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())
	page := parsePage(r)

	offers, total, err := h.buyers.Offers(r.Context(), domain.ActivityFilter{
		BuyerID: p.ID,
		Status:  r.URL.Query().Get("status"),
	}, page)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, offers, page, total)
}

// The advance due at purchase initiation, as a share of the accepted offer.
const advanceShare = 0.10

type purchaseRequest struct {
	PurchaseType     string     `json:"purchase_type"`
	PaymentMethod    string     `json:"payment_method"`
	FinancingDetails string     `json:"financing_details"`
	ClosingDate      *time.Time `json:"closing_date"`
	Notes            string     `json:"notes"`
}

// InitiatePurchase starts a purchase against the caller's accepted offer on
// the property. Without an accepted offer there is nothing to purchase.
func (h *Buyer) InitiatePurchase(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	propertyID, err := pathID(r, "propertyId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid property id.")
		return
	}

	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.PurchaseType == "" {
		req.PurchaseType = "full"
	}

	fe := fieldErrors{}
	fe.oneOf("purchase_type", req.PurchaseType, "full", "installment")
	if fe.write(w) {
		return
	}

	offer, err := h.buyers.AcceptedOffer(r.Context(), p.ID, propertyID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "You need an accepted offer before initiating a purchase.")
		return
	}
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	active, err := h.buyers.ActivePurchase(r.Context(), p.ID, propertyID)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	if active {
		writeError(w, http.StatusConflict, "You already have a purchase in progress for this property.")
		return
	}

	advance := offer.Amount * advanceShare
	purchase, err := h.buyers.CreatePurchase(r.Context(), domain.Purchase{
		BuyerID:          p.ID,
		PropertyID:       propertyID,
		OwnerID:          offer.OwnerID,
		OfferID:          offer.ID,
		PurchaseType:     req.PurchaseType,
		AdvanceAmount:    advance,
		RemainingAmount:  offer.Amount - advance,
		PaymentMethod:    req.PaymentMethod,
		FinancingDetails: req.FinancingDetails,
		ClosingDate:      req.ClosingDate,
		Notes:            req.Notes,
	})
	if errors.Is(err, domain.ErrConflict) {
		writeError(w, http.StatusConflict, "You already have a purchase in progress for this property.")
		return
	}
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusCreated, purchase)
}

// Purchases lists the caller's purchases, optionally filtered by status.
func (h *Buyer) Purchases(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())
	page := parsePage(r)

	purchases, total, err := h.buyers.Purchases(r.Context(), domain.ActivityFilter{
		BuyerID: p.ID,
		Status:  r.URL.Query().Get("status"),
	}, page)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writePaged(w, purchases, page, total)
}

// Dashboard summarizes the caller's activity.
func (h *Buyer) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())

	stats, err := h.buyers.BuyerDashboard(r.Context(), p.ID)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeData(w, http.StatusOK, stats)
}
