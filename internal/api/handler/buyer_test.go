package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crownkeys/internal/api"
	"crownkeys/internal/api/handler"
	"crownkeys/internal/domain"
)

var buyer = domain.Principal{ID: "buyer-1", Role: domain.RoleBuyer}

func buyerRequest(method, path, body string, vars map[string]string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req.WithContext(api.ContextWithPrincipal(req.Context(), buyer))
}

func activeProperty(id int64) domain.Property {
	return domain.Property{ID: id, OwnerID: "owner-1", Title: "Casa", Status: domain.StatusActive}
}

func TestAddFavorite(t *testing.T) {
	buyers := newFakeBuyers()
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	rec := httptest.NewRecorder()
	h.AddFavorite(rec, buyerRequest(http.MethodPost, "/api/buyers/favorites", `{"property_id":5}`, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, buyers.favorites[5])
}

func TestAddFavoriteDuplicateConflicts(t *testing.T) {
	buyers := newFakeBuyers()
	buyers.favorites[5] = true
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	rec := httptest.NewRecorder()
	h.AddFavorite(rec, buyerRequest(http.MethodPost, "/api/buyers/favorites", `{"property_id":5}`, nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already in your favorites")
}

func TestAddFavoriteInactivePropertyIs404(t *testing.T) {
	inactive := activeProperty(5)
	inactive.Status = domain.StatusInactive
	h := handler.NewBuyer(newFakeBuyers(), newFakeProperties(inactive))

	rec := httptest.NewRecorder()
	h.AddFavorite(rec, buyerRequest(http.MethodPost, "/api/buyers/favorites", `{"property_id":5}`, nil))

	// Inactive and missing must be indistinguishable.
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFavorite(t *testing.T) {
	buyers := newFakeBuyers()
	buyers.favorites[5] = true
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	rec := httptest.NewRecorder()
	h.RemoveFavorite(rec, buyerRequest(http.MethodDelete, "/api/buyers/favorites/5", "",
		map[string]string{"propertyId": "5"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, buyers.favorites[5])
}

func TestCreateInterestDuplicatePendingConflicts(t *testing.T) {
	buyers := newFakeBuyers()
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	body := `{"property_id":5,"message":"When can I visit?"}`
	rec := httptest.NewRecorder()
	h.CreateInterest(rec, buyerRequest(http.MethodPost, "/api/buyers/interests", body, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.CreateInterest(rec, buyerRequest(http.MethodPost, "/api/buyers/interests", body, nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending interest")
}

func TestCreateOfferValidation(t *testing.T) {
	h := handler.NewBuyer(newFakeBuyers(), newFakeProperties(activeProperty(5)))

	rec := httptest.NewRecorder()
	h.CreateOffer(rec, buyerRequest(http.MethodPost, "/api/buyers/offers",
		`{"property_id":5,"offer_amount":0}`, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "offer_amount")
}

func TestCreateOfferRecordsOwner(t *testing.T) {
	buyers := newFakeBuyers()
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	rec := httptest.NewRecorder()
	h.CreateOffer(rec, buyerRequest(http.MethodPost, "/api/buyers/offers",
		`{"property_id":5,"offer_amount":250000}`, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, buyers.offers, 1)
	assert.Equal(t, "owner-1", buyers.offers[0].OwnerID)
}

func TestPurchaseRequiresAcceptedOffer(t *testing.T) {
	buyers := newFakeBuyers()
	// Only a pending offer exists.
	buyers.offers = append(buyers.offers, domain.Offer{
		ID: 1, BuyerID: buyer.ID, PropertyID: 5, Status: domain.StatusPending, Amount: 250000,
	})
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	rec := httptest.NewRecorder()
	h.InitiatePurchase(rec, buyerRequest(http.MethodPost, "/api/buyers/purchase/5", `{}`,
		map[string]string{"propertyId": "5"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "accepted offer")
	assert.Empty(t, buyers.purchases)
}

func TestPurchaseSplitsAdvanceFromAcceptedOffer(t *testing.T) {
	buyers := newFakeBuyers()
	buyers.offers = append(buyers.offers, domain.Offer{
		ID: 1, BuyerID: buyer.ID, PropertyID: 5, OwnerID: "owner-1",
		Status: domain.StatusAccepted, Amount: 200000,
	})
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	rec := httptest.NewRecorder()
	h.InitiatePurchase(rec, buyerRequest(http.MethodPost, "/api/buyers/purchase/5", `{}`,
		map[string]string{"propertyId": "5"}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, buyers.purchases, 1)
	pu := buyers.purchases[0]
	assert.InDelta(t, 20000, pu.AdvanceAmount, 0.01)
	assert.InDelta(t, 180000, pu.RemainingAmount, 0.01)
	assert.Equal(t, int64(1), pu.OfferID)
}

func TestPurchaseTwiceConflicts(t *testing.T) {
	buyers := newFakeBuyers()
	buyers.offers = append(buyers.offers, domain.Offer{
		ID: 1, BuyerID: buyer.ID, PropertyID: 5, Status: domain.StatusAccepted, Amount: 100000,
	})
	h := handler.NewBuyer(buyers, newFakeProperties(activeProperty(5)))

	initiate := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.InitiatePurchase(rec, buyerRequest(http.MethodPost, "/api/buyers/purchase/5", `{}`,
			map[string]string{"propertyId": "5"}))
		return rec
	}

	require.Equal(t, http.StatusCreated, initiate().Code)
	require.Equal(t, http.StatusConflict, initiate().Code)
}
