package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crownkeys/internal/api/handler"
	"crownkeys/internal/domain"
)

func TestPropertyListAnonymousHasNoSavedFlag(t *testing.T) {
	h := handler.NewProperties(newFakeProperties(activeProperty(1), activeProperty(2)), newFakeBuyers())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/properties", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "is_favorited")
}

func TestPropertyListAuthenticatedFlagsSaved(t *testing.T) {
	buyers := newFakeBuyers()
	buyers.favorites[1] = true
	h := handler.NewProperties(newFakeProperties(activeProperty(1), activeProperty(2)), buyers)

	rec := httptest.NewRecorder()
	h.List(rec, buyerRequest(http.MethodGet, "/api/properties", "", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	// Every row carries the flag, saved or not.
	assert.Contains(t, rec.Body.String(), `"is_favorited":true`)
	assert.Contains(t, rec.Body.String(), `"is_favorited":false`)
}

func TestPropertyGetAuthenticatedFlagsSaved(t *testing.T) {
	buyers := newFakeBuyers()
	buyers.favorites[5] = true
	h := handler.NewProperties(newFakeProperties(activeProperty(5)), buyers)

	rec := httptest.NewRecorder()
	h.Get(rec, buyerRequest(http.MethodGet, "/api/properties/5", "",
		map[string]string{"id": "5"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_favorited":true`)
}

func TestPropertyGetInactiveIs404(t *testing.T) {
	inactive := activeProperty(5)
	inactive.Status = domain.StatusInactive
	h := handler.NewProperties(newFakeProperties(inactive), newFakeBuyers())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/properties/5", nil)
	h.Get(rec, mux.SetURLVars(req, map[string]string{"id": "5"}))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Property not found")
}

func TestPropertySearchRequiresQuery(t *testing.T) {
	h := handler.NewProperties(newFakeProperties(), newFakeBuyers())

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/properties/search", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPropertyListSavedLookupOutageIs503(t *testing.T) {
	buyers := newFakeBuyers()
	buyers.err = domain.ErrUpstream
	h := handler.NewProperties(newFakeProperties(activeProperty(1)), buyers)

	rec := httptest.NewRecorder()
	h.List(rec, buyerRequest(http.MethodGet, "/api/properties", "", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPropertyListAnonymousSkipsSavedLookup(t *testing.T) {
	// An anonymous read must never touch the buyer store.
	buyers := newFakeBuyers()
	buyers.err = domain.ErrUpstream
	h := handler.NewProperties(newFakeProperties(activeProperty(1)), buyers)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/properties", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}
