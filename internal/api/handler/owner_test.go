package handler_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crownkeys/internal/api"
	"crownkeys/internal/api/handler"
	"crownkeys/internal/domain"
)

var owner = domain.Principal{ID: "owner-1", Role: domain.RoleOwner}

func ownerRequest(req *http.Request, vars map[string]string) *http.Request {
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req.WithContext(api.ContextWithPrincipal(req.Context(), owner))
}

// photoForm builds a multipart body with one fake image per name.
func photoForm(t *testing.T, field string, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestOwnerCreateProperty(t *testing.T) {
	props := newFakeProperties()
	h := handler.NewOwner(props, &fakeObjects{}, 5<<20, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/owner/properties",
		bytes.NewReader([]byte(`{"title":"Villa","address":"1 Hill Rd","city":"Austin","state":"TX","price":500000,"size":240}`)))
	rec := httptest.NewRecorder()
	h.Create(rec, ownerRequest(req, nil))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, props.props, 1)
	assert.Equal(t, owner.ID, props.props[1].OwnerID)
	assert.Equal(t, domain.StatusActive, props.props[1].Status)
}

func TestOwnerCreatePropertyValidation(t *testing.T) {
	h := handler.NewOwner(newFakeProperties(), &fakeObjects{}, 5<<20, 10)

	req := httptest.NewRequest(http.MethodPost, "/api/owner/properties",
		bytes.NewReader([]byte(`{"title":"Villa","address":"1 Hill Rd","city":"Austin","state":"TX","price":500000,"size":0}`)))
	rec := httptest.NewRecorder()
	h.Create(rec, ownerRequest(req, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "size")
}

func TestOwnerAddPhotos(t *testing.T) {
	prop := activeProperty(5)
	prop.Photos = []string{"https://cdn.test/owner-1/old.jpg"}
	props := newFakeProperties(prop)
	objects := &fakeObjects{}
	h := handler.NewOwner(props, objects, 5<<20, 10)

	body, contentType := photoForm(t, "photos", "new.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/owner/properties/5/photos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.AddPhotos(rec, ownerRequest(req, map[string]string{"id": "5"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, props.props[5].Photos, 2)
	assert.Equal(t, []string{"owner-1/new.jpg"}, objects.uploaded)
}

func TestOwnerAddPhotosOverCapRollsBack(t *testing.T) {
	prop := activeProperty(5)
	prop.Photos = []string{"https://cdn.test/owner-1/a.jpg", "https://cdn.test/owner-1/b.jpg"}
	props := newFakeProperties(prop)
	objects := &fakeObjects{}
	h := handler.NewOwner(props, objects, 5<<20, 3)

	body, contentType := photoForm(t, "photos", "c.jpg", "d.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/owner/properties/5/photos", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.AddPhotos(rec, ownerRequest(req, map[string]string{"id": "5"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	// The batch was stored before the cap check, so it must be cleaned up.
	assert.Len(t, objects.deleted, 2)
	assert.Len(t, props.props[5].Photos, 2)
}

func TestOwnerRemovePhotos(t *testing.T) {
	prop := activeProperty(5)
	prop.Photos = []string{"https://cdn.test/owner-1/a.jpg", "https://cdn.test/owner-1/b.jpg"}
	props := newFakeProperties(prop)
	objects := &fakeObjects{}
	h := handler.NewOwner(props, objects, 5<<20, 10)

	req := httptest.NewRequest(http.MethodDelete, "/api/owner/properties/5/photos",
		bytes.NewReader([]byte(`{"photos":["https://cdn.test/owner-1/a.jpg"]}`)))
	rec := httptest.NewRecorder()
	h.RemovePhotos(rec, ownerRequest(req, map[string]string{"id": "5"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"https://cdn.test/owner-1/b.jpg"}, props.props[5].Photos)
	assert.Equal(t, []string{"owner-1/a.jpg"}, objects.deleted)
}

func TestOwnerRemovePhotosUnknownURL(t *testing.T) {
	prop := activeProperty(5)
	prop.Photos = []string{"https://cdn.test/owner-1/a.jpg"}
	h := handler.NewOwner(newFakeProperties(prop), &fakeObjects{}, 5<<20, 10)

	req := httptest.NewRequest(http.MethodDelete, "/api/owner/properties/5/photos",
		bytes.NewReader([]byte(`{"photos":["https://cdn.test/owner-1/other.jpg"]}`)))
	rec := httptest.NewRecorder()
	h.RemovePhotos(rec, ownerRequest(req, map[string]string{"id": "5"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOwnerSetStatus(t *testing.T) {
	props := newFakeProperties(activeProperty(5))
	h := handler.NewOwner(props, &fakeObjects{}, 5<<20, 10)

	req := httptest.NewRequest(http.MethodPatch, "/api/owner/properties/5/disable", nil)
	rec := httptest.NewRecorder()
	h.SetStatus(domain.StatusInactive)(rec, ownerRequest(req, map[string]string{"id": "5"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusInactive, props.props[5].Status)
}

func TestOwnerDeleteRemovesStoredPhotos(t *testing.T) {
	prop := activeProperty(5)
	prop.Photos = []string{"https://cdn.test/owner-1/a.jpg"}
	props := newFakeProperties(prop)
	objects := &fakeObjects{}
	h := handler.NewOwner(props, objects, 5<<20, 10)

	req := httptest.NewRequest(http.MethodDelete, "/api/owner/properties/5", nil)
	rec := httptest.NewRecorder()
	h.Delete(rec, ownerRequest(req, map[string]string{"id": "5"}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, props.props)
	assert.Equal(t, []string{"owner-1/a.jpg"}, objects.deleted)
}
