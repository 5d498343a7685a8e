package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"crownkeys/internal/domain"
)

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID parses the named numeric path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// muxVar returns the named string path variable.
func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// parsePage reads page/limit query parameters, clamped to sane bounds.
func parsePage(r *http.Request) domain.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.Page{Page: page, Limit: limit}.Clamped(10)
}

// parseSort reads sort_by/order query parameters.
func parseSort(r *http.Request) domain.Sort {
	q := r.URL.Query()
	return domain.Sort{
		By:        q.Get("sort_by"),
		Ascending: strings.EqualFold(q.Get("order"), "asc"),
	}
}

func queryFloat(r *http.Request, name string) *float64 {
	if v := r.URL.Query().Get(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

func queryInt(r *http.Request, name string) *int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return &n
		}
	}
	return nil
}

// fieldErrors collects per-field validation failures.
type fieldErrors map[string]string

func (fe fieldErrors) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		fe[field] = field + " is required"
	}
}

func (fe fieldErrors) positive(field string, value float64) {
	if value <= 0 {
		fe[field] = field + " must be greater than zero"
	}
}

func (fe fieldErrors) email(field, value string) {
	if _, err := mail.ParseAddress(value); err != nil {
		fe[field] = "invalid email address"
	}
}

func (fe fieldErrors) oneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	fe[field] = field + " must be one of: " + strings.Join(allowed, ", ")
}

// write reports the failures as a 400, deterministic field order. Returns
// true when there was anything to report.
func (fe fieldErrors) write(w http.ResponseWriter) bool {
	if len(fe) == 0 {
		return false
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = fe[f]
	}
	writeError(w, http.StatusBadRequest, strings.Join(msgs, "; "))
	return true
}

// Image uploads accepted by agent, listing and property endpoints.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}
