package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"crownkeys/internal/domain"
)

// uploader validates and stores multipart image uploads.
type uploader struct {
	store        ObjectStore
	maxFileBytes int64
	maxFiles     int
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// files uploads every file under the form field and returns their public
// URLs. Count, size and content type are checked before anything is stored,
// so a rejected batch stores nothing.
func (u uploader) files(r *http.Request, field, ownerID string) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	if len(headers) > u.maxFiles {
		return nil, fmt.Errorf("at most %d files per upload: %w", u.maxFiles, domain.ErrInvalidInput)
	}
	for _, fh := range headers {
		if err := u.check(fh); err != nil {
			return nil, err
		}
	}

	urls := make([]string, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload %q: %w", fh.Filename, err)
		}
		key, err := u.store.Upload(r.Context(), ownerID, fh.Filename, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, u.store.PublicURL(key))
	}
	return urls, nil
}

// file uploads a single optional file under the form field.
func (u uploader) file(r *http.Request, field, ownerID string) (string, error) {
	urls, err := u.files(r, field, ownerID)
	if err != nil {
		return "", err
	}
	if len(urls) == 0 {
		return "", nil
	}
	return urls[0], nil
}

func (u uploader) check(fh *multipart.FileHeader) error {
	if fh.Size > u.maxFileBytes {
		return fmt.Errorf("file %q exceeds %d bytes: %w", fh.Filename, u.maxFileBytes, domain.ErrInvalidInput)
	}
	if ct := fh.Header.Get("Content-Type"); !allowedImageTypes[ct] {
		return fmt.Errorf("file %q has unsupported type %q: %w", fh.Filename, ct, domain.ErrInvalidInput)
	}
	return nil
}

// remove deletes stored objects behind public URLs, best effort. Only keys
// this service minted resolve; foreign URLs are skipped.
func (u uploader) remove(r *http.Request, urls []string) {
	for _, raw := range urls {
		if key, ok := u.keyFromURL(raw); ok {
			// Deletion failures leave orphans in the bucket, nothing worse.
			_ = u.store.Delete(r.Context(), key)
		}
	}
}

func (u uploader) keyFromURL(raw string) (string, bool) {
	prefix := u.store.PublicURL("")
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(raw, prefix)
	return key, key != ""
}
