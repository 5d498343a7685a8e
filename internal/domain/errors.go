package domain

import "errors"

// Sentinel errors used across service boundaries. Verification failures are
// deliberately collapsed into ErrInvalidCredential: callers must not be able
// to distinguish expired from malformed from wrongly-signed tokens.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstream          = errors.New("upstream failure")
)

// Response is the standard JSON envelope returned to clients.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
