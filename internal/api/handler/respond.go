// Package handler implements the HTTP resource handlers behind the
// access-control guards: auth/session flows, agent profiles, listings,
// owner properties and buyer activity.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"crownkeys/internal/domain"
)

// writeJSON writes the structured response envelope.
func writeJSON(w http.ResponseWriter, status int, resp domain.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeData writes a success envelope around data.
func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, domain.Response{Success: true, Data: data})
}

// writeMessage writes a success envelope with only a message.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.Response{Success: true, Message: msg})
}

// writeError writes a failure envelope. The message is always safe for
// clients; internal detail stays in the logs.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.Response{Success: false, Message: msg})
}

// writeDomainError maps a domain error onto a status code and client-safe
// message. notFoundMsg customizes the 404 text per resource.
func writeDomainError(w http.ResponseWriter, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, clientMessage(err))
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "Resource already exists.")
	case errors.Is(err, domain.ErrInvalidCredential):
		writeError(w, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, domain.ErrUpstream):
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

// clientMessage strips the wrapped sentinel suffix from a validation error,
// leaving the human-readable part.
func clientMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "+domain.ErrInvalidInput.Error()); i > 0 {
		msg = msg[:i]
	}
	return msg
}

// paged wraps a result list with its pagination envelope.
type paged struct {
	Items      any               `json:"items"`
	Pagination domain.Pagination `json:"pagination"`
}

func writePaged(w http.ResponseWriter, items any, p domain.Page, total int) {
	writeData(w, http.StatusOK, paged{Items: items, Pagination: domain.NewPagination(p, total)})
}
