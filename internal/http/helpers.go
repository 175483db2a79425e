package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dividi/internal/core"
	"dividi/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain and storage errors onto HTTP statuses.
// Validation problems are 422, missing rows 404, double settlement 409,
// anything else propagates as 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, core.ErrAlreadySettled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrEmptyCurrency),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrNoParticipants),
		errors.Is(err, core.ErrUnknownPayer),
		errors.Is(err, core.ErrInvalidSplitType),
		errors.Is(err, core.ErrSharesMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody unmarshals a JSON request body with unknown fields rejected.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
