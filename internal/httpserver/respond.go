package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"zchat/internal/domain"
	"zchat/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps service errors to status codes. Anything unrecognised is
// logged and reported as a 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotChatMember):
		writeErrorMessage(w, http.StatusForbidden, "user is not a chat member")
	case errors.Is(err, domain.ErrForbidden):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeErrorMessage(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, service.ErrBadCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, err.Error())
	default:
		log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt returns def when the parameter is absent and false when it is
// present but not an integer.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
