package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/service"
	"github.com/tomgandolfo2/ESLworksheets/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func respondWithError(w http.ResponseWriter, r *http.Request, log logging.Logger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error(r.Context(), logMsg, "error", err, "path", r.URL.Path)
	}

	writeError(w, status, userMsg)
}

// respondWithServiceError maps a service error to its HTTP status.
// Upstream failures are logged; their details never reach the client.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationRequired):
		writeError(w, http.StatusUnauthorized, ErrUnauthorized)
	case errors.Is(err, service.ErrAuthorizationDenied):
		writeError(w, http.StatusForbidden, ErrForbidden)
	case errors.Is(err, service.ErrValidation):
		var verr validation.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrNotFound)
	default:
		respondWithError(w, r, log, http.StatusInternalServerError, ErrInternalServerError, "request failed", err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
