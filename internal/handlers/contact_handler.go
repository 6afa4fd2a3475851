package handlers

import (
	"net/http"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/service"
)

// ContactHandler forwards contact form messages by email
type ContactHandler struct {
	email *service.EmailService
	log   logging.Logger
}

// NewContactHandler creates a new contact handler
func NewContactHandler(email *service.EmailService, log logging.Logger) *ContactHandler {
	return &ContactHandler{email: email, log: log}
}

// Send handles POST /contact
func (h *ContactHandler) Send(w http.ResponseWriter, r *http.Request) {
	var msg service.ContactMessage
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidRequestBody)
		return
	}

	if err := h.email.SendContactMessage(r.Context(), msg); err != nil {
		respondWithServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
