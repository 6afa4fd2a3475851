package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/security"
	"github.com/tomgandolfo2/ESLworksheets/internal/service"
)

// AdminHandler serves the admin-only worksheet upload form and endpoint
type AdminHandler struct {
	catalog   *service.CatalogService
	csrf      *security.CSRFGenerator
	templates *template.Template
	maxUpload int64
	log       logging.Logger
}

// NewAdminHandler creates a new admin handler. maxUpload caps the multipart body in bytes.
func NewAdminHandler(catalog *service.CatalogService, csrf *security.CSRFGenerator, templates *template.Template, maxUpload int64, log logging.Logger) *AdminHandler {
	return &AdminHandler{
		catalog:   catalog,
		csrf:      csrf,
		templates: templates,
		maxUpload: maxUpload,
		log:       log,
	}
}

// UploadViewData is passed to the upload form template
type UploadViewData struct {
	Title     string
	User      *models.Identity
	CSRFToken string
	Levels    []models.Level
	Skills    []models.Skill
	Error     string
	Uploaded  *models.Worksheet
}

// getCSRFToken is a helper to get the CSRF token bound to the current session
func (h *AdminHandler) getCSRFToken(r *http.Request) string {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		return ""
	}
	token, _ := h.csrf.GenerateToken(session.ID)
	return token
}

// ShowUpload renders the upload form
func (h *AdminHandler) ShowUpload(w http.ResponseWriter, r *http.Request) {
	data := UploadViewData{
		Title:     "Upload worksheet - ESL Worksheets",
		User:      GetIdentityFromContext(r.Context()),
		CSRFToken: h.getCSRFToken(r),
		Levels:    models.Levels,
		Skills:    models.Skills,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "upload.tmpl", data); err != nil {
		respondWithError(w, r, h.log, http.StatusInternalServerError, ErrInternalServerError, "Error rendering upload template", err)
	}
}

// Upload accepts a multipart form with title, description, level, skill and file
// and answers 201 with the created worksheet.
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, ErrInvalidFormData)
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Browsers carry the session in a cookie and must echo the form's CSRF token
	if c, err := r.Cookie(security.SessionCookieName); err == nil && c.Value != "" {
		if !h.validCSRF(r) {
			writeError(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}
	}

	in := service.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Level:       r.FormValue("level"),
		Skill:       r.FormValue("skill"),
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		in.File = file
		in.Filename = header.Filename
		in.Size = header.Size
		in.ContentType = header.Header.Get("Content-Type")
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, ErrInvalidFormData)
		return
	}

	ws, err := h.catalog.Upload(r.Context(), GetIdentityFromContext(r.Context()), in)
	if err != nil {
		respondWithServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (h *AdminHandler) validCSRF(r *http.Request) bool {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		return false
	}
	token := r.Header.Get(csrfHeaderName)
	if token == "" {
		token = r.FormValue(csrfFormField)
	}
	return h.csrf.ValidateToken(session.ID, token)
}
