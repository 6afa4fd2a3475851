package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/service"
)

// WorksheetHandler serves the catalog listing and the download/rating ledger
type WorksheetHandler struct {
	catalog *service.CatalogService
	ledger  *service.LedgerService
	log     logging.Logger
}

// NewWorksheetHandler creates a new worksheet handler
func NewWorksheetHandler(catalog *service.CatalogService, ledger *service.LedgerService, log logging.Logger) *WorksheetHandler {
	return &WorksheetHandler{
		catalog: catalog,
		ledger:  ledger,
		log:     log,
	}
}

// List returns one page of worksheets matching the query parameters
func (h *WorksheetHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseListingQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.catalog.List(r.Context(), q)
	if err != nil {
		respondWithServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type badParamError string

func (e badParamError) Error() string { return string(e) }

// parseListingQuery reads level, skill, search, limit and offset. Absent values mean
// no filter or the default; malformed values are rejected.
func parseListingQuery(values url.Values) (models.ListingQuery, error) {
	var q models.ListingQuery

	level, err := models.ParseLevel(values.Get("level"))
	if err != nil {
		return q, badParamError("invalid level")
	}
	skill, err := models.ParseSkill(values.Get("skill"))
	if err != nil {
		return q, badParamError("invalid skill")
	}
	q.Level = level
	q.Skill = skill
	q.Search = strings.TrimSpace(values.Get("search"))

	if v := values.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return q, badParamError("limit must be a positive integer")
		}
		q.Limit = limit
	}
	if v := values.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return q, badParamError("offset must be a non-negative integer")
		}
		q.Offset = offset
	}

	return q.WithDefaults(), nil
}

type downloadRequest struct {
	WorksheetID string `json:"worksheetId"`
}

// Download records that the caller downloaded a worksheet
func (h *WorksheetHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidRequestBody)
		return
	}

	entry, err := h.ledger.RecordDownload(r.Context(), GetIdentityFromContext(r.Context()), req.WorksheetID)
	if err != nil {
		respondWithServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Downloads lists the caller's ledger entries with their worksheets
func (h *WorksheetHandler) Downloads(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.ListForUser(r.Context(), GetIdentityFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, h.log, err)
		return
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type rateRequest struct {
	WorksheetID string `json:"worksheetId"`
	Rating      *int   `json:"rating"`
}

// Rate sets the caller's rating for a worksheet
func (h *WorksheetHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidRequestBody)
		return
	}

	entry, err := h.ledger.RecordRating(r.Context(), GetIdentityFromContext(r.Context()), req.WorksheetID, req.Rating)
	if err != nil {
		respondWithServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Ratings returns the rating summary of every worksheet
func (h *WorksheetHandler) Ratings(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.ledger.RatingSummaries(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}
