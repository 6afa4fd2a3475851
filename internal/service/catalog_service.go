package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
	"github.com/tomgandolfo2/ESLworksheets/internal/storage"
	"github.com/tomgandolfo2/ESLworksheets/internal/validation"
)

// CatalogService lists worksheets and accepts admin uploads
type CatalogService struct {
	worksheets *repository.WorksheetRepository
	files      storage.FileStore
	log        logging.Logger
	now        func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(worksheets *repository.WorksheetRepository, files storage.FileStore, log logging.Logger) *CatalogService {
	return &CatalogService{
		worksheets: worksheets,
		files:      files,
		log:        log,
		now:        time.Now,
	}
}

// List returns the page of worksheets matching q. On a store failure it returns
// an empty page together with an error wrapping ErrUpstream.
func (s *CatalogService) List(ctx context.Context, q models.ListingQuery) (models.WorksheetPage, error) {
	q = q.WithDefaults()

	worksheets, total, err := s.worksheets.List(ctx, q)
	if err != nil {
		s.log.Error(ctx, "worksheet listing failed", "error", err)
		return models.WorksheetPage{Worksheets: []models.Worksheet{}}, upstream("list worksheets", err)
	}

	return models.WorksheetPage{Worksheets: worksheets, Total: total}, nil
}

// UploadInput is a worksheet file plus its metadata as submitted by an admin
type UploadInput struct {
	Title       string
	Description string
	Level       string
	Skill       string
	Filename    string
	ContentType string
	Size        int64
	File        io.Reader
}

// Upload stores the file and creates the worksheet. Only admins may upload.
func (s *CatalogService) Upload(ctx context.Context, identity *models.Identity, in UploadInput) (*models.Worksheet, error) {
	if identity == nil || identity.UserID == "" {
		return nil, ErrAuthenticationRequired
	}
	if !identity.IsAdmin() {
		return nil, ErrAuthorizationDenied
	}

	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateTitle(title); err != nil {
		return nil, invalid(err)
	}
	if strings.TrimSpace(in.Level) == "" {
		return nil, invalidField("level", "level is required")
	}
	level, err := models.ParseLevel(in.Level)
	if err != nil {
		return nil, invalidField("level", err.Error())
	}
	if strings.TrimSpace(in.Skill) == "" {
		return nil, invalidField("skill", "skill is required")
	}
	skill, err := models.ParseSkill(in.Skill)
	if err != nil {
		return nil, invalidField("skill", err.Error())
	}
	if in.File == nil || in.Filename == "" {
		return nil, invalidField("file", "file is required")
	}

	key := storage.WorksheetKey(title, in.Filename)
	fileURL, err := s.files.Put(ctx, key, in.File, in.Size, in.ContentType)
	if err != nil {
		s.log.Error(ctx, "worksheet file upload failed", "key", key, "error", err)
		return nil, upstream("store worksheet file", err)
	}

	ws := &models.Worksheet{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		FileURL:     fileURL,
		Level:       level,
		Skill:       skill,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.worksheets.Create(ctx, ws); err != nil {
		s.log.Error(ctx, "worksheet create failed", "key", key, "error", err)
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.log.Warn(ctx, "orphaned worksheet file left in storage", "key", key, "error", delErr)
		}
		return nil, upstream("create worksheet", err)
	}

	s.log.Info(ctx, "worksheet uploaded", "id", ws.ID, "level", ws.Level, "skill", ws.Skill, "by", identity.UserID)
	return ws, nil
}
