package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
	"github.com/tomgandolfo2/ESLworksheets/internal/validation"
)

// LedgerService records downloads and ratings and aggregates ratings per worksheet
type LedgerService struct {
	db         *database.DB
	worksheets *repository.WorksheetRepository
	ledger     *repository.LedgerRepository
	log        logging.Logger
	now        func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(db *database.DB, log logging.Logger) *LedgerService {
	return &LedgerService{
		db:         db,
		worksheets: repository.NewWorksheetRepository(db),
		ledger:     repository.NewLedgerRepository(db),
		log:        log,
		now:        time.Now,
	}
}

// RecordDownload logs that the caller downloaded a worksheet. Repeating it is a
// no-op: the entry and its first timestamp are returned unchanged.
func (s *LedgerService) RecordDownload(ctx context.Context, identity *models.Identity, worksheetID string) (*models.LedgerEntry, error) {
	userID, worksheetID, err := checkCaller(identity, worksheetID)
	if err != nil {
		return nil, err
	}
	if err := s.checkWorksheet(ctx, worksheetID); err != nil {
		return nil, err
	}

	var entry *models.LedgerEntry
	err = s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		ledger := repository.NewLedgerRepository(tx)
		if err := ledger.InsertDownload(ctx, userID, worksheetID, s.now().UTC()); err != nil {
			return err
		}
		entry, err = ledger.Get(ctx, userID, worksheetID)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "record download failed", "user", userID, "worksheet", worksheetID, "error", err)
		return nil, upstream("record download", err)
	}
	if entry == nil {
		return nil, upstream("record download", fmt.Errorf("entry missing after insert"))
	}

	return entry, nil
}

// RecordRating sets the caller's rating for a worksheet, creating the entry if
// needed. The download timestamp of an existing entry is kept.
func (s *LedgerService) RecordRating(ctx context.Context, identity *models.Identity, worksheetID string, rating *int) (*models.LedgerEntry, error) {
	userID, worksheetID, err := checkCaller(identity, worksheetID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateRating(rating, models.MinRating, models.MaxRating); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkWorksheet(ctx, worksheetID); err != nil {
		return nil, err
	}

	var entry *models.LedgerEntry
	err = s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		ledger := repository.NewLedgerRepository(tx)
		if err := ledger.UpsertRating(ctx, userID, worksheetID, *rating, s.now().UTC()); err != nil {
			return err
		}
		entry, err = ledger.Get(ctx, userID, worksheetID)
		return err
	})
	if err != nil {
		s.log.Error(ctx, "record rating failed", "user", userID, "worksheet", worksheetID, "error", err)
		return nil, upstream("record rating", err)
	}
	if entry == nil {
		return nil, upstream("record rating", fmt.Errorf("entry missing after upsert"))
	}

	return entry, nil
}

// checkCaller requires an authenticated caller and a worksheet id
func checkCaller(identity *models.Identity, worksheetID string) (string, string, error) {
	if identity == nil || identity.UserID == "" {
		return "", "", ErrAuthenticationRequired
	}
	worksheetID = strings.TrimSpace(worksheetID)
	if worksheetID == "" {
		return "", "", invalidField("worksheetId", "worksheetId is required")
	}
	return identity.UserID, worksheetID, nil
}

func (s *LedgerService) checkWorksheet(ctx context.Context, worksheetID string) error {
	exists, err := s.worksheets.Exists(ctx, worksheetID)
	if err != nil {
		return upstream("check worksheet", err)
	}
	if !exists {
		return fmt.Errorf("worksheet %s: %w", worksheetID, ErrNotFound)
	}
	return nil
}

// RatingSummaries returns one summary per worksheet, including unrated ones
func (s *LedgerService) RatingSummaries(ctx context.Context) ([]models.RatingSummary, error) {
	rows, err := s.ledger.RatingRows(ctx)
	if err != nil {
		s.log.Error(ctx, "load ratings failed", "error", err)
		return nil, upstream("load ratings", err)
	}
	return Summarize(rows), nil
}

// Summarize groups rating rows by worksheet. The average covers non-nil ratings
// only, rounded to one decimal, and is 0 when a worksheet has no ratings.
// Worksheets keep the order in which they first appear in rows.
func Summarize(rows []models.WorksheetRating) []models.RatingSummary {
	type acc struct {
		sum, count int
	}

	order := []string{}
	totals := map[string]*acc{}
	for _, row := range rows {
		a, ok := totals[row.WorksheetID]
		if !ok {
			a = &acc{}
			totals[row.WorksheetID] = a
			order = append(order, row.WorksheetID)
		}
		if row.Rating != nil {
			a.sum += *row.Rating
			a.count++
		}
	}

	summaries := make([]models.RatingSummary, 0, len(order))
	for _, id := range order {
		a := totals[id]
		summary := models.RatingSummary{WorksheetID: id, ReviewCount: a.count}
		if a.count > 0 {
			summary.AverageRating = models.RoundRating(float64(a.sum) / float64(a.count))
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// ListForUser returns the caller's ledger entries with their worksheets, newest download first
func (s *LedgerService) ListForUser(ctx context.Context, identity *models.Identity) ([]models.LedgerEntry, error) {
	if identity == nil || identity.UserID == "" {
		return nil, ErrAuthenticationRequired
	}

	entries, err := s.ledger.ListForUser(ctx, identity.UserID)
	if err != nil {
		s.log.Error(ctx, "list downloads failed", "user", identity.UserID, "error", err)
		return nil, upstream("list downloads", err)
	}
	return entries, nil
}
