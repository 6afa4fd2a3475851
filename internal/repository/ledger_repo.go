package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

// LedgerRepository handles the per-user download and rating ledger
type LedgerRepository struct {
	db database.DBTX
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db database.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// InsertDownload creates the entry for (userID, worksheetID) stamped with at.
// An existing entry is left as it is.
func (r *LedgerRepository) InsertDownload(ctx context.Context, userID, worksheetID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.GetDialect().InsertDownloadQuery(), userID, worksheetID, at)
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// UpsertRating sets the rating for (userID, worksheetID). A missing entry is
// created with downloaded_at = at; an existing entry keeps its timestamp.
func (r *LedgerRepository) UpsertRating(ctx context.Context, userID, worksheetID string, rating int, at time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.GetDialect().UpsertRatingQuery(), userID, worksheetID, at, rating)
	if err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	return nil
}

// Get retrieves a single entry, or nil if there is none
func (r *LedgerRepository) Get(ctx context.Context, userID, worksheetID string) (*models.LedgerEntry, error) {
	query := `
		SELECT user_id, worksheet_id, downloaded_at, rating
		FROM ledger_entries
		WHERE user_id = ? AND worksheet_id = ?
	`
	entry := &models.LedgerEntry{}
	var rating sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, userID, worksheetID).Scan(
		&entry.UserID,
		&entry.WorksheetID,
		&entry.DownloadedAt,
		&rating,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	entry.Rating = ratingPtr(rating)
	return entry, nil
}

// ListForUser returns every entry owned by userID with its worksheet, most recent download first
func (r *LedgerRepository) ListForUser(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	query := `
		SELECT l.user_id, l.worksheet_id, l.downloaded_at, l.rating,
		       w.id, w.title, w.description, w.file_url, w.level, w.skill, w.created_at
		FROM ledger_entries l
		INNER JOIN worksheets w ON w.id = l.worksheet_id
		WHERE l.user_id = ?
		ORDER BY l.downloaded_at DESC, w.seq DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var entry models.LedgerEntry
		var rating sql.NullInt64
		var level, skill string
		ws := &models.Worksheet{}
		if err := rows.Scan(
			&entry.UserID, &entry.WorksheetID, &entry.DownloadedAt, &rating,
			&ws.ID, &ws.Title, &ws.Description, &ws.FileURL, &level, &skill, &ws.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		ws.Level = models.Level(level)
		ws.Skill = models.Skill(skill)
		entry.Rating = ratingPtr(rating)
		entry.Worksheet = ws
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}

// ListAll returns every ledger entry without worksheet details
func (r *LedgerRepository) ListAll(ctx context.Context) ([]models.LedgerEntry, error) {
	query := `
		SELECT user_id, worksheet_id, downloaded_at, rating
		FROM ledger_entries
		ORDER BY downloaded_at ASC, user_id ASC, worksheet_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var entry models.LedgerEntry
		var rating sql.NullInt64
		if err := rows.Scan(&entry.UserID, &entry.WorksheetID, &entry.DownloadedAt, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Rating = ratingPtr(rating)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// RatingRows returns every worksheet joined with its ledger ratings.
// A worksheet with no entries yields one row with a nil rating.
func (r *LedgerRepository) RatingRows(ctx context.Context) ([]models.WorksheetRating, error) {
	query := `
		SELECT w.id, l.rating
		FROM worksheets w
		LEFT JOIN ledger_entries l ON l.worksheet_id = w.id
		ORDER BY w.seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	defer rows.Close()

	var out []models.WorksheetRating
	for rows.Next() {
		var row models.WorksheetRating
		var rating sql.NullInt64
		if err := rows.Scan(&row.WorksheetID, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		row.Rating = ratingPtr(rating)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}

	return out, nil
}

func ratingPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
