package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/logging"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
	"github.com/tomgandolfo2/ESLworksheets/internal/repository"
)

const backupVersion = "1"

// BackupData is the complete database backup document
type BackupData struct {
	Version      string             `json:"version"`
	ExportedAt   time.Time          `json:"exported_at"`
	DatabaseType string             `json:"database_type"`
	Users        []UserBackup       `json:"users"`
	Worksheets   []models.Worksheet `json:"worksheets"`
	Ledger       []LedgerBackup     `json:"ledger"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LedgerBackup represents one download/rating entry for backup
type LedgerBackup struct {
	UserID       string    `json:"user_id"`
	WorksheetID  string    `json:"worksheet_id"`
	DownloadedAt time.Time `json:"downloaded_at"`
	Rating       *int      `json:"rating,omitempty"`
}

// ImportStats counts the rows an import created
type ImportStats struct {
	Users      int
	Worksheets int
	Ledger     int
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log logging.Logger
	now func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log logging.Logger) *BackupService {
	return &BackupService{db: db, log: log, now: time.Now}
}

// Export writes every user, worksheet and ledger entry to w as JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) error {
	data := BackupData{
		Version:      backupVersion,
		ExportedAt:   s.now().UTC(),
		DatabaseType: s.db.Dialect.GooseDialect(),
	}

	users, err := repository.NewUserRepository(s.db).ListAll(ctx)
	if err != nil {
		return err
	}
	data.Users = make([]UserBackup, 0, len(users))
	for _, u := range users {
		data.Users = append(data.Users, UserBackup{
			ID:            u.ID,
			Email:         u.Email,
			Name:          u.Name,
			Role:          u.Role,
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.UpdatedAt,
		})
	}

	worksheets := repository.NewWorksheetRepository(s.db)
	data.Worksheets = []models.Worksheet{}
	for offset := 0; ; offset += models.MaxPageSize {
		page, total, err := worksheets.List(ctx, models.ListingQuery{Limit: models.MaxPageSize, Offset: offset})
		if err != nil {
			return err
		}
		data.Worksheets = append(data.Worksheets, page...)
		if len(page) == 0 || offset+len(page) >= total {
			break
		}
	}

	entries, err := repository.NewLedgerRepository(s.db).ListAll(ctx)
	if err != nil {
		return err
	}
	data.Ledger = make([]LedgerBackup, 0, len(entries))
	for _, e := range entries {
		data.Ledger = append(data.Ledger, LedgerBackup{
			UserID:       e.UserID,
			WorksheetID:  e.WorksheetID,
			DownloadedAt: e.DownloadedAt,
			Rating:       e.Rating,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}

	s.log.Info(ctx, "backup exported",
		"users", len(data.Users), "worksheets", len(data.Worksheets), "ledger", len(data.Ledger))
	return nil
}

// Import merges a backup into the database in one transaction. Users and
// worksheets that already exist are skipped; ledger entries keep their
// existing download time and take the backup's rating.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (ImportStats, error) {
	var data BackupData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return ImportStats{}, fmt.Errorf("failed to read backup: %w", err)
	}
	if data.Version != backupVersion {
		return ImportStats{}, fmt.Errorf("unsupported backup version %q", data.Version)
	}

	var stats ImportStats
	err := s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		users := repository.NewUserRepository(tx)
		for _, u := range data.Users {
			existing, err := users.GetByID(ctx, u.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}
			if err := users.Create(ctx, &models.User{
				ID:            u.ID,
				Email:         u.Email,
				Name:          u.Name,
				Role:          u.Role,
				OAuthProvider: u.OAuthProvider,
				OAuthSubject:  u.OAuthSubject,
				CreatedAt:     u.CreatedAt,
				UpdatedAt:     u.UpdatedAt,
			}); err != nil {
				return err
			}
			stats.Users++
		}

		worksheets := repository.NewWorksheetRepository(tx)
		for i := range data.Worksheets {
			ws := data.Worksheets[i]
			exists, err := worksheets.Exists(ctx, ws.ID)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if err := worksheets.Create(ctx, &ws); err != nil {
				return err
			}
			stats.Worksheets++
		}

		ledger := repository.NewLedgerRepository(tx)
		for _, e := range data.Ledger {
			if err := ledger.InsertDownload(ctx, e.UserID, e.WorksheetID, e.DownloadedAt); err != nil {
				return err
			}
			if e.Rating != nil {
				if err := ledger.UpsertRating(ctx, e.UserID, e.WorksheetID, *e.Rating, e.DownloadedAt); err != nil {
					return err
				}
			}
			stats.Ledger++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, fmt.Errorf("import failed: %w", err)
	}

	s.log.Info(ctx, "backup imported", "users", stats.Users, "worksheets", stats.Worksheets, "ledger", stats.Ledger)
	return stats, nil
}

// Clear deletes every row, children before parents
func (s *BackupService) Clear(ctx context.Context) error {
	return s.db.WithTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		for _, table := range []string{"ledger_entries", "worksheets", "users"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
		}
		return nil
	})
}
