package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tomgandolfo2/ESLworksheets/internal/database"
	"github.com/tomgandolfo2/ESLworksheets/internal/models"
)

// WorksheetRepository handles database operations for the worksheet catalog
type WorksheetRepository struct {
	db database.DBTX
}

// NewWorksheetRepository creates a new worksheet repository
func NewWorksheetRepository(db database.DBTX) *WorksheetRepository {
	return &WorksheetRepository{db: db}
}

const worksheetColumns = "id, title, description, file_url, level, skill, created_at"

// Create inserts a new worksheet. Catalog order follows insertion order.
func (r *WorksheetRepository) Create(ctx context.Context, ws *models.Worksheet) error {
	query := `
		INSERT INTO worksheets (id, title, description, file_url, level, skill, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		ws.ID, ws.Title, ws.Description, ws.FileURL, string(ws.Level), string(ws.Skill), ws.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create worksheet: %w", err)
	}
	return nil
}

// GetByID retrieves a worksheet by ID, or nil if there is none
func (r *WorksheetRepository) GetByID(ctx context.Context, id string) (*models.Worksheet, error) {
	query := "SELECT " + worksheetColumns + " FROM worksheets WHERE id = ?"

	ws, err := scanWorksheet(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worksheet: %w", err)
	}
	return ws, nil
}

// Exists reports whether a worksheet with the given ID exists
func (r *WorksheetRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM worksheets WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check worksheet: %w", err)
	}
	return count > 0, nil
}

// List returns one page of worksheets matching every filter set in q, in
// insertion order, plus the number of matches ignoring pagination.
// q is expected to have had WithDefaults applied.
func (r *WorksheetRepository) List(ctx context.Context, q models.ListingQuery) ([]models.Worksheet, int, error) {
	where, args := listingFilter(q, r.db.GetDialect().LowerFunc())

	var total int
	countQuery := "SELECT COUNT(*) FROM worksheets" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count worksheets: %w", err)
	}

	pageQuery := "SELECT " + worksheetColumns + " FROM worksheets" + where + " ORDER BY seq ASC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, pageQuery, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list worksheets: %w", err)
	}
	defer rows.Close()

	worksheets := []models.Worksheet{}
	for rows.Next() {
		ws, err := scanWorksheet(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan worksheet: %w", err)
		}
		worksheets = append(worksheets, *ws)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list worksheets: %w", err)
	}

	return worksheets, total, nil
}

// listingFilter builds the conjunctive WHERE clause for a listing query.
// lower is the dialect's case-folding function.
func listingFilter(q models.ListingQuery, lower string) (string, []any) {
	var conds []string
	var args []any

	if q.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, string(q.Level))
	}
	if q.Skill != "" {
		conds = append(conds, "skill = ?")
		args = append(args, string(q.Skill))
	}
	if q.Search != "" {
		conds = append(conds, lower+"(title) LIKE "+lower+"(?) ESCAPE '!'")
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike makes s match literally inside a LIKE pattern using '!' as the escape character
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorksheet(row rowScanner) (*models.Worksheet, error) {
	ws := &models.Worksheet{}
	var level, skill string
	err := row.Scan(&ws.ID, &ws.Title, &ws.Description, &ws.FileURL, &level, &skill, &ws.CreatedAt)
	if err != nil {
		return nil, err
	}
	ws.Level = models.Level(level)
	ws.Skill = models.Skill(skill)
	return ws, nil
}
