package models

import (
	"math"
	"time"
)

// LedgerEntry records that a user downloaded a worksheet and, optionally, how they rated it.
// At most one entry exists per (UserID, WorksheetID).
type LedgerEntry struct {
	UserID       string     `json:"userId"`
	WorksheetID  string     `json:"worksheetId"`
	DownloadedAt time.Time  `json:"downloadedAt"`
	Rating       *int       `json:"rating"`
	Worksheet    *Worksheet `json:"worksheet,omitempty"`
}

// IsRated reports whether the entry carries a rating
func (e *LedgerEntry) IsRated() bool {
	return e.Rating != nil
}

// RatingSummary is the average and count of ratings given to one worksheet
type RatingSummary struct {
	WorksheetID   string  `json:"worksheetId"`
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// WorksheetRating is one row of the worksheet/ledger join used to build summaries.
// Rating is nil both for unrated entries and for worksheets with no entries at all.
type WorksheetRating struct {
	WorksheetID string
	Rating      *int
}

// MinRating and MaxRating bound a valid rating
const (
	MinRating = 1
	MaxRating = 5
)

// RoundRating rounds an average rating to one decimal place
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
