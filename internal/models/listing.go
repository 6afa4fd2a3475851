package models

const (
	// DefaultPageSize is used when a listing request names no limit
	DefaultPageSize = 10
	// MaxPageSize caps the limit a client may request
	MaxPageSize = 100
)

// ListingQuery filters and paginates the worksheet catalog
type ListingQuery struct {
	Level  Level
	Skill  Skill
	Search string
	Offset int
	Limit  int
}

// WithDefaults fills in the default page size
func (q ListingQuery) WithDefaults() ListingQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// WorksheetPage is one page of listing results plus the unpaginated match count
type WorksheetPage struct {
	Worksheets []Worksheet `json:"worksheets"`
	Total      int         `json:"total"`
}
