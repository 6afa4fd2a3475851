package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// ConfigureConnection applies any database-specific connection settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// GooseDialect returns the dialect name goose expects
	GooseDialect() string

	// InsertDownloadQuery inserts a ledger row (user_id, worksheet_id, downloaded_at)
	// and leaves an existing row for the same pair untouched.
	InsertDownloadQuery() string

	// UpsertRatingQuery inserts a ledger row (user_id, worksheet_id, downloaded_at, rating)
	// or, when the pair exists, updates only its rating.
	UpsertRatingQuery() string

	// LowerFunc names the SQL function that lowercases text for case-insensitive search
	LowerFunc() string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

const (
	insertDownloadBase = "INSERT INTO ledger_entries (user_id, worksheet_id, downloaded_at) VALUES (?, ?, ?)"
	upsertRatingBase   = "INSERT INTO ledger_entries (user_id, worksheet_id, downloaded_at, rating) VALUES (?, ?, ?, ?)"
)

// placeholderRegexp matches ? placeholders not inside quotes
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}
