package database

import (
	"database/sql"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// sqliteDriverName is go-sqlite3 with a utf8_lower function on every connection.
// The built-in LOWER only folds ASCII.
const sqliteDriverName = "sqlite3_unicode"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("utf8_lower", strings.ToLower, true)
		},
	})
}

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return sqliteDriverName
}

// DSN enables foreign keys on every pooled connection, not just the first
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	if strings.Contains(config.Path, "_foreign_keys") {
		return config.Path
	}
	if strings.Contains(config.Path, "?") {
		return config.Path + "&_foreign_keys=on"
	}
	return config.Path + "?_foreign_keys=on"
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return err
	}

	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) GooseDialect() string {
	return "sqlite3"
}

func (d *SQLiteDialect) InsertDownloadQuery() string {
	return insertDownloadBase + " ON CONFLICT (user_id, worksheet_id) DO NOTHING"
}

func (d *SQLiteDialect) UpsertRatingQuery() string {
	return upsertRatingBase + " ON CONFLICT (user_id, worksheet_id) DO UPDATE SET rating = excluded.rating"
}

func (d *SQLiteDialect) LowerFunc() string {
	return "utf8_lower"
}
