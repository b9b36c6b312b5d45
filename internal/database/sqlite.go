package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/campus-events/backend/internal/config"
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every connection the pool opens. Foreign keys
// are off by default in SQLite and the participants table depends on them.
var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
}

// SQLiteDSN appends the connection pragmas to a file path or file: URI.
func SQLiteDSN(url string) string {
	dsn := url
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(sqlitePragmas, "&")
}

// OpenSQLite opens the single-file store and creates the schema if absent.
func OpenSQLite(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("sqlite", SQLiteDSN(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serialises writers; a single connection avoids "database is
	// locked" under concurrent requests, which then queue for the handle.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := InitSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// InitSQLite runs the idempotent schema DDL.
func InitSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}
