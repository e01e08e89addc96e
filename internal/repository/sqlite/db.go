// Package sqlite opens a local SQLite database for validation reports.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open opens (or creates) a SQLite database at dsn and ensures the
// validation_results table exists. Pass ":memory:" for an in-memory database.
func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func createTables(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS validation_results (
			run_id TEXT PRIMARY KEY,
			invoice_id TEXT NOT NULL,
			status TEXT NOT NULL,
			verdict TEXT NOT NULL,
			escalate BOOLEAN NOT NULL,
			average_confidence REAL NOT NULL,
			reference_version TEXT NOT NULL DEFAULT '',
			report TEXT NOT NULL,
			validated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_validation_results_invoice ON validation_results(invoice_id, validated_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}
