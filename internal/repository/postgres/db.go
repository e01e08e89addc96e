// Package postgres holds the reference tables (HSN/SAC master, GST rate
// schedule) and the validation report store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"gstaudit/internal/config"
)

// SchemaVersion is the highest migration in db/migrations.
const SchemaVersion = 2

const (
	connectTimeout  = 10 * time.Second
	connMaxIdleTime = 5 * time.Minute
)

// SchemaError reports a database whose migrations are missing, behind or
// left dirty by a failed run of cmd/migrate.
type SchemaError struct {
	Version uint
	Dirty   bool
}

func (e *SchemaError) Error() string {
	switch {
	case e.Dirty:
		return fmt.Sprintf("audit schema is dirty at version %d; fix it and rerun migrate", e.Version)
	case e.Version == 0:
		return "audit schema has not been migrated"
	default:
		return fmt.Sprintf("audit schema at version %d, want %d", e.Version, SchemaVersion)
	}
}

// NewDB connects to PostgreSQL, sizes the pool from cfg and refuses a
// database whose audit schema is not at SchemaVersion.
func NewDB(ctx context.Context, cfg *config.DBConfig, log *zap.Logger) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	version, err := CheckSchema(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("postgres: connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Uint("schema_version", version))
	return db, nil
}

// CheckSchema reads the bookkeeping row cmd/migrate maintains and returns
// the applied version, or a *SchemaError when it is not SchemaVersion.
func CheckSchema(ctx context.Context, db *sqlx.DB) (uint, error) {
	var row struct {
		Version int64 `db:"version"`
		Dirty   bool  `db:"dirty"`
	}
	err := db.GetContext(ctx, &row, `SELECT version, dirty FROM schema_migrations LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &SchemaError{}
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema_migrations: %w", err)
	}
	v := uint(max(row.Version, 0))
	if row.Dirty || v != SchemaVersion {
		return v, &SchemaError{Version: v, Dirty: row.Dirty}
	}
	return v, nil
}
