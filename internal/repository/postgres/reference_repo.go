package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gstaudit/internal/port"
)

const insertBatch = 500

type referenceRepo struct {
	db *sqlx.DB
}

// NewReferenceRepo creates a new PostgreSQL-backed ReferenceRepository.
func NewReferenceRepo(db *sqlx.DB) port.ReferenceRepository {
	return &referenceRepo{db: db}
}

func (r *referenceRepo) LoadCodes(ctx context.Context) ([]port.HSNCodeRow, error) {
	var rows []port.HSNCodeRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT code, kind, description, keywords
		 FROM hsn_sac_codes
		 ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("referenceRepo.LoadCodes: %w", err)
	}
	return rows, nil
}

func (r *referenceRepo) LoadRates(ctx context.Context) ([]port.RateRow, error) {
	var rows []port.RateRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT code, description, cgst, sgst, igst, effective_from, effective_to
		 FROM gst_rates
		 ORDER BY code, effective_from`)
	if err != nil {
		return nil, fmt.Errorf("referenceRepo.LoadRates: %w", err)
	}
	return rows, nil
}

// ReplaceCodes swaps the whole code master inside one transaction.
func (r *referenceRepo) ReplaceCodes(ctx context.Context, rows []port.HSNCodeRow) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("referenceRepo.ReplaceCodes begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM hsn_sac_codes"); err != nil {
		return 0, fmt.Errorf("referenceRepo.ReplaceCodes delete: %w", err)
	}
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO hsn_sac_codes (code, kind, description, keywords)
			 VALUES (:code, :kind, :description, :keywords)
			 ON CONFLICT (code) DO UPDATE SET kind = EXCLUDED.kind,
			   description = EXCLUDED.description, keywords = EXCLUDED.keywords`,
			rows[start:end])
		if err != nil {
			return 0, fmt.Errorf("referenceRepo.ReplaceCodes insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("referenceRepo.ReplaceCodes commit: %w", err)
	}
	return len(rows), nil
}

// ReplaceRates swaps the whole rate schedule inside one transaction.
func (r *referenceRepo) ReplaceRates(ctx context.Context, rows []port.RateRow) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("referenceRepo.ReplaceRates begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM gst_rates"); err != nil {
		return 0, fmt.Errorf("referenceRepo.ReplaceRates delete: %w", err)
	}
	for start := 0; start < len(rows); start += insertBatch {
		end := min(start+insertBatch, len(rows))
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO gst_rates (code, description, cgst, sgst, igst, effective_from, effective_to)
			 VALUES (:code, :description, :cgst, :sgst, :igst, :effective_from, :effective_to)
			 ON CONFLICT (code, effective_from) DO NOTHING`,
			rows[start:end])
		if err != nil {
			return 0, fmt.Errorf("referenceRepo.ReplaceRates insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("referenceRepo.ReplaceRates commit: %w", err)
	}
	return len(rows), nil
}
