// Package sqlstore persists validation reports through sqlx. Queries are
// written with ? placeholders and rebound for the connected driver, so the
// same repository serves PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
)

// DefaultListLimit caps ListByInvoice when no limit is given.
const DefaultListLimit = 50

type resultRepo struct {
	db *sqlx.DB
}

// NewResultRepo creates a ResultRepository over db. The validation_results
// table must exist.
func NewResultRepo(db *sqlx.DB) port.ResultRepository {
	return &resultRepo{db: db}
}

func (r *resultRepo) Save(ctx context.Context, report *domain.Report) error {
	res := report.Result
	if res == nil {
		return fmt.Errorf("resultRepo.Save: report has no result")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("resultRepo.Save marshal: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO validation_results (
			run_id, invoice_id, status, verdict, escalate,
			average_confidence, reference_version, report, validated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		res.RunID.String(), res.InvoiceID, string(res.Status), report.Verdict, report.Escalation.Escalate,
		res.AverageConfidence, res.ReferenceVersion, string(data), res.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("resultRepo.Save: %w", err)
	}
	return nil
}

func (r *resultRepo) GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.Report, error) {
	var data []byte
	err := r.db.GetContext(ctx, &data, r.db.Rebind(
		"SELECT report FROM validation_results WHERE run_id = ?"), runID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResultNotFound
		}
		return nil, fmt.Errorf("resultRepo.GetByRunID: %w", err)
	}
	return decode(data)
}

func (r *resultRepo) ListByInvoice(ctx context.Context, invoiceID string, limit int) ([]domain.Report, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var rows [][]byte
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(
		`SELECT report FROM validation_results
		 WHERE invoice_id = ?
		 ORDER BY validated_at DESC, run_id
		 LIMIT ?`), invoiceID, limit)
	if err != nil {
		return nil, fmt.Errorf("resultRepo.ListByInvoice: %w", err)
	}
	out := make([]domain.Report, 0, len(rows))
	for _, data := range rows {
		rep, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}
	return out, nil
}

func decode(data []byte) (*domain.Report, error) {
	var rep domain.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("resultRepo: decoding stored report: %w", err)
	}
	return &rep, nil
}
