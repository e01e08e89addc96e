package port

import (
	"context"

	"github.com/google/uuid"

	"gstaudit/internal/domain"
)

// ResultRepository persists validation reports.
type ResultRepository interface {
	Save(ctx context.Context, report *domain.Report) error
	// GetByRunID returns domain.ErrResultNotFound when no report has runID.
	GetByRunID(ctx context.Context, runID uuid.UUID) (*domain.Report, error)
	// ListByInvoice returns the reports for an invoice number, newest first.
	ListByInvoice(ctx context.Context, invoiceID string, limit int) ([]domain.Report, error)
}
