// Package memory holds in-process repositories for the CLI and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
)

// ResultRepo keeps reports in a map keyed by run ID.
type ResultRepo struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]domain.Report
}

var _ port.ResultRepository = (*ResultRepo)(nil)

// NewResultRepo returns an empty repository.
func NewResultRepo() *ResultRepo {
	return &ResultRepo{reports: map[uuid.UUID]domain.Report{}}
}

func (r *ResultRepo) Save(_ context.Context, report *domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[report.Result.RunID] = *report
	return nil
}

func (r *ResultRepo) GetByRunID(_ context.Context, runID uuid.UUID) (*domain.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[runID]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	return &rep, nil
}

func (r *ResultRepo) ListByInvoice(_ context.Context, invoiceID string, limit int) ([]domain.Report, error) {
	r.mu.RLock()
	var out []domain.Report
	for _, rep := range r.reports {
		if rep.Result.InvoiceID == invoiceID {
			out = append(out, rep)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Result, out[j].Result
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.RunID.String() < b.RunID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
