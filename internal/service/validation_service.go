package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gstaudit/internal/csvexport"
	"gstaudit/internal/domain"
	"gstaudit/internal/ledger"
	"gstaudit/internal/port"
	"gstaudit/internal/validator"
	"gstaudit/internal/validator/invoice"
)

// DefaultBatchConcurrency bounds concurrent invoices in ValidateBatch.
const DefaultBatchConcurrency = 4

// DefaultListLimit caps ListByInvoice when the caller passes no limit.
const DefaultListLimit = 50

// ValidationService runs the rule engine and handles everything around a run:
// ledger history, escalation, persistence, notification and report archiving.
type ValidationService interface {
	Validate(ctx context.Context, inv *invoice.Invoice) (*domain.Report, error)
	ValidateBatch(ctx context.Context, invs []*invoice.Invoice) (*BatchReport, error)
	Get(ctx context.Context, runID uuid.UUID) (*domain.Report, error)
	ListByInvoice(ctx context.Context, invoiceNumber string, limit int) ([]*domain.Report, error)
}

// ReportArchive uploads batch CSV summaries to object storage.
type ReportArchive struct {
	Storage       port.AuditStorage
	Bucket        string
	Prefix        string
	PresignExpiry time.Duration
}

// ValidationDeps wires a ValidationService. Engine, Policy and References are
// required; the rest are optional.
type ValidationDeps struct {
	Engine     *validator.Engine
	Policy     *validator.EscalationPolicy
	References ReferenceService
	Ledger     ledger.Ledger
	Results    port.ResultRepository
	Notifier   port.EscalationNotifier
	Archive    *ReportArchive

	BatchConcurrency int
	Now              func() time.Time
}

// BatchOutcome is the result for one invoice of a batch. Exactly one of
// Report and Error is set.
type BatchOutcome struct {
	Index     int            `json:"index"`
	InvoiceID string         `json:"invoice_id"`
	Report    *domain.Report `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// BatchSummary aggregates the outcomes of a batch.
type BatchSummary struct {
	Total             int     `json:"total"`
	Passed            int     `json:"passed"`
	Failed            int     `json:"failed"`
	Escalated         int     `json:"escalated"`
	InvalidInput      int     `json:"invalid_input"`
	Errors            int     `json:"errors"`
	AverageConfidence float64 `json:"average_confidence"`
	EscalationRate    float64 `json:"escalation_rate"`
}

// BatchReport is returned by ValidateBatch.
type BatchReport struct {
	Outcomes   []BatchOutcome `json:"outcomes"`
	Summary    BatchSummary   `json:"summary"`
	ArchiveKey string         `json:"archive_key,omitempty"`
	ArchiveURL string         `json:"archive_url,omitempty"`
}

// Reports returns the successful reports in input order.
func (b *BatchReport) Reports() []*domain.Report {
	out := make([]*domain.Report, 0, len(b.Outcomes))
	for i := range b.Outcomes {
		if b.Outcomes[i].Report != nil {
			out = append(out, b.Outcomes[i].Report)
		}
	}
	return out
}

type validationService struct {
	deps ValidationDeps
	log  *zap.Logger
}

func NewValidationService(deps ValidationDeps, log *zap.Logger) ValidationService {
	if deps.BatchConcurrency <= 0 {
		deps.BatchConcurrency = DefaultBatchConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &validationService{deps: deps, log: log}
}

func (s *validationService) Validate(ctx context.Context, inv *invoice.Invoice) (*domain.Report, error) {
	if inv == nil {
		return nil, fmt.Errorf("%w: no invoice", domain.ErrInvalidInvoice)
	}
	snap := s.deps.References.Current()
	if snap == nil {
		return nil, domain.ErrReferenceUnavailable
	}

	key, hasKey := s.ledgerKey(inv, snap.Policy.FinancialYear)
	hist := invoice.History{}
	if hasKey {
		h, err := s.deps.Ledger.History(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Warn("service.ValidationService: ledger unavailable, history unknown",
				zap.String("invoice", inv.InvoiceNumber), zap.Error(err))
		} else {
			hist = h
		}
	}

	res, err := s.deps.Engine.Run(ctx, inv, snap, hist)
	if err != nil {
		return nil, err
	}
	report := domain.NewReport(res, s.deps.Policy.Decide(res, inv))

	if s.deps.Results != nil {
		if err := s.deps.Results.Save(ctx, report); err != nil {
			return nil, fmt.Errorf("saving report %s: %w", res.RunID, err)
		}
	}

	if report.Escalation.Escalate && s.deps.Notifier != nil {
		if err := s.deps.Notifier.NotifyEscalation(ctx, report); err != nil {
			s.log.Warn("service.ValidationService: escalation notice failed",
				zap.String("run_id", res.RunID.String()), zap.Error(err))
		}
	}

	// The ledger only books invoices that went straight through.
	if hasKey && report.Verdict == domain.VerdictPass {
		if err := s.deps.Ledger.Record(ctx, key, inv.TotalAmount); err != nil {
			s.log.Warn("service.ValidationService: ledger record failed",
				zap.String("run_id", res.RunID.String()), zap.Error(err))
		}
	}

	s.log.Info("service.ValidationService: report ready",
		zap.String("run_id", res.RunID.String()),
		zap.String("invoice", res.InvoiceID),
		zap.String("verdict", report.Verdict),
		zap.Strings("reasons", report.Escalation.Reasons))
	return report, nil
}

// ledgerKey derives the ledger key of inv. It reports false when no ledger is
// wired or the invoice date does not parse.
func (s *validationService) ledgerKey(inv *invoice.Invoice, fy func(time.Time) (time.Time, time.Time)) (ledger.Key, bool) {
	if s.deps.Ledger == nil {
		return ledger.Key{}, false
	}
	d, err := inv.Date()
	if err != nil {
		return ledger.Key{}, false
	}
	start, _ := fy(d)
	return ledger.KeyFor(inv, start), true
}

func (s *validationService) ValidateBatch(ctx context.Context, invs []*invoice.Invoice) (*BatchReport, error) {
	if len(invs) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if s.deps.References.Current() == nil {
		return nil, domain.ErrReferenceUnavailable
	}

	out := &BatchReport{Outcomes: make([]BatchOutcome, len(invs))}
	var g errgroup.Group
	g.SetLimit(s.deps.BatchConcurrency)
	for i, inv := range invs {
		g.Go(func() error {
			o := BatchOutcome{Index: i}
			if inv != nil {
				o.InvoiceID = inv.InvoiceNumber
			}
			report, err := s.Validate(ctx, inv)
			if err != nil {
				o.Error = err.Error()
			} else {
				o.Report = report
			}
			out.Outcomes[i] = o
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.Summary = Summarize(out.Outcomes)
	s.log.Info("service.ValidationService: batch complete",
		zap.Int("total", out.Summary.Total),
		zap.Int("passed", out.Summary.Passed),
		zap.Int("failed", out.Summary.Failed),
		zap.Int("escalated", out.Summary.Escalated),
		zap.Int("errors", out.Summary.Errors))

	if s.deps.Archive != nil {
		if err := s.archive(ctx, out); err != nil {
			s.log.Warn("service.ValidationService: batch archive failed", zap.Error(err))
		}
	}
	return out, nil
}

// Summarize counts outcomes by verdict. AverageConfidence is the mean over
// reports that ran at least one check.
func Summarize(outcomes []BatchOutcome) BatchSummary {
	sum := BatchSummary{Total: len(outcomes)}
	var confTotal float64
	var confN int
	for i := range outcomes {
		rep := outcomes[i].Report
		if rep == nil {
			sum.Errors++
			continue
		}
		switch rep.Verdict {
		case domain.VerdictPass:
			sum.Passed++
		case domain.VerdictFail:
			sum.Failed++
		case domain.VerdictEscalate:
			sum.Escalated++
		}
		if rep.Result.Status == domain.OverallStatusInvalidInput {
			sum.InvalidInput++
		}
		if rep.Result.TotalChecks > 0 {
			confTotal += rep.Result.AverageConfidence
			confN++
		}
	}
	if confN > 0 {
		sum.AverageConfidence = confTotal / float64(confN)
	}
	if sum.Total > 0 {
		sum.EscalationRate = float64(sum.Escalated) / float64(sum.Total)
	}
	return sum
}

func (s *validationService) archive(ctx context.Context, b *BatchReport) error {
	a := s.deps.Archive
	var buf bytes.Buffer
	buf.Write(csvexport.BOM)
	w := csvexport.NewWriter(&buf)
	if err := w.WriteSummaryHeader(); err != nil {
		return err
	}
	if err := w.WriteReports(b.Reports()); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	now := s.deps.Now().UTC()
	name := csvexport.BuildFilename(fmt.Sprintf("batch_%s_%s", now.Format("150405"), uuid.NewString()[:8]), now)
	key := port.ReportKey(a.Prefix, now, name)
	size := int64(buf.Len())
	if _, err := a.Storage.ArchiveReport(ctx, port.ReportObject{
		Bucket: a.Bucket,
		Key:    key,
		Body:   &buf,
		Size:   size,
	}); err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	b.ArchiveKey = key

	if a.PresignExpiry > 0 {
		url, err := a.Storage.ReportURL(ctx, a.Bucket, key, a.PresignExpiry)
		if err != nil {
			return fmt.Errorf("presigning %s: %w", key, err)
		}
		b.ArchiveURL = url
	}
	return nil
}

func (s *validationService) Get(ctx context.Context, runID uuid.UUID) (*domain.Report, error) {
	if s.deps.Results == nil {
		return nil, domain.ErrResultNotFound
	}
	return s.deps.Results.GetByRunID(ctx, runID)
}

func (s *validationService) ListByInvoice(ctx context.Context, invoiceNumber string, limit int) ([]*domain.Report, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if invoiceNumber == "" {
		return nil, fmt.Errorf("%w: invoice number is required", domain.ErrInvalidInvoice)
	}
	if s.deps.Results == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	reports, err := s.deps.Results.ListByInvoice(ctx, invoiceNumber, limit)
	if err != nil {
		if errors.Is(err, domain.ErrResultNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]*domain.Report, len(reports))
	for i := range reports {
		out[i] = &reports[i]
	}
	return out, nil
}
