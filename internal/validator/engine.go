package validator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gstaudit/internal/domain"
	"gstaudit/internal/refdata"
	"gstaudit/internal/validator/invoice"
)

// Complexity decides whether an invoice is ambiguous enough for the
// augmentation points to consult the reasoning collaborator.
type Complexity interface {
	Trips(inv *invoice.Invoice) bool
}

// EngineOptions configures an Engine. The zero value runs every category
// without augmentation.
type EngineOptions struct {
	// Disabled categories are left out of the result entirely.
	Disabled []domain.Category
	// MaxLineConcurrency bounds per-line fan-out inside a check.
	MaxLineConcurrency int
	Complexity         Complexity
	Augmenter          invoice.Augmenter
	// Clock supplies the run timestamp and as-of date. Defaults to time.Now.
	Clock func() time.Time
}

// Engine runs the check battery against one invoice at a time. It holds no
// per-run state and is safe for concurrent use.
type Engine struct {
	registry *Registry
	opts     EngineOptions
	disabled map[domain.Category]bool
	log      *zap.Logger
}

// NewEngine creates a new validation engine.
func NewEngine(registry *Registry, opts EngineOptions, log *zap.Logger) *Engine {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	disabled := make(map[domain.Category]bool, len(opts.Disabled))
	for _, c := range opts.Disabled {
		disabled[c] = true
	}
	return &Engine{registry: registry, opts: opts, disabled: disabled, log: log}
}

// Enabled reports whether cat runs.
func (e *Engine) Enabled(cat domain.Category) bool { return !e.disabled[cat] }

// Run validates inv against ref and hist. A structurally broken invoice
// yields an INVALID_INPUT result without running any check. A category that
// panics is reported as all-SKIPPED and listed in FailedCategories. When ctx
// is cancelled the partial result is discarded and ctx.Err() is returned.
func (e *Engine) Run(ctx context.Context, inv *invoice.Invoice, ref *refdata.Snapshot, hist invoice.History) (*domain.ValidationResult, error) {
	if ref == nil {
		return nil, domain.ErrReferenceUnavailable
	}
	now := e.opts.Clock().UTC()
	runID := uuid.New()

	if errs := inv.StructuralErrors(); len(errs) > 0 {
		e.log.Info("validator.Engine: invalid input",
			zap.String("run_id", runID.String()),
			zap.String("invoice", inv.InvoiceNumber),
			zap.Strings("errors", errs))
		res := InvalidInput(errs)
		e.stamp(res, runID, now, inv, ref)
		return res, nil
	}

	ec, err := invoice.NewEvalContext(inv, ref, hist, now)
	if err != nil {
		return nil, err
	}
	ec.MaxLineConcurrency = e.opts.MaxLineConcurrency
	ec.Augmenter = e.opts.Augmenter
	if e.opts.Complexity != nil {
		ec.Complex = e.opts.Complexity.Trips(inv)
	}

	var (
		mu         sync.Mutex
		categories = make(map[domain.Category]*domain.CategoryResult)
		failed     []domain.Category
	)
	var g errgroup.Group
	for _, cat := range domain.AllCategories {
		if e.disabled[cat] {
			continue
		}
		g.Go(func() error {
			cr, ok := e.runCategory(ctx, cat, ec, runID)
			mu.Lock()
			defer mu.Unlock()
			categories[cat] = cr
			if !ok {
				failed = append(failed, cat)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := Aggregate(categories, failed)
	e.stamp(res, runID, now, inv, ref)
	res.FirstTimeVendor = ec.FirstTime

	e.log.Info("validator.Engine: invoice validated",
		zap.String("run_id", runID.String()),
		zap.String("invoice", inv.InvoiceNumber),
		zap.String("status", string(res.Status)),
		zap.Int("passed", res.Passed),
		zap.Int("failed", res.Failed),
		zap.Int("warnings", res.Warnings),
		zap.Bool("complex", ec.Complex),
		zap.Float64("average_confidence", res.AverageConfidence))
	return res, nil
}

func (e *Engine) stamp(res *domain.ValidationResult, runID uuid.UUID, now time.Time, inv *invoice.Invoice, ref *refdata.Snapshot) {
	res.RunID = runID
	res.InvoiceID = inv.InvoiceNumber
	res.Timestamp = now
	res.ReferenceVersion = ref.Version
}

// runCategory evaluates the checks of one category in ID order. ok is false
// when an evaluator panicked; the category is then reported as all-SKIPPED.
func (e *Engine) runCategory(ctx context.Context, cat domain.Category, ec *invoice.EvalContext, runID uuid.UUID) (cr *domain.CategoryResult, ok bool) {
	checks := e.registry.Category(cat)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("validator.Engine: category aborted",
				zap.String("run_id", runID.String()),
				zap.String("category", string(cat)),
				zap.Any("panic", r))
			cr, ok = abortedCategory(cat, checks, r), false
		}
	}()

	cr = &domain.CategoryResult{Category: cat, Checks: make([]domain.CheckResult, 0, len(checks))}
	for _, c := range checks {
		if ctx.Err() != nil {
			break
		}
		cr.Checks = append(cr.Checks, c.Evaluate(ctx, ec))
	}
	return cr, true
}

func abortedCategory(cat domain.Category, checks []*invoice.Check, cause any) *domain.CategoryResult {
	cr := &domain.CategoryResult{Category: cat, Checks: make([]domain.CheckResult, 0, len(checks))}
	reason := fmt.Sprintf("category %s aborted: %v", cat.Name(), cause)
	for _, c := range checks {
		cr.Checks = append(cr.Checks, domain.NewCheckResult(domain.CheckResult{
			CheckID:        string(c.ID),
			Name:           c.Name,
			Category:       cat,
			Status:         domain.CheckStatusSkipped,
			Confidence:     0,
			Reasoning:      reason,
			Severity:       c.Severity,
			RequiresReview: true,
			Source:         domain.SourceEngine,
		}))
	}
	return cr
}
