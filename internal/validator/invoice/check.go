package invoice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
	"gstaudit/internal/refdata"
)

// CheckID identifies one check of the closed battery, e.g. "B6".
type CheckID string

// Category returns the category encoded in the ID's first letter.
func (id CheckID) Category() domain.Category {
	if id == "" {
		return ""
	}
	return domain.Category(id[:1])
}

// Less orders IDs by category letter, then numerically (B2 < B10).
func (id CheckID) Less(other CheckID) bool {
	if id.Category() != other.Category() {
		return id.Category() < other.Category()
	}
	a, _ := strconv.Atoi(string(id[1:]))
	b, _ := strconv.Atoi(string(other[1:]))
	return a < b
}

// History carries facts about earlier accepted invoices. It is fetched before
// the run so that checks stay pure.
type History struct {
	// Known is false when no ledger was consulted.
	Known bool
	// YTDPayments is the sum paid to the seller earlier in the financial year.
	YTDPayments float64
	// DuplicateCount is the number of accepted invoices with the same seller and number.
	DuplicateCount int
	// CostCenterSpend is the amount already booked to the invoice's cost center this year.
	CostCenterSpend float64
	// MaxSequence is the highest invoice sequence number accepted from the
	// seller GSTIN this financial year. HasSequence is false when there is none.
	MaxSequence int64
	HasSequence bool
}

// Augmenter consults the reasoning collaborator for an ambiguous check.
type Augmenter interface {
	Augment(ctx context.Context, req port.ReasoningRequest) (*port.ReasoningResponse, error)
}

// EvalContext is everything a check may read. It is built once per run and
// shared read-only by every check.
type EvalContext struct {
	Invoice *Invoice
	Ref     *refdata.Snapshot
	History History
	// AsOf is the run date. Checks compare against it instead of reading a clock.
	AsOf time.Time
	// Date is the parsed invoice date.
	Date time.Time

	// Complex is set when the complexity heuristic tripped; augmentation
	// points then consult Augmenter (or degrade when it is nil).
	Complex   bool
	Augmenter Augmenter

	// MaxLineConcurrency bounds per-line fan-out; zero means unbounded.
	MaxLineConcurrency int

	Vendor       refdata.Vendor
	VendorFound  bool
	FirstTime    bool
	RelatedParty bool
}

// NewEvalContext parses the invoice date and resolves the seller in the
// registry. inv must already be structurally valid.
func NewEvalContext(inv *Invoice, ref *refdata.Snapshot, hist History, asOf time.Time) (*EvalContext, error) {
	d, err := inv.Date()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInvoice, err)
	}
	ec := &EvalContext{
		Invoice: inv,
		Ref:     ref,
		History: hist,
		AsOf:    time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC),
		Date:    d,
	}
	ec.Vendor, ec.VendorFound = ref.Vendors.Get(inv.Seller.GSTIN)
	ec.FirstTime = ref.Vendors.IsFirstTime(inv.Seller.GSTIN)
	ec.RelatedParty = ref.Vendors.IsRelatedParty(inv.Seller.GSTIN)
	return ec, nil
}

// AgeDays is the number of days between the invoice date and the run date.
func (ec *EvalContext) AgeDays() int {
	return int(ec.AsOf.Sub(ec.Date).Hours() / 24)
}

// outcome is what an evaluator decides; Check.Evaluate turns it into a
// validated CheckResult carrying the check's identity.
type outcome struct {
	status     domain.CheckStatus
	confidence float64
	reasoning  string
	severity   domain.Severity
	review     bool
	source     string
	provenance []string
}

func pass(conf float64, format string, args ...any) outcome {
	return outcome{status: domain.CheckStatusPass, confidence: conf, reasoning: fmt.Sprintf(format, args...)}
}

func fail(conf float64, format string, args ...any) outcome {
	return outcome{status: domain.CheckStatusFail, confidence: conf, reasoning: fmt.Sprintf(format, args...)}
}

func warn(conf float64, format string, args ...any) outcome {
	return outcome{status: domain.CheckStatusWarning, confidence: conf, reasoning: fmt.Sprintf(format, args...)}
}

func skip(conf float64, format string, args ...any) outcome {
	return outcome{status: domain.CheckStatusSkipped, confidence: conf, reasoning: fmt.Sprintf(format, args...)}
}

func (o outcome) withReview() outcome {
	o.review = true
	return o
}

func (o outcome) withSeverity(s domain.Severity) outcome {
	o.severity = s
	return o
}

// Check is one entry of the battery.
type Check struct {
	ID       CheckID
	Name     string
	Severity domain.Severity
	eval     func(ctx context.Context, ec *EvalContext) outcome
}

// Category returns the category the check belongs to.
func (c *Check) Category() domain.Category { return c.ID.Category() }

// Evaluate runs the check. It panics with *domain.ContractViolation when the
// evaluator produces an invalid result.
func (c *Check) Evaluate(ctx context.Context, ec *EvalContext) domain.CheckResult {
	o := c.eval(ctx, ec)
	sev := o.severity
	if sev == "" {
		sev = c.Severity
	}
	return domain.NewCheckResult(domain.CheckResult{
		CheckID:        string(c.ID),
		Name:           c.Name,
		Category:       c.Category(),
		Status:         o.status,
		Confidence:     o.confidence,
		Reasoning:      o.reasoning,
		Severity:       sev,
		RequiresReview: o.review,
		Provenance:     o.provenance,
		Source:         o.source,
	})
}

// Verdict is the result of an evaluator supplied through NewCheck.
type Verdict struct {
	Status         domain.CheckStatus
	Confidence     float64
	Reasoning      string
	Severity       domain.Severity
	RequiresReview bool
}

// NewCheck builds a check around an external evaluator. An empty verdict
// severity falls back to sev.
func NewCheck(id CheckID, name string, sev domain.Severity, fn func(ctx context.Context, ec *EvalContext) Verdict) *Check {
	return &Check{ID: id, Name: name, Severity: sev, eval: func(ctx context.Context, ec *EvalContext) outcome {
		v := fn(ctx, ec)
		return outcome{
			status:     v.Status,
			confidence: v.Confidence,
			reasoning:  v.Reasoning,
			severity:   v.Severity,
			review:     v.RequiresReview,
		}
	}}
}

// batterySize is the number of checks in each category.
var batterySize = map[domain.Category]int{
	domain.CategoryVendor:     10,
	domain.CategoryGST:        18,
	domain.CategoryArithmetic: 10,
	domain.CategoryTDS:        12,
	domain.CategoryPolicy:     8,
}

// CheckIDs returns the closed set of check IDs in order.
func CheckIDs() []CheckID {
	var ids []CheckID
	for _, cat := range domain.AllCategories {
		for n := 1; n <= batterySize[cat]; n++ {
			ids = append(ids, CheckID(string(cat)+strconv.Itoa(n)))
		}
	}
	return ids
}

// AllChecks returns the full battery in ID order.
func AllChecks() []*Check {
	var out []*Check
	out = append(out, VendorChecks()...)
	out = append(out, GSTChecks()...)
	out = append(out, ArithmeticChecks()...)
	out = append(out, TDSChecks()...)
	out = append(out, PolicyChecks()...)
	return out
}

// lineOutcome is a per-line verdict. Lines marked na do not contribute.
type lineOutcome struct {
	outcome
	na bool
}

// forEachLine evaluates fn for every line item concurrently and returns the
// outcomes in line order. A panic in fn is re-raised on the calling goroutine
// once every line has finished, so the engine's category recovery sees it.
func forEachLine(ctx context.Context, ec *EvalContext, fn func(ctx context.Context, i int, li *LineItem) lineOutcome) []lineOutcome {
	out := make([]lineOutcome, len(ec.Invoice.LineItems))
	var (
		panicOnce sync.Once
		panicked  bool
		cause     any
	)
	g, gctx := errgroup.WithContext(ctx)
	if ec.MaxLineConcurrency > 0 {
		g.SetLimit(ec.MaxLineConcurrency)
	}
	for i := range ec.Invoice.LineItems {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicked, cause = true, r })
				}
			}()
			out[i] = fn(gctx, i, &ec.Invoice.LineItems[i])
			return nil
		})
	}
	_ = g.Wait()
	if panicked {
		panic(cause)
	}
	return out
}

// mergeLines folds per-line outcomes: any FAIL fails, else any WARNING warns,
// else PASS. Confidence is the mean over contributing lines. Reasons of
// non-passing lines are listed; when every line passed, summary is used.
func mergeLines(lines []lineOutcome, summary string) outcome {
	var (
		confs    []float64
		reasons  []string
		provs    []string
		status   = domain.CheckStatusPass
		review   bool
		severity domain.Severity
		source   string
	)
	for i, l := range lines {
		if l.na {
			continue
		}
		confs = append(confs, l.confidence)
		review = review || l.review
		provs = append(provs, l.provenance...)
		if l.source != "" && l.source != domain.SourceRuleBased {
			source = l.source
		}
		switch l.status {
		case domain.CheckStatusFail:
			status = domain.CheckStatusFail
			if l.severity != "" {
				severity = l.severity
			}
		case domain.CheckStatusWarning:
			if status != domain.CheckStatusFail {
				status = domain.CheckStatusWarning
			}
		}
		if l.status != domain.CheckStatusPass {
			reasons = append(reasons, fmt.Sprintf("line %d: %s", i+1, l.reasoning))
		}
	}
	if len(confs) == 0 {
		return pass(1.0, "no applicable line items")
	}
	o := outcome{
		status:     status,
		confidence: mean(confs),
		review:     review,
		severity:   severity,
		source:     source,
		provenance: provs,
	}
	if len(reasons) == 0 {
		o.reasoning = summary
	} else {
		o.reasoning = strings.Join(reasons, "; ")
	}
	return o
}
