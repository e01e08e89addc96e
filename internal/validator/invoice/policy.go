package invoice

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gstaudit/internal/domain"
	"gstaudit/internal/refdata"
)

var paymentDaysPattern = regexp.MustCompile(`(\d+)`)

// budgetWarnShare is the share of a cost-center budget above which spend is flagged.
const budgetWarnShare = 0.9

// PolicyChecks returns the company policy battery (E1-E8).
func PolicyChecks() []*Check {
	return []*Check{
		{ID: "E1", Name: "Approval Level", Severity: domain.SeverityMedium, eval: checkApprovalLevel},
		{ID: "E2", Name: "Invoice Date Validity", Severity: domain.SeverityMedium, eval: checkInvoiceDate},
		{ID: "E3", Name: "PO Reference", Severity: domain.SeverityMedium, eval: checkPOReference},
		{ID: "E4", Name: "MSME Payment Terms", Severity: domain.SeverityHigh, eval: checkPaymentTerms},
		{ID: "E5", Name: "Duplicate Invoice", Severity: domain.SeverityHigh, eval: checkDuplicate},
		{ID: "E6", Name: "Financial Year Boundary", Severity: domain.SeverityMedium, eval: checkFYBoundary},
		{ID: "E7", Name: "PO Amount Tolerance", Severity: domain.SeverityMedium, eval: checkPOTolerance},
		{ID: "E8", Name: "Cost Center Budget", Severity: domain.SeverityMedium, eval: checkBudget},
	}
}

// Retrospective reports whether the invoice is older than the policy's
// retrospective window as of the run date.
func (ec *EvalContext) Retrospective() bool {
	return ec.AgeDays() > ec.Ref.Policy.RetrospectiveDays
}

// Approval returns the approval level the invoice requires.
func (ec *EvalContext) Approval() refdata.ApprovalLevel {
	return ec.Ref.Policy.ApprovalFor(ec.Invoice.TotalAmount, refdata.ApprovalFactors{
		RelatedParty:  ec.RelatedParty,
		FirstTime:     ec.FirstTime,
		Retrospective: ec.Retrospective(),
	})
}

func checkApprovalLevel(_ context.Context, ec *EvalContext) outcome {
	level := ec.Approval()
	var factors []string
	if ec.FirstTime {
		factors = append(factors, "first-time vendor")
	}
	if ec.Retrospective() {
		factors = append(factors, "retrospective invoice")
	}
	if ec.RelatedParty {
		factors = append(factors, "related party")
	}
	extra := ""
	if len(factors) > 0 {
		extra = " (" + joinList(factors) + ")"
	}
	o := pass(0.95, "requires level %d: %s%s for %s", level.Level, level.Name, extra, rupees(ec.Invoice.TotalAmount))
	if level.Level >= ec.Ref.Policy.ReviewApprovalLevel {
		o = o.withReview()
	}
	return o
}

func checkInvoiceDate(_ context.Context, ec *EvalContext) outcome {
	p := ec.Ref.Policy
	age := ec.AgeDays()
	date := ec.Date.Format(time.DateOnly)
	switch {
	case ec.Date.After(ec.AsOf):
		return fail(1.0, "invoice dated %s is after the run date %s", date, ec.AsOf.Format(time.DateOnly)).
			withSeverity(domain.SeverityCritical).withReview()
	case age > p.MaxInvoiceAgeDays:
		return fail(1.0, "invoice is %d days old (maximum %d)", age, p.MaxInvoiceAgeDays).
			withSeverity(domain.SeverityHigh).withReview()
	case age > p.RetrospectiveDays:
		return warn(0.9, "retrospective invoice %d days old; higher approval required", age).withReview()
	default:
		return pass(1.0, "invoice date %s valid (%d days old)", date, age)
	}
}

func checkPOReference(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if po := strings.TrimSpace(inv.POReference); po != "" {
		return pass(0.9, "PO reference %s present", po)
	}
	if limit := ec.Ref.Policy.PORequiredAbove; limit > 0 && inv.TotalAmount <= limit {
		return pass(0.9, "no PO reference; not required up to %s", rupees(limit))
	}
	return warn(0.8, "no PO reference on invoice of %s", rupees(inv.TotalAmount)).withReview()
}

// paymentDays resolves the credit period from the explicit field, the terms
// text or the due date. ok is false when none gives a number.
func paymentDays(ec *EvalContext) (int, bool) {
	inv := ec.Invoice
	if inv.PaymentDays > 0 {
		return inv.PaymentDays, true
	}
	if m := paymentDaysPattern.FindString(inv.PaymentTerms); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, true
		}
	}
	if inv.DueDate != "" {
		if due, err := ParseDate(inv.DueDate); err == nil && !due.Before(ec.Date) {
			return int(due.Sub(ec.Date).Hours() / 24), true
		}
	}
	return 0, false
}

func checkPaymentTerms(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	days, ok := paymentDays(ec)
	if !ok && strings.TrimSpace(inv.PaymentTerms) == "" {
		return warn(0.7, "payment terms not specified").withSeverity(domain.SeverityLow)
	}
	limit := ec.Ref.Policy.MSMEMaxPaymentDays
	msme := ec.VendorFound && ec.Vendor.MSMERegistered
	switch {
	case msme && ok && days > limit:
		return fail(0.9, "MSME vendor: payment in %d days exceeds the %d-day limit", days, limit).withReview()
	case msme && ok:
		return pass(0.9, "MSME vendor paid within %d days", days)
	case ok:
		return pass(0.85, "payment terms %d days", days)
	default:
		return pass(0.85, "payment terms %q", inv.PaymentTerms).withSeverity(domain.SeverityLow)
	}
}

func checkDuplicate(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	switch {
	case !ec.History.Known:
		return pass(0.7, "no invoice ledger; duplicate check for %s not performed", inv.InvoiceNumber)
	case ec.History.DuplicateCount > 0:
		return fail(1.0, "invoice %s from %s already accepted %d time(s)",
			inv.InvoiceNumber, normGSTIN(inv.Seller.GSTIN), ec.History.DuplicateCount).withReview()
	default:
		return pass(0.95, "no earlier invoice %s from this seller", inv.InvoiceNumber)
	}
}

func checkFYBoundary(_ context.Context, ec *EvalContext) outcome {
	p := ec.Ref.Policy
	start, end := p.FinancialYear(ec.AsOf)
	fy := start.Format(time.DateOnly) + " to " + end.AddDate(0, 0, -1).Format(time.DateOnly)
	lastMonthPrev := start.AddDate(0, -1, 0)
	switch {
	case !ec.Date.Before(start) && ec.Date.Before(end):
		return pass(1.0, "invoice within financial year %s", fy)
	case ec.Date.Year() == lastMonthPrev.Year() && ec.Date.Month() == lastMonthPrev.Month():
		cutoff := p.MarchCutoffIn(start.Year())
		if !ec.AsOf.After(cutoff) {
			return pass(0.9, "year-end invoice accepted within grace period until %s", cutoff.Format(time.DateOnly))
		}
		return warn(0.85, "year-end invoice received after cutoff %s", cutoff.Format(time.DateOnly)).
			withSeverity(domain.SeverityHigh).withReview()
	case ec.Date.Before(start):
		return warn(0.85, "invoice from a previous financial year; justification required").
			withSeverity(domain.SeverityHigh).withReview()
	default:
		return warn(0.8, "invoice date %s outside financial year %s", ec.Date.Format(time.DateOnly), fy).withReview()
	}
}

func checkPOTolerance(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if inv.POAmount <= 0 {
		return skip(1.0, "no PO amount to compare")
	}
	tol := ec.Ref.Policy.POTolerancePercent
	diff := (inv.TotalAmount - inv.POAmount) / inv.POAmount * 100
	if diff > tol {
		return fail(0.9, "invoice %s exceeds PO %s by %.2f%% (tolerance %s)",
			rupees(inv.TotalAmount), rupees(inv.POAmount), diff, pct(tol)).withReview()
	}
	if diff < -tol {
		return pass(0.85, "invoice %s bills %.2f%% of PO %s", rupees(inv.TotalAmount), 100+diff, rupees(inv.POAmount))
	}
	return pass(0.95, "invoice within %s of PO %s", pct(tol), rupees(inv.POAmount))
}

func checkBudget(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	cc := strings.TrimSpace(inv.CostCenter)
	if cc == "" {
		return pass(0.8, "no cost center on invoice").withSeverity(domain.SeverityLow)
	}
	budget, ok := ec.Ref.Policy.Budget(cc)
	if !ok {
		return warn(0.7, "no budget defined for cost center %s", cc).withSeverity(domain.SeverityLow)
	}
	spend := inv.TotalAmount
	if ec.History.Known {
		spend += ec.History.CostCenterSpend
	}
	share := 0.0
	if budget > 0 {
		share = spend / budget
	}
	switch {
	case spend > budget:
		return fail(0.9, "cost center %s spend %s exceeds budget %s", cc, rupees(spend), rupees(budget)).withReview()
	case share > budgetWarnShare:
		return warn(0.85, "cost center %s at %.0f%% of budget %s", cc, math.Floor(share*100), rupees(budget))
	case !ec.History.Known:
		return pass(0.7, "invoice uses %.0f%% of cost center %s budget; earlier spend unknown", math.Floor(share*100), cc)
	default:
		return pass(0.9, "cost center %s within budget (%.0f%% used)", cc, math.Floor(share*100))
	}
}
