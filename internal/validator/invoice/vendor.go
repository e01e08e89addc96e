package invoice

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"gstaudit/internal/domain"
)

// sequenceGapLimit is the largest jump from the seller's previous invoice
// number that still passes.
const sequenceGapLimit = 10

// VendorChecks returns the vendor and document battery (A1-A10).
func VendorChecks() []*Check {
	return []*Check{
		{ID: "A1", Name: "Invoice Number Format", Severity: domain.SeverityLow, eval: checkInvoiceNumber},
		{ID: "A2", Name: "Document Date Consistency", Severity: domain.SeverityMedium, eval: checkDocumentDates},
		{ID: "A3", Name: "PAN Embedded in GSTIN", Severity: domain.SeverityHigh, eval: checkPANInGSTIN},
		{ID: "A4", Name: "PAN Format", Severity: domain.SeverityMedium, eval: checkPANFormat},
		{ID: "A5", Name: "IFSC Format", Severity: domain.SeverityLow, eval: checkIFSC},
		{ID: "A6", Name: "Seller in Vendor Registry", Severity: domain.SeverityMedium, eval: checkSellerRegistry},
		{ID: "A7", Name: "Buyer GSTIN Is Company", Severity: domain.SeverityCritical, eval: checkBuyerIsCompany},
		{ID: "A8", Name: "Vendor Status", Severity: domain.SeverityCritical, eval: checkVendorStatus},
		{ID: "A9", Name: "Related Party", Severity: domain.SeverityMedium, eval: checkRelatedParty},
		{ID: "A10", Name: "Invoice Number Sequence", Severity: domain.SeverityLow, eval: checkInvoiceSequence},
	}
}

func checkInvoiceNumber(_ context.Context, ec *EvalContext) outcome {
	n := strings.TrimSpace(ec.Invoice.InvoiceNumber)
	if !invoiceNumberPattern.MatchString(n) {
		return fail(1.0, "invoice number %q must be at most 16 characters of letters, digits, '/' or '-'", n)
	}
	return pass(1.0, "invoice number %s is well formed", n)
}

func checkDocumentDates(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	var problems []string
	var o outcome
	worst := domain.CheckStatusPass

	if inv.DueDate != "" {
		due, err := ParseDate(inv.DueDate)
		switch {
		case err != nil:
			problems = append(problems, "due date unparseable")
			worst = worse(worst, domain.CheckStatusWarning)
		case due.Before(ec.Date):
			problems = append(problems, "due date "+due.Format(time.DateOnly)+" precedes invoice date")
			worst = domain.CheckStatusFail
		}
	}
	if inv.PODate != "" {
		po, err := ParseDate(inv.PODate)
		switch {
		case err != nil:
			problems = append(problems, "PO date unparseable")
			worst = worse(worst, domain.CheckStatusWarning)
		case po.After(ec.Date):
			problems = append(problems, "PO dated "+po.Format(time.DateOnly)+" after the invoice")
			worst = worse(worst, domain.CheckStatusWarning)
		}
	}
	if inv.IRN != "" && inv.IRNDate != "" {
		irn, err := ParseDate(inv.IRNDate)
		if err != nil {
			problems = append(problems, "IRN date unparseable")
			worst = worse(worst, domain.CheckStatusWarning)
		} else if gap := absDays(irn.Sub(ec.Date)); gap > 2 {
			problems = append(problems, fmt.Sprintf("IRN generated %d days from invoice date", gap))
			worst = worse(worst, domain.CheckStatusWarning)
		}
	}

	switch worst {
	case domain.CheckStatusFail:
		o = fail(1.0, "%s", joinList(problems)).withReview()
	case domain.CheckStatusWarning:
		o = warn(0.85, "%s", joinList(problems)).withReview()
	default:
		o = pass(0.95, "document dates consistent with invoice date %s", ec.Date.Format(time.DateOnly))
	}
	return o
}

func worse(a, b domain.CheckStatus) domain.CheckStatus {
	rank := map[domain.CheckStatus]int{domain.CheckStatusPass: 0, domain.CheckStatusWarning: 1, domain.CheckStatusFail: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func absDays(d time.Duration) int {
	days := int(d.Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func checkPANInGSTIN(_ context.Context, ec *EvalContext) outcome {
	gstin := normGSTIN(ec.Invoice.Seller.GSTIN)
	embedded := PANFromGSTIN(gstin)
	if embedded == "" {
		return fail(1.0, "seller GSTIN too short to carry a PAN").withReview()
	}
	stated := strings.ToUpper(strings.TrimSpace(ec.Invoice.Seller.PAN))
	source := "invoice"
	if stated == "" && ec.VendorFound {
		stated, source = ec.Vendor.PAN, "vendor registry"
	}
	if stated == "" {
		return pass(0.8, "no PAN stated; GSTIN embeds %s", embedded)
	}
	if stated != embedded {
		return fail(1.0, "PAN %s from %s differs from PAN %s embedded in GSTIN", stated, source, embedded).withReview()
	}
	return pass(1.0, "PAN %s matches GSTIN", stated)
}

// entityCodes maps the fourth PAN character to the holder's entity type.
var entityCodes = map[byte]domain.EntityType{
	'C': domain.EntityTypeCompany,
	'P': domain.EntityTypeIndividual,
	'H': domain.EntityTypeHUF,
	'F': domain.EntityTypeFirm,
}

func checkPANFormat(_ context.Context, ec *EvalContext) outcome {
	pan := strings.ToUpper(strings.TrimSpace(ec.Invoice.Seller.PAN))
	if pan == "" {
		pan = PANFromGSTIN(normGSTIN(ec.Invoice.Seller.GSTIN))
	}
	if !ValidPAN(pan) {
		return fail(1.0, "seller PAN %q is malformed", pan)
	}
	if ec.VendorFound && ec.Vendor.EntityType != domain.EntityTypeUnspecified {
		if et, ok := entityCodes[pan[3]]; ok && et != ec.Vendor.EntityType {
			return warn(0.85, "PAN %s denotes %s but registry lists %s", pan, et, ec.Vendor.EntityType).withReview()
		}
	}
	return pass(1.0, "seller PAN %s is well formed", pan)
}

func checkIFSC(_ context.Context, ec *EvalContext) outcome {
	ifsc := strings.ToUpper(strings.TrimSpace(ec.Invoice.Bank.IFSCCode))
	if ifsc == "" {
		return pass(1.0, "no bank details given")
	}
	if !ifscPattern.MatchString(ifsc) {
		return fail(1.0, "IFSC %q is malformed", ifsc)
	}
	return pass(1.0, "IFSC %s is well formed", ifsc)
}

// normalizeName upper-cases a legal name and drops punctuation and the
// common company suffixes so that "Acme Pvt. Ltd." matches "ACME PRIVATE LIMITED".
func normalizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToUpper(r)
		}
		return ' '
	}, s)
	drop := map[string]bool{"PVT": true, "PRIVATE": true, "LTD": true, "LIMITED": true, "LLP": true, "LLC": true, "M": true, "S": true, "THE": true}
	var kept []string
	for _, w := range strings.Fields(s) {
		if !drop[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func checkSellerRegistry(_ context.Context, ec *EvalContext) outcome {
	gstin := normGSTIN(ec.Invoice.Seller.GSTIN)
	if !ec.VendorFound {
		return warn(0.8, "seller %s not in vendor registry; first-time vendor", gstin).withReview()
	}
	reg, got := normalizeName(ec.Vendor.LegalName), normalizeName(ec.Invoice.Seller.Name)
	if got != "" && (strings.Contains(reg, got) || strings.Contains(got, reg)) {
		return pass(0.95, "vendor %s (%s) found", ec.Vendor.LegalName, ec.Vendor.VendorID)
	}
	return warn(0.7, "GSTIN registered to %q but invoice names %q", ec.Vendor.LegalName, ec.Invoice.Seller.Name).withReview()
}

func checkBuyerIsCompany(_ context.Context, ec *EvalContext) outcome {
	company := ec.Ref.Policy.CompanyGSTIN
	if company == "" {
		return skip(1.0, "company GSTIN not configured")
	}
	buyer := normGSTIN(ec.Invoice.Buyer.GSTIN)
	if buyer != company {
		return fail(1.0, "invoice addressed to %s, not company GSTIN %s", buyer, company).withReview()
	}
	return pass(1.0, "invoice addressed to company GSTIN %s", company)
}

func checkVendorStatus(_ context.Context, ec *EvalContext) outcome {
	if !ec.VendorFound {
		return warn(0.5, "vendor status unknown").withSeverity(domain.SeverityMedium).withReview()
	}
	v := ec.Vendor
	switch v.Status {
	case domain.VendorStatusActive:
		return pass(0.95, "vendor %s is active", v.VendorID)
	case domain.VendorStatusSuspended:
		since := ""
		if v.SuspensionDate != nil {
			since = " since " + v.SuspensionDate.Format(time.DateOnly)
		}
		return fail(0.95, "vendor %s suspended%s: %s", v.VendorID, since, v.SuspensionReason).withReview()
	default:
		return fail(0.95, "vendor %s is %s", v.VendorID, v.Status).withReview()
	}
}

func checkRelatedParty(_ context.Context, ec *EvalContext) outcome {
	if !ec.VendorFound {
		return pass(0.8, "vendor not in registry; no related parties known")
	}
	if ec.RelatedParty {
		related := ec.Ref.Vendors.RelatedGSTINs(ec.Invoice.Seller.GSTIN)
		return warn(0.9, "vendor shares PAN %s with %s; related-party approval required", ec.Vendor.PAN, joinList(related)).withReview()
	}
	return pass(0.9, "no related parties share PAN %s", ec.Vendor.PAN)
}

func checkInvoiceSequence(_ context.Context, ec *EvalContext) outcome {
	n := strings.TrimSpace(ec.Invoice.InvoiceNumber)
	if !ec.History.Known {
		return skip(1.0, "no invoice ledger; sequence of %s not analysed", n)
	}
	seq, ok := SequenceNumber(n)
	if !ok {
		return warn(0.7, "invoice number %q carries no numeric sequence", n)
	}
	if !ec.History.HasSequence {
		return pass(0.8, "first invoice from seller this year, sequence %d", seq)
	}
	prev := ec.History.MaxSequence
	switch gap := seq - prev; {
	case gap <= 0:
		return warn(0.85, "sequence %d is not after the seller's previous %d", seq, prev).
			withSeverity(domain.SeverityMedium).withReview()
	case gap == 1:
		return pass(1.0, "sequence %d follows %d", seq, prev)
	case gap <= sequenceGapLimit:
		return pass(0.9, "sequence %d is %d after previous %d", seq, gap, prev)
	default:
		return warn(0.8, "sequence jumps by %d from %d to %d", gap, prev, seq).
			withSeverity(domain.SeverityMedium).withReview()
	}
}
