package invoice

import (
	"context"
	"math"
	"slices"
	"strings"
	"time"

	"gstaudit/internal/domain"
	"gstaudit/internal/refdata"
)

const (
	// tdsBasicThreshold is the payment size above which TDS is presumed.
	tdsBasicThreshold = 30000

	tdsRateTolerance   = 0.1
	tdsAmountTolerance = 1.0

	// nonFilerMinRate is the floor of the section 206AB rate.
	nonFilerMinRate = 5.0
)

var (
	tdsServiceKeywords  = []string{"service", "professional", "consulting", "contract", "commission", "rent", "technical", "legal", "audit"}
	nonResidentSections = []string{"195", "194LC", "194LD"}
	tdsVendorTypes      = []domain.VendorType{
		domain.VendorTypeContractor,
		domain.VendorTypeProfessional,
		domain.VendorTypeConsultant,
		domain.VendorTypeCommissionAgent,
		domain.VendorTypeLandlord,
	}
)

// TDSChecks returns the TDS battery (D1-D12).
func TDSChecks() []*Check {
	return []*Check{
		{ID: "D1", Name: "TDS Applicability", Severity: domain.SeverityHigh, eval: checkTDSApplicability},
		{ID: "D2", Name: "TDS Section Determination", Severity: domain.SeverityHigh, eval: checkTDSSection},
		{ID: "D3", Name: "TDS Rate", Severity: domain.SeverityHigh, eval: checkTDSRate},
		{ID: "D4", Name: "Lower Deduction Certificate", Severity: domain.SeverityMedium, eval: checkLowerDeduction},
		{ID: "D5", Name: "TDS Threshold Limit", Severity: domain.SeverityMedium, eval: checkTDSThreshold},
		{ID: "D6", Name: "Aggregate Threshold", Severity: domain.SeverityHigh, eval: checkTDSAggregate},
		{ID: "D7", Name: "TDS Base Excludes GST", Severity: domain.SeverityMedium, eval: checkTDSBase},
		{ID: "D8", Name: "Non-Resident TDS", Severity: domain.SeverityHigh, eval: checkNonResident},
		{ID: "D9", Name: "TAN Validation", Severity: domain.SeverityMedium, eval: checkTAN},
		{ID: "D10", Name: "Section 206AB Higher Rate", Severity: domain.SeverityMedium, eval: checkNonFilerRate},
		{ID: "D11", Name: "TDS Certificate", Severity: domain.SeverityLow, eval: checkTDSCertificate},
		{ID: "D12", Name: "Quarterly Return", Severity: domain.SeverityMedium, eval: checkQuarterlyReturn},
	}
}

func tdsNotApplicable(what string) outcome {
	return pass(0.9, "TDS not applicable; %s not required", what).withSeverity(domain.SeverityLow)
}

// expectedSections lists the sections the supply points at, most likely first.
// The vendor's registered section leads; line descriptions are matched against
// the section keywords; large goods purchases fall under 194Q; 194C is the default.
func expectedSections(ec *EvalContext) []string {
	var out []string
	add := func(s string) {
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	if ec.VendorFound {
		add(strings.ToUpper(ec.Vendor.TDSSection))
	}
	if ec.VendorFound && ec.Vendor.ResidentStatus == domain.ResidentStatusNonResident {
		add("195")
	}
	rules := ec.Ref.TDS
	for _, desc := range ec.Invoice.Descriptions() {
		for _, sec := range rules.Sections() {
			s, _ := rules.Section(sec)
			for _, kw := range s.Keywords {
				if strings.Contains(desc, kw) {
					add(sec)
					break
				}
			}
		}
	}
	if q, ok := rules.Section("194Q"); ok && q.SingleThreshold > 0 && ec.Invoice.TotalAmount >= q.SingleThreshold {
		add("194Q")
	}
	if len(out) == 0 {
		out = append(out, "194C")
	}
	return out
}

// tdsSection is the declared section, or the most likely one when none is declared.
func tdsSection(ec *EvalContext) string {
	if s := strings.ToUpper(strings.TrimSpace(ec.Invoice.TDSSection)); s != "" {
		return s
	}
	return expectedSections(ec)[0]
}

// sellerPAN returns the seller's PAN from the registry, the invoice or the GSTIN.
func sellerPAN(ec *EvalContext) string {
	if ec.VendorFound && ec.Vendor.PAN != "" {
		return ec.Vendor.PAN
	}
	if p := strings.ToUpper(strings.TrimSpace(ec.Invoice.Seller.PAN)); ValidPAN(p) {
		return p
	}
	if p := PANFromGSTIN(normGSTIN(ec.Invoice.Seller.GSTIN)); ValidPAN(p) {
		return p
	}
	return ""
}

func rateQuery(ec *EvalContext, section string) refdata.RateQuery {
	pan := sellerPAN(ec)
	q := refdata.RateQuery{Section: section, HasPAN: pan != ""}
	if ec.VendorFound && ec.Vendor.EntityType != domain.EntityTypeUnspecified {
		q.Entity = ec.Vendor.EntityType
	} else if pan != "" {
		q.Entity = entityCodes[pan[3]]
	}
	if _, ok := ec.Invoice.ContainsAny([]string{"technical"}); ok {
		q.Technical = true
	}
	return q
}

// appliedRate is the declared TDS rate, or the rate implied by the amount
// deducted on the taxable value.
func appliedRate(inv *Invoice) float64 {
	if inv.TDSRate > 0 {
		return inv.TDSRate
	}
	if inv.TDSAmount > 0 && inv.Taxable() > 0 {
		return math.Round(inv.TDSAmount/inv.Taxable()*100*100) / 100
	}
	return 0
}

func checkTDSApplicability(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	var reasons []string
	if inv.TotalAmount > tdsBasicThreshold {
		reasons = append(reasons, "amount "+rupees(inv.TotalAmount)+" exceeds "+rupees(tdsBasicThreshold))
	}
	if ec.VendorFound {
		if slices.Contains(tdsVendorTypes, ec.Vendor.VendorType) {
			reasons = append(reasons, "vendor type "+string(ec.Vendor.VendorType))
		}
		if ec.Vendor.PAN == "" {
			reasons = append(reasons, "vendor has no PAN on record")
		}
		if ec.Vendor.ResidentStatus == domain.ResidentStatusNonResident {
			reasons = append(reasons, "non-resident vendor")
		}
	}
	if kw, ok := inv.ContainsAny(tdsServiceKeywords); ok {
		reasons = append(reasons, "service supply ("+kw+")")
	}
	should := len(reasons) > 0
	if len(reasons) > 2 {
		reasons = reasons[:2]
	}
	switch {
	case should && inv.TDSApplicable:
		return pass(0.9, "TDS correctly marked: %s", joinList(reasons))
	case should:
		return fail(0.85, "TDS should apply but is not marked: %s", joinList(reasons)).
			withSeverity(domain.SeverityCritical).withReview()
	case inv.TDSApplicable:
		return warn(0.75, "TDS marked but no payment type or threshold calls for it; verify the service type").
			withSeverity(domain.SeverityMedium).withReview()
	default:
		return pass(0.9, "TDS not applicable to this supply or amount").withSeverity(domain.SeverityMedium)
	}
}

func checkTDSSection(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("section determination")
	}
	expected := expectedSections(ec)
	declared := strings.ToUpper(strings.TrimSpace(inv.TDSSection))
	switch {
	case declared == "":
		return fail(0.85, "TDS section not stated; expected %s", expected[0]).withReview()
	case declared == expected[0]:
		desc := ""
		if s, ok := ec.Ref.TDS.Section(declared); ok {
			desc = ": " + s.Description
		}
		return pass(0.9, "section %s%s", declared, desc)
	case slices.Contains(expected, declared):
		return pass(0.85, "section %s acceptable (also considered %s)", declared, expected[0])
	default:
		return warn(0.75, "section %s stated but supply points to %s", declared, expected[0]).withReview()
	}
}

func checkTDSRate(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("rate validation")
	}
	section := tdsSection(ec)
	q := rateQuery(ec, section)
	want, ok := ec.Ref.TDS.Rate(q)
	if !ok {
		return warn(0.6, "section %s has no rate on record", section).withReview()
	}
	basis := "standard"
	if !q.HasPAN {
		basis = "no PAN"
	}
	if ec.VendorFound {
		if ld := ec.Vendor.LowerDeduction; ld != nil && ld.Covers(ec.Date) {
			want, basis = ld.Rate, "lower deduction certificate"
		} else if ec.Vendor.NonFiler206AB {
			want, basis = max(2*want, nonFilerMinRate), "section 206AB"
		}
	}
	got := appliedRate(inv)
	if math.Abs(got-want) > tdsRateTolerance {
		return fail(0.9, "TDS rate %s, expected %s under %s (%s)", pct(got), pct(want), section, basis).withReview()
	}
	return pass(0.95, "TDS rate %s correct under %s (%s)", pct(got), section, basis)
}

func checkLowerDeduction(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("certificate")
	}
	section := tdsSection(ec)
	q := rateQuery(ec, section)
	q.HasPAN = true
	standard, ok := ec.Ref.TDS.Rate(q)
	if !ok {
		return pass(0.7, "section %s has no standard rate on record", section)
	}
	got := appliedRate(inv)
	var ld *refdata.LowerDeduction
	if ec.VendorFound {
		ld = ec.Vendor.LowerDeduction
	}
	switch {
	case ld != nil && ld.Covers(ec.Date):
		if math.Abs(got-ld.Rate) > tdsRateTolerance {
			return warn(0.8, "certificate allows %s but %s applied", pct(ld.Rate), pct(got)).withReview()
		}
		return pass(0.95, "lower deduction certificate at %s valid until %s", pct(ld.Rate), ld.ValidTo.Format(time.DateOnly))
	case got < standard-tdsRateTolerance && ld != nil:
		return fail(0.9, "lower rate %s applied but certificate is valid only %s to %s",
			pct(got), ld.ValidFrom.Format(time.DateOnly), ld.ValidTo.Format(time.DateOnly)).
			withSeverity(domain.SeverityHigh).withReview()
	case got < standard-tdsRateTolerance:
		return warn(0.8, "lower rate %s vs standard %s with no certificate on record; verify Form 13", pct(got), pct(standard)).withReview()
	default:
		return pass(0.9, "standard rate applied; certificate not required").withSeverity(domain.SeverityLow)
	}
}

func singleThreshold(ec *EvalContext, section string) float64 {
	if s, ok := ec.Ref.TDS.Section(section); ok {
		return s.SingleThreshold
	}
	return tdsBasicThreshold
}

func checkTDSThreshold(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	section := tdsSection(ec)
	threshold := singleThreshold(ec, section)
	amount := inv.TotalAmount
	if amount < threshold {
		if !inv.TDSApplicable {
			return pass(0.95, "%s below %s threshold %s", rupees(amount), section, rupees(threshold))
		}
		if s, ok := ec.Ref.TDS.Section(section); ok && ec.History.Known && s.AggregateThreshold > 0 &&
			ec.History.YTDPayments+amount >= s.AggregateThreshold {
			return pass(0.9, "%s below single threshold but aggregate crosses %s", rupees(amount), rupees(s.AggregateThreshold))
		}
		return warn(0.85, "%s below %s threshold %s; TDS may not be required", rupees(amount), section, rupees(threshold)).withReview()
	}
	if inv.TDSApplicable {
		return pass(0.95, "%s at or above %s threshold %s", rupees(amount), section, rupees(threshold))
	}
	return fail(0.9, "%s at or above %s threshold %s but TDS not marked", rupees(amount), section, rupees(threshold)).withReview()
}

func checkTDSAggregate(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	section := tdsSection(ec)
	s, ok := ec.Ref.TDS.Section(section)
	if !ok || s.AggregateThreshold == 0 {
		return pass(0.9, "section %s has no aggregate threshold", section).withSeverity(domain.SeverityLow)
	}
	if !ec.History.Known {
		return pass(0.7, "no payment ledger; aggregate for %s unverified", section).withSeverity(domain.SeverityLow)
	}
	total := ec.History.YTDPayments + inv.TotalAmount
	switch {
	case total < s.AggregateThreshold:
		return pass(0.9, "year-to-date %s within aggregate threshold %s", rupees(total), rupees(s.AggregateThreshold))
	case inv.TDSApplicable:
		return pass(0.9, "year-to-date %s crosses aggregate threshold %s; TDS applied", rupees(total), rupees(s.AggregateThreshold))
	default:
		return fail(0.85, "year-to-date %s crosses %s aggregate threshold %s but TDS not marked",
			rupees(total), section, rupees(s.AggregateThreshold)).withReview()
	}
}

func checkTDSBase(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("GST treatment")
	}
	if inv.TDSAmount == 0 {
		return pass(0.75, "no TDS deducted").withSeverity(domain.SeverityLow)
	}
	if inv.TDSRate == 0 {
		return warn(0.7, "TDS of %s deducted without a stated rate", rupees(inv.TDSAmount)).withReview()
	}
	excl := inv.Taxable() * inv.TDSRate / 100
	incl := inv.TotalAmount * inv.TDSRate / 100
	section := tdsSection(ec)
	switch {
	case within(inv.TDSAmount, excl, tdsAmountTolerance):
		return pass(0.9, "TDS %s computed on value excluding GST", rupees(inv.TDSAmount))
	case within(inv.TDSAmount, incl, tdsAmountTolerance) && section == "194C":
		return pass(0.85, "TDS %s computed on value including GST (accepted for 194C)", rupees(inv.TDSAmount))
	case within(inv.TDSAmount, incl, tdsAmountTolerance):
		return warn(0.8, "TDS %s includes the GST component; verify for %s", rupees(inv.TDSAmount), section).withReview()
	default:
		return warn(0.75, "TDS %s matches neither %s excluding nor %s including GST",
			rupees(inv.TDSAmount), rupees(excl), rupees(incl)).withReview()
	}
}

func checkNonResident(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !ec.VendorFound || ec.Vendor.ResidentStatus != domain.ResidentStatusNonResident {
		return pass(0.9, "resident vendor; non-resident rules not applicable").withSeverity(domain.SeverityLow)
	}
	section := strings.ToUpper(strings.TrimSpace(inv.TDSSection))
	switch {
	case !inv.TDSApplicable:
		return fail(0.9, "non-resident vendor but TDS not marked; section 195 may apply").
			withSeverity(domain.SeverityCritical).withReview()
	case slices.Contains(nonResidentSections, section):
		return pass(0.9, "non-resident section %s applied", section)
	default:
		return warn(0.8, "non-resident vendor under section %q; verify section 195", section).withReview()
	}
}

func checkTAN(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("TAN")
	}
	tan := strings.ToUpper(strings.TrimSpace(inv.TAN))
	switch {
	case tan == "":
		return warn(0.75, "deductor TAN not quoted")
	case !tanPattern.MatchString(tan):
		return fail(1.0, "TAN %q is malformed", tan)
	default:
		return pass(1.0, "TAN %s is well formed", tan)
	}
}

func checkNonFilerRate(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("section 206AB review")
	}
	section := tdsSection(ec)
	q := rateQuery(ec, section)
	q.HasPAN = true
	standard, ok := ec.Ref.TDS.Rate(q)
	if !ok || standard == 0 {
		return pass(0.7, "section %s has no standard rate on record", section)
	}
	got := appliedRate(inv)
	higher := got >= standard*1.8
	nonFiler := ec.VendorFound && ec.Vendor.NonFiler206AB
	switch {
	case nonFiler && higher:
		return pass(0.95, "higher rate %s applied to specified person under 206AB", pct(got))
	case nonFiler:
		return fail(0.9, "vendor is a non-filer; 206AB requires at least %s but %s applied",
			pct(max(2*standard, nonFilerMinRate)), pct(got)).withSeverity(domain.SeverityHigh).withReview()
	case higher:
		return warn(0.8, "rate %s is well above standard %s; verify 206AB applicability", pct(got), pct(standard)).withReview()
	default:
		return pass(0.85, "standard rate %s; vendor not flagged as non-filer", pct(got))
	}
}

// tdsQuarter returns the quarter label of d with the Form 26Q and Form 16A due dates.
func tdsQuarter(d time.Time) (label string, return26Q, cert16A time.Time) {
	y := d.Year()
	at := func(year int, m time.Month, day int) time.Time { return time.Date(year, m, day, 0, 0, 0, 0, time.UTC) }
	switch {
	case d.Month() <= time.March:
		return "Q4", at(y, time.May, 31), at(y, time.June, 15)
	case d.Month() <= time.June:
		return "Q1", at(y, time.July, 31), at(y, time.August, 15)
	case d.Month() <= time.September:
		return "Q2", at(y, time.October, 31), at(y, time.November, 15)
	default:
		return "Q3", at(y+1, time.January, 31), at(y+1, time.February, 15)
	}
}

func checkTDSCertificate(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("certificate")
	}
	if inv.TDSAmount == 0 {
		return pass(0.85, "no TDS deducted; certificate not required")
	}
	q, _, due := tdsQuarter(ec.Date)
	return pass(0.85, "TDS %s deducted in %s; issue Form 16A by %s", rupees(inv.TDSAmount), q, due.Format(time.DateOnly))
}

func checkQuarterlyReturn(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.TDSApplicable {
		return tdsNotApplicable("reconciliation")
	}
	q, due, _ := tdsQuarter(ec.Date)
	if inv.TDSAmount == 0 {
		return pass(0.85, "%s invoice with no TDS to reconcile", q).withSeverity(domain.SeverityLow)
	}
	if ec.AsOf.After(due) {
		return warn(0.75, "Form 26Q for %s was due by %s; confirm the deduction was reported", q, due.Format(time.DateOnly)).withReview()
	}
	return pass(0.85, "report in Form 26Q for %s by %s", q, due.Format(time.DateOnly))
}
