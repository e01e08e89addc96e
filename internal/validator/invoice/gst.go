package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gstaudit/internal/domain"
	"gstaudit/internal/refdata"
)

const (
	rateTolerance = 0.1

	// eInvoiceProxyThreshold flags single invoices large enough that the
	// supplier almost certainly crosses the e-invoicing turnover limit.
	eInvoiceProxyThreshold = 50_00_000
	// irnMandatoryThreshold is the value above which an IRN is expected.
	irnMandatoryThreshold = 1_00_00_000
)

// Services notified under reverse charge that a registered supplier may still bill.
var reverseChargeKeywords = []string{"legal", "advocate", "goods transport", "gta", "security service", "sponsorship", "director"}

// Inputs whose credit is blocked under section 17(5).
var blockedCreditKeywords = []string{"motor vehicle", "car", "food", "beverage", "alcohol", "catering", "club membership", "health insurance"}

// blockedCreditCodes are HSN prefixes whose credit is blocked.
var blockedCreditCodes = []string{"8703", "2203", "2204", "2208"}

// GSTChecks returns the GST compliance battery (B1-B18).
func GSTChecks() []*Check {
	return []*Check{
		{ID: "B1", Name: "GSTIN Format", Severity: domain.SeverityCritical, eval: checkGSTINFormat},
		{ID: "B2", Name: "GSTIN Registration Status", Severity: domain.SeverityCritical, eval: checkRegistrationStatus},
		{ID: "B3", Name: "GSTIN State Code", Severity: domain.SeverityHigh, eval: checkStateCodes},
		{ID: "B4", Name: "HSN/SAC Code Format", Severity: domain.SeverityMedium, eval: checkHSNFormat},
		{ID: "B5", Name: "HSN/SAC Description Match", Severity: domain.SeverityHigh, eval: checkHSNDescription},
		{ID: "B6", Name: "GST Rate Match", Severity: domain.SeverityHigh, eval: checkGSTRates},
		{ID: "B7", Name: "Tax Component Symmetry", Severity: domain.SeverityHigh, eval: checkComponentSymmetry},
		{ID: "B8", Name: "Interstate/Intrastate Tax Type", Severity: domain.SeverityCritical, eval: checkSupplyType},
		{ID: "B9", Name: "Place of Supply", Severity: domain.SeverityMedium, eval: checkPlaceOfSupply},
		{ID: "B10", Name: "Reverse Charge Mechanism", Severity: domain.SeverityHigh, eval: checkReverseCharge},
		{ID: "B11", Name: "Composition Scheme", Severity: domain.SeverityHigh, eval: checkCompositionScheme},
		{ID: "B12", Name: "E-Invoice Mandate", Severity: domain.SeverityMedium, eval: checkEInvoiceMandate},
		{ID: "B13", Name: "QR Code Presence", Severity: domain.SeverityLow, eval: checkQRCode},
		{ID: "B14", Name: "IRN Format", Severity: domain.SeverityMedium, eval: checkIRNFormat},
		{ID: "B15", Name: "IRN Value Threshold", Severity: domain.SeverityHigh, eval: checkIRNThreshold},
		{ID: "B16", Name: "Export Compliance", Severity: domain.SeverityMedium, eval: zeroRatedCheck("export", []string{"EXP", "EXPORT", "LUT"})},
		{ID: "B17", Name: "SEZ Supply", Severity: domain.SeverityMedium, eval: zeroRatedCheck("SEZ", []string{"SEZ"})},
		{ID: "B18", Name: "Blocked Input Tax Credit", Severity: domain.SeverityMedium, eval: checkBlockedCredit},
	}
}

func checkGSTINFormat(_ context.Context, ec *EvalContext) outcome {
	var bad []string
	for _, p := range []struct {
		role  string
		gstin string
	}{{"seller", ec.Invoice.Seller.GSTIN}, {"buyer", ec.Invoice.Buyer.GSTIN}} {
		g := normGSTIN(p.gstin)
		switch {
		case g == "":
			bad = append(bad, p.role+" GSTIN missing")
		case !ValidGSTIN(g):
			bad = append(bad, fmt.Sprintf("%s GSTIN %q malformed", p.role, p.gstin))
		}
	}
	if len(bad) > 0 {
		return fail(1.0, "%s", joinList(bad)).withReview()
	}
	return pass(1.0, "seller and buyer GSTINs are well formed")
}

func checkRegistrationStatus(_ context.Context, ec *EvalContext) outcome {
	gstin := normGSTIN(ec.Invoice.Seller.GSTIN)
	if !ec.VendorFound {
		return warn(0.7, "seller %s not in vendor registry; registration status unverified", gstin).
			withSeverity(domain.SeverityHigh).withReview()
	}
	v := ec.Vendor
	if !v.GSTRegistered {
		return fail(0.9, "seller %s is recorded as unregistered", gstin).withReview()
	}
	switch v.Status {
	case domain.VendorStatusActive:
		return pass(0.9, "seller GSTIN %s is active", gstin)
	case domain.VendorStatusSuspended:
		if v.SuspensionDate != nil && ec.Date.Before(*v.SuspensionDate) {
			return warn(0.85, "seller registration suspended from %s, after the invoice date",
				v.SuspensionDate.Format(time.DateOnly)).withReview()
		}
		return fail(0.9, "seller registration suspended: %s", v.SuspensionReason).withReview()
	default:
		return fail(0.9, "seller registration status is %s", v.Status).withReview()
	}
}

func checkStateCodes(_ context.Context, ec *EvalContext) outcome {
	var missing, mismatched []string
	for _, p := range []struct {
		role  string
		party Party
	}{{"seller", ec.Invoice.Seller}, {"buyer", ec.Invoice.Buyer}} {
		g := normGSTIN(p.party.GSTIN)
		if len(g) < 2 {
			continue
		}
		declared, ok := declaredStateCode(p.party)
		if !ok {
			missing = append(missing, p.role)
			continue
		}
		if declared != g[:2] {
			mismatched = append(mismatched, fmt.Sprintf("%s GSTIN state %s vs declared %s", p.role, g[:2], declared))
		}
	}
	switch {
	case len(mismatched) > 0:
		return fail(0.9, "%s", joinList(mismatched)).withReview()
	case len(missing) > 0:
		return warn(0.7, "declared state missing for %s", joinList(missing)).withSeverity(domain.SeverityMedium)
	}
	return pass(0.95, "GSTIN state codes match the declared states")
}

func checkHSNFormat(ctx context.Context, ec *EvalContext) outcome {
	lines := forEachLine(ctx, ec, func(_ context.Context, _ int, li *LineItem) lineOutcome {
		code := strings.TrimSpace(li.HSNSAC)
		switch {
		case code == "":
			return lineOutcome{outcome: fail(1.0, "HSN/SAC code missing")}
		case !hsnPattern.MatchString(code):
			return lineOutcome{outcome: fail(1.0, "HSN/SAC %q is not 4, 6 or 8 digits", code)}
		case !ec.Ref.Codes.Exists(code):
			return lineOutcome{outcome: warn(0.8, "HSN/SAC %s not in master list", code)}
		}
		return lineOutcome{outcome: pass(1.0, "")}
	})
	return mergeLines(lines, "all HSN/SAC codes are well formed and known")
}

func checkHSNDescription(ctx context.Context, ec *EvalContext) outcome {
	lines := forEachLine(ctx, ec, func(ctx context.Context, _ int, li *LineItem) lineOutcome {
		code := strings.TrimSpace(li.HSNSAC)
		entry, ok := ec.Ref.Codes.Lookup(code)
		if !ok {
			return lineOutcome{outcome: warn(0.6, "HSN/SAC %q unknown; description unverified", code).withReview()}
		}
		fallback := descriptionOverlap(li.Description, entry)
		facts := map[string]any{
			"description":      li.Description,
			"hsn_sac":          code,
			"code_kind":        string(entry.Kind),
			"code_description": entry.Description,
			"quantity":         li.Quantity,
			"amount":           li.Amount,
		}
		question := fmt.Sprintf("Does the line description %q fall under %s %s (%s)? For composite or bundled supplies, judge the principal supply.",
			li.Description, entry.Kind, entry.Code, entry.Description)
		return lineOutcome{outcome: augmented(ctx, ec, "B5", question, facts, fallback)}
	})
	return mergeLines(lines, "line descriptions match their HSN/SAC codes")
}

// descriptionOverlap is the deterministic keyword-overlap verdict for B5.
func descriptionOverlap(description string, entry refdata.HSNCode) outcome {
	desc := strings.ToLower(description)
	var hits []string
	for _, kw := range entry.Keywords {
		if kw != "" && strings.Contains(desc, kw) {
			hits = append(hits, kw)
		}
	}
	if len(hits) == 0 {
		return warn(0.7, "%q shares no keywords with %s %s (%s)", description, entry.Kind, entry.Code, entry.Description).withReview()
	}
	return pass(0.85, "%q matches %s %s on %s", description, entry.Kind, entry.Code, joinList(hits))
}

// lookupRate resolves code in the schedule, falling back to 6 and 4 digit prefixes.
func lookupRate(s *refdata.RateSchedule, code string, on time.Time) (refdata.RateLookup, error) {
	r, err := s.GetRate(code, on)
	if err == nil || !errors.Is(err, domain.ErrNotFound) {
		return r, err
	}
	for _, n := range []int{6, 4} {
		if len(code) > n && s.Has(code[:n]) {
			return s.GetRate(code[:n], on)
		}
	}
	return r, err
}

func checkGSTRates(ctx context.Context, ec *EvalContext) outcome {
	lines := forEachLine(ctx, ec, func(_ context.Context, _ int, li *LineItem) lineOutcome {
		code := strings.TrimSpace(li.HSNSAC)
		if code == "" {
			return lineOutcome{na: true}
		}
		lookup, err := lookupRate(ec.Ref.Rates, code, ec.Date)
		if err != nil {
			return lineOutcome{outcome: warn(0.6, "no GST rate on record for %s", code).withReview()}
		}
		want := lookup.Record.Total()
		got := lineRate(ec.Invoice, li)
		conf := 0.95
		note := ""
		if lookup.Historical {
			conf = 0.75
			note = fmt.Sprintf(" (closest schedule entry from %s)", lookup.Record.EffectiveFrom.Format(time.DateOnly))
		}
		if !within(want, got, rateTolerance) {
			o := fail(conf, "%s charged at %s%%, schedule rate on %s is %g%%%s",
				code, fmtf(got), ec.Date.Format(time.DateOnly), want, note).withReview()
			return lineOutcome{outcome: o}
		}
		o := pass(conf, "%s at %g%%%s", code, want, note)
		if lookup.Historical {
			o = o.withReview()
		}
		return lineOutcome{outcome: o}
	})
	return mergeLines(lines, "all line rates match the schedule in force on the invoice date")
}

// lineRate is the line's declared rate. Lines that carry neither a rate nor
// tax amounts take the invoice's effective header rate.
func lineRate(inv *Invoice, li *LineItem) float64 {
	if li.TaxRate != nil || li.TaxTotal() > 0 {
		return li.DeclaredRate()
	}
	if base := inv.Taxable(); base > 0 {
		return (inv.CGSTAmount + inv.SGSTAmount + inv.IGSTAmount) / base * 100
	}
	return 0
}

func checkComponentSymmetry(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	intra := inv.CGSTAmount > 0 || inv.SGSTAmount > 0
	inter := inv.IGSTAmount > 0
	switch {
	case !intra && !inter:
		return pass(1.0, "no GST charged")
	case intra && inter:
		return fail(0.95, "IGST %s charged together with CGST %s / SGST %s",
			fmtf(inv.IGSTAmount), fmtf(inv.CGSTAmount), fmtf(inv.SGSTAmount)).withReview()
	case intra && !within(inv.CGSTAmount, inv.SGSTAmount, totalTolerance):
		return fail(0.95, "CGST %s != SGST %s", rupees(inv.CGSTAmount), rupees(inv.SGSTAmount)).withReview()
	case intra:
		return pass(1.0, "CGST equals SGST (%s)", rupees(inv.CGSTAmount))
	}
	return pass(1.0, "IGST only (%s)", rupees(inv.IGSTAmount))
}

// supplyStates returns the seller's state and the state of supply (place of
// supply when given, otherwise the buyer's state).
func supplyStates(inv *Invoice) (seller, supply string) {
	seller = StateCodeOf(Party{GSTIN: normGSTIN(inv.Seller.GSTIN), StateCode: inv.Seller.StateCode})
	if pos, ok := PlaceOfSupplyCode(inv.PlaceOfSupply); ok {
		return seller, pos
	}
	return seller, StateCodeOf(Party{GSTIN: normGSTIN(inv.Buyer.GSTIN), StateCode: inv.Buyer.StateCode})
}

func checkSupplyType(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	seller, supply := supplyStates(inv)
	if seller == "" || supply == "" {
		return warn(0.6, "cannot determine supply type: seller state %q, supply state %q", seller, supply).
			withSeverity(domain.SeverityMedium).withReview()
	}
	interstate := seller != supply
	hasIntra := inv.CGSTAmount > 0 || inv.SGSTAmount > 0
	hasInter := inv.IGSTAmount > 0
	switch {
	case !hasIntra && !hasInter:
		return pass(0.9, "no GST charged; supply type not exercised")
	case interstate && hasIntra:
		return fail(0.95, "interstate supply (%s -> %s) charged CGST/SGST instead of IGST", seller, supply).withReview()
	case !interstate && hasInter:
		return fail(0.95, "intrastate supply within %s charged IGST instead of CGST/SGST", seller).withReview()
	case interstate:
		return pass(1.0, "interstate supply (%s -> %s) charged IGST", seller, supply)
	}
	return pass(1.0, "intrastate supply within %s charged CGST/SGST", seller)
}

func checkPlaceOfSupply(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if strings.TrimSpace(inv.PlaceOfSupply) == "" {
		return warn(0.75, "place of supply not stated").withReview()
	}
	pos, ok := PlaceOfSupplyCode(inv.PlaceOfSupply)
	if !ok {
		return warn(0.7, "place of supply %q not recognised", inv.PlaceOfSupply).withReview()
	}
	buyer := StateCodeOf(Party{GSTIN: normGSTIN(inv.Buyer.GSTIN), StateCode: inv.Buyer.StateCode})
	if buyer == "" {
		return pass(0.8, "place of supply %s (%s); buyer state unknown", pos, stateNames[pos])
	}
	if pos != buyer {
		return warn(0.85, "place of supply %s differs from buyer state %s", pos, buyer).withReview()
	}
	return pass(0.95, "place of supply %s matches buyer state", pos)
}

func checkReverseCharge(ctx context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	var fallback outcome
	kw, notified := "", false
	for _, d := range inv.Descriptions() {
		for _, k := range reverseChargeKeywords {
			if containsWord(d, k) {
				kw, notified = k, true
				break
			}
		}
		if notified {
			break
		}
	}
	switch {
	case !ec.VendorFound:
		fallback = pass(0.7, "reverse charge marked %t; supplier not in registry", inv.ReverseCharge)
	case !ec.Vendor.GSTRegistered && !inv.ReverseCharge:
		fallback = fail(0.85, "unregistered supplier but reverse charge not applied").withReview()
	case notified && !inv.ReverseCharge:
		fallback = warn(0.75, "%q suggests a service notified under reverse charge, but RCM is not marked", kw).withReview()
	case inv.ReverseCharge && !notified && ec.Vendor.GSTRegistered:
		fallback = warn(0.8, "reverse charge marked for a registered supplier without a notified service").withReview()
	case inv.ReverseCharge:
		fallback = pass(0.85, "reverse charge applied")
	default:
		fallback = pass(0.85, "reverse charge not required")
	}
	facts := map[string]any{
		"reverse_charge":    inv.ReverseCharge,
		"descriptions":      inv.Descriptions(),
		"seller_registered": ec.VendorFound && ec.Vendor.GSTRegistered,
		"seller_type":       string(ec.Vendor.VendorType),
		"total_amount":      inv.TotalAmount,
	}
	return augmented(ctx, ec, "B10", "Is the reverse charge mechanism correctly applied (or correctly not applied) to this supply?", facts, fallback)
}

func checkCompositionScheme(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !ec.VendorFound {
		return pass(0.7, "composition status unknown for unregistered vendor").withSeverity(domain.SeverityLow)
	}
	if !ec.Vendor.CompositionScheme {
		return pass(0.95, "supplier is a regular taxpayer")
	}
	if tax := inv.TaxComponents(); tax > 0 {
		return fail(0.9, "composition dealer charged GST of %s", rupees(tax)).withReview()
	}
	if inv.DocumentType == domain.DocumentTypeBillOfSupply {
		return pass(0.95, "composition dealer issued a bill of supply without GST")
	}
	return pass(0.9, "composition dealer charged no GST")
}

func checkEInvoiceMandate(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if inv.TotalAmount < eInvoiceProxyThreshold {
		return pass(0.95, "invoice value %s below e-invoice proxy threshold", rupees(inv.TotalAmount)).withSeverity(domain.SeverityLow)
	}
	if strings.TrimSpace(inv.IRN) == "" {
		return warn(0.8, "high-value invoice %s without IRN; supplier likely within e-invoicing mandate", rupees(inv.TotalAmount)).withReview()
	}
	return pass(0.9, "high-value invoice carries an IRN")
}

func checkQRCode(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if !inv.EInvoice && strings.TrimSpace(inv.IRN) == "" {
		return pass(0.85, "not an e-invoice; QR code not required")
	}
	if !inv.QRCodePresent {
		return warn(0.75, "e-invoice without signed QR code").withReview()
	}
	return pass(0.9, "e-invoice carries a QR code")
}

func checkIRNFormat(_ context.Context, ec *EvalContext) outcome {
	irn := strings.TrimSpace(ec.Invoice.IRN)
	if irn == "" {
		return pass(0.8, "no IRN on invoice").withSeverity(domain.SeverityLow)
	}
	if !irnPattern.MatchString(irn) {
		return fail(0.95, "IRN is not a 64 character hex hash (length %d)", len(irn)).withReview()
	}
	return pass(0.95, "IRN is a well formed hash")
}

func checkIRNThreshold(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if inv.TotalAmount >= irnMandatoryThreshold && strings.TrimSpace(inv.IRN) == "" {
		return fail(0.85, "invoice of %s requires an IRN", rupees(inv.TotalAmount)).withReview()
	}
	return pass(0.8, "IRN status appropriate for %s", rupees(inv.TotalAmount)).withSeverity(domain.SeverityMedium)
}

// zeroRatedCheck flags zero-rated supplies (exports, SEZ) identified by
// markers in the invoice number, notes or buyer name that still charge GST.
func zeroRatedCheck(kind string, markers []string) func(context.Context, *EvalContext) outcome {
	return func(_ context.Context, ec *EvalContext) outcome {
		inv := ec.Invoice
		hay := strings.ToUpper(inv.InvoiceNumber + " " + inv.Notes + " " + inv.Buyer.Name)
		found := false
		for _, m := range markers {
			if containsWord(hay, m) || strings.Contains(strings.ToUpper(inv.InvoiceNumber), m) {
				found = true
				break
			}
		}
		if !found {
			return pass(0.9, "not a %s supply", kind).withSeverity(domain.SeverityLow)
		}
		if tax := inv.TaxComponents(); tax > 0 {
			return warn(0.75, "%s supply should be zero-rated but GST of %s is charged; check LUT/bond", kind, rupees(tax)).withReview()
		}
		return pass(0.8, "%s supply is zero-rated", kind)
	}
}

func checkBlockedCredit(_ context.Context, ec *EvalContext) outcome {
	var hits []string
	for i := range ec.Invoice.LineItems {
		li := &ec.Invoice.LineItems[i]
		for _, kw := range blockedCreditKeywords {
			if containsWord(li.Description, kw) {
				hits = append(hits, fmt.Sprintf("line %d %q", i+1, kw))
				break
			}
		}
		for _, p := range blockedCreditCodes {
			if strings.HasPrefix(strings.TrimSpace(li.HSNSAC), p) {
				hits = append(hits, fmt.Sprintf("line %d HSN %s", i+1, li.HSNSAC))
				break
			}
		}
	}
	if len(hits) > 0 {
		return warn(0.75, "input tax credit may be blocked under section 17(5): %s", joinList(hits)).withReview()
	}
	return pass(0.85, "no blocked-credit items detected")
}
