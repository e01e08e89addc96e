package invoice

import (
	"context"

	"gstaudit/internal/domain"
)

const (
	lineTolerance  = 0.01
	totalTolerance = 1.00
)

// ArithmeticChecks returns the arithmetic battery (C1-C10). Every outcome is
// deterministic and reported with confidence 1.0.
func ArithmeticChecks() []*Check {
	return []*Check{
		{ID: "C1", Name: "Line Amount Calculation", Severity: domain.SeverityMedium, eval: checkLineAmounts},
		{ID: "C2", Name: "Subtotal Matches Line Sum", Severity: domain.SeverityMedium, eval: checkSubtotal},
		{ID: "C3", Name: "Tax Components Sum", Severity: domain.SeverityHigh, eval: checkTaxComponents},
		{ID: "C4", Name: "Line Taxable Value", Severity: domain.SeverityMedium, eval: checkLineTaxable},
		{ID: "C5", Name: "Line CGST Calculation", Severity: domain.SeverityMedium, eval: lineComponentCheck(componentCGST)},
		{ID: "C6", Name: "Line SGST Calculation", Severity: domain.SeverityMedium, eval: lineComponentCheck(componentSGST)},
		{ID: "C7", Name: "Line IGST Calculation", Severity: domain.SeverityMedium, eval: lineComponentCheck(componentIGST)},
		{ID: "C8", Name: "Line Tax Matches Header", Severity: domain.SeverityHigh, eval: checkLineTaxVsHeader},
		{ID: "C9", Name: "Taxable Value Calculation", Severity: domain.SeverityMedium, eval: checkTaxableValue},
		{ID: "C10", Name: "Invoice Total", Severity: domain.SeverityHigh, eval: checkGrandTotal},
	}
}

func eachLine(ec *EvalContext, fn func(li *LineItem) lineOutcome) []lineOutcome {
	out := make([]lineOutcome, len(ec.Invoice.LineItems))
	for i := range ec.Invoice.LineItems {
		out[i] = fn(&ec.Invoice.LineItems[i])
	}
	return out
}

func checkLineAmounts(_ context.Context, ec *EvalContext) outcome {
	lines := eachLine(ec, func(li *LineItem) lineOutcome {
		if li.Quantity == 0 && li.Rate == 0 {
			return lineOutcome{na: true}
		}
		want := li.Quantity * li.Rate
		if !within(want, li.Amount, lineTolerance) {
			return lineOutcome{outcome: fail(1.0, "amount %s != %g x %s = %s",
				rupees(li.Amount), li.Quantity, fmtf(li.Rate), rupees(want))}
		}
		return lineOutcome{outcome: pass(1.0, "")}
	})
	return mergeLines(lines, "every line amount equals quantity x rate")
}

func checkSubtotal(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	var sum float64
	for i := range inv.LineItems {
		sum += inv.LineItems[i].Amount
	}
	if !within(sum, inv.Subtotal, totalTolerance) {
		return fail(1.0, "line items sum to %s but subtotal is %s", rupees(sum), rupees(inv.Subtotal))
	}
	return pass(1.0, "line items sum to subtotal %s", rupees(inv.Subtotal))
}

func checkTaxComponents(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	components := inv.TaxComponents()
	if inv.TotalTax == nil {
		return pass(1.0, "total tax not stated; derived from components as %s", rupees(components))
	}
	if !within(components, *inv.TotalTax, totalTolerance) {
		return fail(1.0, "CGST %s + SGST %s + IGST %s + cess %s = %s, but total tax is %s",
			fmtf(inv.CGSTAmount), fmtf(inv.SGSTAmount), fmtf(inv.IGSTAmount), fmtf(inv.Cess),
			rupees(components), rupees(*inv.TotalTax))
	}
	return pass(1.0, "tax components sum to total tax %s", rupees(*inv.TotalTax))
}

func checkLineTaxable(_ context.Context, ec *EvalContext) outcome {
	lines := eachLine(ec, func(li *LineItem) lineOutcome {
		if li.TaxableValue == nil {
			return lineOutcome{na: true}
		}
		want := li.Amount - li.Discount
		if !within(want, *li.TaxableValue, totalTolerance) {
			return lineOutcome{outcome: fail(1.0, "taxable value %s != amount %s - discount %s",
				rupees(*li.TaxableValue), fmtf(li.Amount), fmtf(li.Discount))}
		}
		return lineOutcome{outcome: pass(1.0, "")}
	})
	return mergeLines(lines, "line taxable values equal amount less discount")
}

type component int

const (
	componentCGST component = iota
	componentSGST
	componentIGST
)

func (c component) String() string {
	return [...]string{"CGST", "SGST", "IGST"}[c]
}

func (c component) of(li *LineItem) float64 {
	switch c {
	case componentCGST:
		return li.CGST
	case componentSGST:
		return li.SGST
	default:
		return li.IGST
	}
}

// expected returns the component amount implied by the line's declared rate.
func (c component) expected(li *LineItem, interstate bool) float64 {
	rate := *li.TaxRate
	switch {
	case c == componentIGST && interstate:
		return li.Taxable() * rate / 100
	case c != componentIGST && !interstate:
		return li.Taxable() * rate / 200
	default:
		return 0
	}
}

func lineComponentCheck(c component) func(context.Context, *EvalContext) outcome {
	return func(_ context.Context, ec *EvalContext) outcome {
		interstate := ec.Invoice.IsInterstate()
		lines := eachLine(ec, func(li *LineItem) lineOutcome {
			if li.TaxRate == nil {
				return lineOutcome{na: true}
			}
			want, got := c.expected(li, interstate), c.of(li)
			if !within(want, got, totalTolerance) {
				return lineOutcome{outcome: fail(1.0, "%s %s, expected %s at %g%% on %s",
					c, rupees(got), rupees(want), *li.TaxRate, rupees(li.Taxable()))}
			}
			return lineOutcome{outcome: pass(1.0, "")}
		})
		return mergeLines(lines, "line "+c.String()+" amounts match the declared rates")
	}
}

func checkLineTaxVsHeader(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	var cgst, sgst, igst float64
	for i := range inv.LineItems {
		cgst += inv.LineItems[i].CGST
		sgst += inv.LineItems[i].SGST
		igst += inv.LineItems[i].IGST
	}
	if cgst == 0 && sgst == 0 && igst == 0 {
		return pass(1.0, "tax is not itemised per line")
	}
	var mismatches []string
	for _, m := range []struct {
		name        string
		line, total float64
	}{
		{"CGST", cgst, inv.CGSTAmount},
		{"SGST", sgst, inv.SGSTAmount},
		{"IGST", igst, inv.IGSTAmount},
	} {
		if !within(m.line, m.total, totalTolerance) {
			mismatches = append(mismatches, m.name+" lines "+rupees(m.line)+" vs header "+rupees(m.total))
		}
	}
	if len(mismatches) > 0 {
		return fail(1.0, "line tax does not match header: %s", joinList(mismatches))
	}
	return pass(1.0, "line tax matches header components")
}

func checkTaxableValue(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	if inv.TaxableValue == nil {
		return pass(1.0, "taxable value not stated; derived as %s", rupees(inv.Taxable()))
	}
	want := inv.Subtotal - inv.Discount
	if !within(want, *inv.TaxableValue, totalTolerance) {
		return fail(1.0, "taxable value %s != subtotal %s - discount %s",
			rupees(*inv.TaxableValue), fmtf(inv.Subtotal), fmtf(inv.Discount))
	}
	return pass(1.0, "taxable value %s equals subtotal less discount", rupees(want))
}

func checkGrandTotal(_ context.Context, ec *EvalContext) outcome {
	inv := ec.Invoice
	want := inv.Taxable() + inv.Tax()
	if !within(want, inv.TotalAmount, totalTolerance) {
		return fail(1.0, "taxable %s + tax %s = %s, but total is %s",
			fmtf(inv.Taxable()), fmtf(inv.Tax()), rupees(want), rupees(inv.TotalAmount))
	}
	return pass(1.0, "total %s equals taxable value plus tax", rupees(inv.TotalAmount))
}
