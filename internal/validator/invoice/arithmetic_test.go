package invoice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/domain"
	"gstaudit/internal/validator/invoice"
)

func TestC1_LineAmounts(t *testing.T) {
	t.Run("within_paisa", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].Amount = 50000.01
		assert.Equal(t, domain.CheckStatusPass, evaluate(t, "C1", inv).Status)
	})

	t.Run("fail_one_bad_line", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems = append(inv.LineItems, invoice.LineItem{Description: "Laptop", HSNSAC: "8471", Quantity: 2, Rate: 100, Amount: 250})
		r := evaluate(t, "C1", inv)
		assert.Equal(t, domain.CheckStatusFail, r.Status)
		assert.Equal(t, domain.SeverityMedium, r.Severity)
		assert.Equal(t, 1.0, r.Confidence)
		assert.Contains(t, r.Reasoning, "line 2:")
	})
}

func TestC2_Subtotal(t *testing.T) {
	inv := validInvoice()
	inv.Subtotal = 49000
	assert.Equal(t, domain.CheckStatusFail, evaluate(t, "C2", inv).Status)
}

func TestC3_TaxComponents(t *testing.T) {
	inv := validInvoice()
	inv.TotalTax = ptr(9000)
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "C3", inv).Status)

	inv.TotalTax = ptr(9500)
	r := evaluate(t, "C3", inv)
	assert.Equal(t, domain.CheckStatusFail, r.Status)
	assert.True(t, r.IsCriticalIssue())
}

func TestC4_LineTaxable(t *testing.T) {
	inv := validInvoice()
	inv.LineItems[0].Discount = 1000
	inv.LineItems[0].TaxableValue = ptr(50000)
	assert.Equal(t, domain.CheckStatusFail, evaluate(t, "C4", inv).Status)

	inv.LineItems[0].TaxableValue = ptr(49000)
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "C4", inv).Status)
}

func TestC5toC7_LineComponents(t *testing.T) {
	t.Run("fail_cgst", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].CGST = 4000
		assert.Equal(t, domain.CheckStatusFail, evaluate(t, "C5", inv).Status)
		assert.Equal(t, domain.CheckStatusPass, evaluate(t, "C6", inv).Status)
	})

	t.Run("interstate_expects_igst", func(t *testing.T) {
		inv := validInvoice()
		inv.Buyer.GSTIN = "29AAACA1234B1Z3"
		assert.Equal(t, domain.CheckStatusFail, evaluate(t, "C5", inv).Status)
		assert.Equal(t, domain.CheckStatusFail, evaluate(t, "C7", inv).Status)

		inv.LineItems[0].CGST, inv.LineItems[0].SGST, inv.LineItems[0].IGST = 0, 0, 9000
		for _, id := range []invoice.CheckID{"C5", "C6", "C7"} {
			assert.Equal(t, domain.CheckStatusPass, evaluate(t, id, inv).Status, id)
		}
	})

	t.Run("no_declared_rate", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].TaxRate = nil
		inv.LineItems[0].CGST = 1
		r := evaluate(t, "C5", inv)
		assert.Equal(t, domain.CheckStatusPass, r.Status)
		assert.Equal(t, "no applicable line items", r.Reasoning)
	})
}

func TestC8_LineTaxVsHeader(t *testing.T) {
	inv := validInvoice()
	inv.CGSTAmount = 4600
	r := evaluate(t, "C8", inv)
	assert.Equal(t, domain.CheckStatusFail, r.Status)
	assert.Contains(t, r.Reasoning, "CGST")
	assert.NotContains(t, r.Reasoning, "SGST")

	inv.LineItems[0].CGST, inv.LineItems[0].SGST = 0, 0
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "C8", inv).Status)
}

func TestC9_TaxableValue(t *testing.T) {
	inv := validInvoice()
	inv.Discount = 500
	inv.TaxableValue = ptr(50000)
	assert.Equal(t, domain.CheckStatusFail, evaluate(t, "C9", inv).Status)
}

func TestC10_GrandTotal(t *testing.T) {
	inv := validInvoice()
	inv.TotalAmount = 59000.99
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "C10", inv).Status)

	inv.TotalAmount = 59001.5
	r := evaluate(t, "C10", inv)
	assert.Equal(t, domain.CheckStatusFail, r.Status)
	assert.Equal(t, domain.SeverityHigh, r.Severity)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestArithmetic_ConsistentInvoiceRoundTrip(t *testing.T) {
	inv := validInvoice()
	inv.LineItems = append(inv.LineItems, invoice.LineItem{
		Description: "Laptop", HSNSAC: "8471", Quantity: 2, Unit: "NOS", Rate: 25000, Amount: 50000,
		TaxRate: ptr(18), CGST: 4500, SGST: 4500,
	})
	inv.Subtotal = 100000
	inv.CGSTAmount = 9000
	inv.SGSTAmount = 9000
	inv.TotalTax = ptr(18000)
	inv.TotalAmount = 118000

	ec := newEvalContext(t, inv)
	checks := invoice.ArithmeticChecks()
	require.Len(t, checks, 10)
	for _, c := range checks {
		r := c.Evaluate(context.Background(), ec)
		assert.Equal(t, domain.CheckStatusPass, r.Status, "%s: %s", c.ID, r.Reasoning)
		assert.Equal(t, 1.0, r.Confidence, c.ID)
	}
}
