package invoice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gstaudit/internal/domain"
	"gstaudit/internal/validator/invoice"
)

func TestB1_GSTINFormat(t *testing.T) {
	inv := validInvoice()
	inv.Buyer.GSTIN = "27AAACA1234B1X5"
	r := evaluate(t, "B1", inv)
	assert.Equal(t, domain.CheckStatusFail, r.Status)
	assert.Equal(t, domain.SeverityCritical, r.Severity)
	assert.Contains(t, r.Reasoning, "buyer GSTIN")
}

func TestB2_RegistrationStatus(t *testing.T) {
	t.Run("fail_suspended_before_invoice", func(t *testing.T) {
		inv := validInvoice()
		inv.Seller.GSTIN = "24AAGCS9999E1Z1"
		assert.Equal(t, domain.CheckStatusFail, evaluate(t, "B2", inv).Status)
	})

	t.Run("warn_suspended_after_invoice", func(t *testing.T) {
		inv := validInvoice()
		inv.Seller.GSTIN = "24AAGCS9999E1Z1"
		inv.InvoiceDate = "2024-05-15"
		r := evaluate(t, "B2", inv)
		assert.Equal(t, domain.CheckStatusWarning, r.Status)
		assert.True(t, r.RequiresReview)
	})

	t.Run("warn_unknown", func(t *testing.T) {
		inv := validInvoice()
		inv.Seller.GSTIN = "27ZZZZZ9999Z1Z9"
		r := evaluate(t, "B2", inv)
		assert.Equal(t, domain.CheckStatusWarning, r.Status)
		assert.Equal(t, domain.SeverityHigh, r.Severity)
	})
}

func TestB3_StateCodes(t *testing.T) {
	t.Run("fail_mismatch", func(t *testing.T) {
		inv := validInvoice()
		inv.Seller.State = "Karnataka"
		r := evaluate(t, "B3", inv)
		assert.Equal(t, domain.CheckStatusFail, r.Status)
		assert.Equal(t, domain.SeverityHigh, r.Severity)
	})

	t.Run("explicit_state_code_wins", func(t *testing.T) {
		inv := validInvoice()
		inv.Seller.State = ""
		inv.Seller.StateCode = "27"
		assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B3", inv).Status)
	})

	t.Run("warn_missing_state", func(t *testing.T) {
		inv := validInvoice()
		inv.Buyer.State = ""
		assert.Equal(t, domain.CheckStatusWarning, evaluate(t, "B3", inv).Status)
	})
}

func TestB4_HSNFormat(t *testing.T) {
	t.Run("fail_malformed", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].HSNSAC = "99A314"
		r := evaluate(t, "B4", inv)
		assert.Equal(t, domain.CheckStatusFail, r.Status)
		assert.Contains(t, r.Reasoning, "line 1:")
	})

	t.Run("mean_confidence_over_lines", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems = append(inv.LineItems, invoice.LineItem{Description: "Widgets", HSNSAC: "9999", Quantity: 1, Rate: 10, Amount: 10})
		r := evaluate(t, "B4", inv)
		assert.Equal(t, domain.CheckStatusWarning, r.Status)
		assert.InDelta(t, 0.9, r.Confidence, 1e-9)
		assert.Contains(t, r.Reasoning, "line 2:")
		assert.NotContains(t, r.Reasoning, "line 1:")
	})
}

func TestB5_HSNDescription(t *testing.T) {
	t.Run("warn_no_keyword_overlap", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].Description = "Office chairs"
		r := evaluate(t, "B5", inv)
		assert.Equal(t, domain.CheckStatusWarning, r.Status)
		assert.Equal(t, 0.7, r.Confidence)
		assert.True(t, r.RequiresReview)
	})

	t.Run("prefix_lookup", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].HSNSAC = "99831400"
		r := evaluate(t, "B5", inv)
		assert.Equal(t, domain.CheckStatusPass, r.Status)
		assert.Equal(t, 0.85, r.Confidence)
	})
}

func TestB6_GSTRate(t *testing.T) {
	t.Run("fail_old_rate_after_change", func(t *testing.T) {
		inv := validInvoice()
		inv.InvoiceDate = "2019-05-01"
		inv.LineItems[0].HSNSAC = "995411"
		r := evaluate(t, "B6", inv)
		assert.Equal(t, domain.CheckStatusFail, r.Status)
		assert.Equal(t, 0.95, r.Confidence)
		assert.Contains(t, r.Reasoning, "12%")
	})

	t.Run("pass_old_rate_before_change", func(t *testing.T) {
		inv := validInvoice()
		inv.InvoiceDate = "2019-03-31"
		inv.LineItems[0].HSNSAC = "995411"
		assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B6", inv).Status)
	})

	t.Run("rate_derived_from_amounts", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].TaxRate = nil
		assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B6", inv).Status)
	})

	t.Run("historical_record_lowers_confidence", func(t *testing.T) {
		inv := validInvoice()
		inv.InvoiceDate = "2017-01-15"
		inv.LineItems[0].HSNSAC = "8471"
		r := evaluate(t, "B6", inv)
		assert.Equal(t, domain.CheckStatusPass, r.Status)
		assert.Equal(t, 0.75, r.Confidence)
		assert.True(t, r.RequiresReview)
	})

	t.Run("warn_unknown_code", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].HSNSAC = "1234"
		r := evaluate(t, "B6", inv)
		assert.Equal(t, domain.CheckStatusWarning, r.Status)
		assert.Equal(t, 0.6, r.Confidence)
	})
}

func TestB7_ComponentSymmetry(t *testing.T) {
	inv := validInvoice()
	inv.IGSTAmount = 100
	assert.Equal(t, domain.CheckStatusFail, evaluate(t, "B7", inv).Status)

	inv = validInvoice()
	inv.SGSTAmount = 4000
	assert.Equal(t, domain.CheckStatusFail, evaluate(t, "B7", inv).Status)
}

func TestB8_SupplyType(t *testing.T) {
	t.Run("fail_intra_tax_on_interstate", func(t *testing.T) {
		inv := validInvoice()
		inv.Buyer.GSTIN = "29AAACA1234B1Z3"
		inv.PlaceOfSupply = "29-Karnataka"
		r := evaluate(t, "B8", inv)
		assert.Equal(t, domain.CheckStatusFail, r.Status)
		assert.Equal(t, domain.SeverityCritical, r.Severity)
	})

	t.Run("pass_igst_on_interstate", func(t *testing.T) {
		inv := validInvoice()
		inv.PlaceOfSupply = "Karnataka"
		inv.CGSTAmount, inv.SGSTAmount, inv.IGSTAmount = 0, 0, 9000
		assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B8", inv).Status)
	})
}

func TestB9_PlaceOfSupply(t *testing.T) {
	inv := validInvoice()
	inv.PlaceOfSupply = "Karnataka"
	assert.Equal(t, domain.CheckStatusWarning, evaluate(t, "B9", inv).Status)

	inv.PlaceOfSupply = "Atlantis"
	assert.Equal(t, domain.CheckStatusWarning, evaluate(t, "B9", inv).Status)

	inv.PlaceOfSupply = "27"
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B9", inv).Status)
}

func TestB10_ReverseCharge(t *testing.T) {
	t.Run("warn_notified_service_without_rcm", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].Description = "Legal advisory services"
		r := evaluate(t, "B10", inv)
		assert.Equal(t, domain.CheckStatusWarning, r.Status)
		assert.Equal(t, 0.75, r.Confidence)
	})

	t.Run("keyword_needs_word_boundary", func(t *testing.T) {
		inv := validInvoice()
		inv.LineItems[0].Description = "Paralegal-free consulting"
		assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B10", inv).Status)
	})
}

func TestB11_Composition(t *testing.T) {
	inv := validInvoice()
	inv.Seller.GSTIN = "27AAFCQ2468G1Z4"
	assert.Equal(t, domain.CheckStatusFail, evaluate(t, "B11", inv).Status)

	inv.CGSTAmount, inv.SGSTAmount = 0, 0
	inv.DocumentType = domain.DocumentTypeBillOfSupply
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B11", inv).Status)
}

func TestB12toB15_EInvoice(t *testing.T) {
	irn := "3b7f1c2d4e5a69788b9c0d1e2f3a4b5c6d7e8f90a1b2c3d4e5f6a7b8c9d0e1f2"

	inv := validInvoice()
	inv.TotalAmount = 60_00_000
	assert.Equal(t, domain.CheckStatusWarning, evaluate(t, "B12", inv).Status)

	inv.EInvoice = true
	assert.Equal(t, domain.CheckStatusWarning, evaluate(t, "B13", inv).Status)
	inv.QRCodePresent = true
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B13", inv).Status)

	inv.IRN = "not-a-hash"
	assert.Equal(t, domain.CheckStatusFail, evaluate(t, "B14", inv).Status)
	inv.IRN = irn
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B14", inv).Status)

	inv = validInvoice()
	inv.TotalAmount = 1_20_00_000
	r := evaluate(t, "B15", inv)
	assert.Equal(t, domain.CheckStatusFail, r.Status)
	assert.True(t, r.IsCriticalIssue())
	inv.IRN = irn
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B15", inv).Status)
}

func TestB16B17_ZeroRated(t *testing.T) {
	inv := validInvoice()
	inv.InvoiceNumber = "EXP/24/001"
	assert.Equal(t, domain.CheckStatusWarning, evaluate(t, "B16", inv).Status)

	inv = validInvoice()
	inv.Notes = "Supply to SEZ unit under LUT"
	assert.Equal(t, domain.CheckStatusWarning, evaluate(t, "B17", inv).Status)
	inv.CGSTAmount, inv.SGSTAmount = 0, 0
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B17", inv).Status)
}

func TestB18_BlockedCredit(t *testing.T) {
	inv := validInvoice()
	inv.LineItems[0].Description = "Sedan for director use"
	inv.LineItems[0].HSNSAC = "8703"
	r := evaluate(t, "B18", inv)
	assert.Equal(t, domain.CheckStatusWarning, r.Status)
	assert.Contains(t, r.Reasoning, "HSN 8703")

	inv = validInvoice()
	inv.LineItems[0].Description = "Cardboard cartons"
	assert.Equal(t, domain.CheckStatusPass, evaluate(t, "B18", inv).Status)
}
