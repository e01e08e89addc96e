package invoice_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/domain"
	"gstaudit/internal/port"
	"gstaudit/internal/refdata"
	"gstaudit/internal/validator/invoice"
)

func mismatchedInvoice() *invoice.Invoice {
	inv := validInvoice()
	inv.LineItems[0].Description = "Office chairs"
	return inv
}

func TestAugmentation_SimpleInvoiceSkipsCollaborator(t *testing.T) {
	aug := &stubAugmenter{resp: &port.ReasoningResponse{Status: "PASS", Confidence: 0.9}}
	r := evaluate(t, "B5", mismatchedInvoice(), func(ec *invoice.EvalContext) { ec.Augmenter = aug })
	assert.Equal(t, domain.CheckStatusWarning, r.Status)
	assert.Equal(t, domain.SourceRuleBased, r.Source)
	assert.Empty(t, aug.reqs)
}

func TestAugmentation_UsesCollaboratorVerdict(t *testing.T) {
	aug := &stubAugmenter{resp: &port.ReasoningResponse{
		Status:     "pass",
		Confidence: 0.9,
		Reasoning:  "furniture supplied as part of a consulting engagement",
		Model:      "gpt-4o-mini",
	}}
	r := evaluate(t, "B5", mismatchedInvoice(), withAugmenter(aug))
	assert.Equal(t, domain.CheckStatusPass, r.Status)
	assert.Equal(t, 0.9, r.Confidence)
	assert.Equal(t, domain.SourceReasoning, r.Source)
	assert.True(t, r.RequiresReview)
	assert.Equal(t, []string{"gpt-4o-mini"}, r.Provenance)

	require.Len(t, aug.reqs, 1)
	assert.Equal(t, "B5", aug.reqs[0].CheckID)
	assert.Equal(t, "998314", aug.reqs[0].Context["hsn_sac"])
}

func TestAugmentation_Degrades(t *testing.T) {
	cases := []struct {
		name string
		opt  evalOption
	}{
		{"not_configured", complexWithoutAugmenter()},
		{"collaborator_error", withAugmenter(&stubAugmenter{err: errors.New("deadline exceeded")})},
		{"bad_status", withAugmenter(&stubAugmenter{resp: &port.ReasoningResponse{Status: "MAYBE", Confidence: 0.9}})},
		{"bad_confidence", withAugmenter(&stubAugmenter{resp: &port.ReasoningResponse{Status: "PASS", Confidence: 1.7}})},
		{"nan_confidence", withAugmenter(&stubAugmenter{resp: &port.ReasoningResponse{Status: "PASS", Confidence: math.NaN()}})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := evaluate(t, "B5", validInvoice(), tc.opt)
			assert.Equal(t, domain.CheckStatusWarning, r.Status)
			assert.True(t, r.RequiresReview)
			assert.Equal(t, domain.SourceFallback, r.Source)
			assert.InDelta(t, 0.85*invoice.DegradeFactor, r.Confidence, 1e-9)
			assert.LessOrEqual(t, r.Confidence, 0.85)
			assert.Contains(t, r.Reasoning, "deterministic fallback")
		})
	}
}

func TestAugmentation_DegradedPassBecomesWarning(t *testing.T) {
	inv := validInvoice()
	inv.Seller.GSTIN = "27ZZZZZ9999Z1Z9"
	r := evaluate(t, "B10", inv, complexWithoutAugmenter())
	assert.Equal(t, domain.CheckStatusWarning, r.Status)
	assert.InDelta(t, 0.7*invoice.DegradeFactor, r.Confidence, 1e-9)
}

func TestAugmentation_DegradedFailStaysFail(t *testing.T) {
	base := testSnapshot(t)
	ref := *base
	ref.Vendors = refdata.NewVendorRegistry([]refdata.Vendor{{
		VendorID:       "V900",
		GSTIN:          "27AABCT1234C1Z2",
		PAN:            "AABCT1234C",
		LegalName:      "TechServ Solutions Private Limited",
		Status:         domain.VendorStatusActive,
		GSTRegistered:  false,
		ResidentStatus: domain.ResidentStatusResident,
	}})
	ec, err := invoice.NewEvalContext(validInvoice(), &ref, invoice.History{}, runDate)
	require.NoError(t, err)
	ec.Complex = true

	r := findCheck(t, "B10").Evaluate(context.Background(), ec)
	assert.Equal(t, domain.CheckStatusFail, r.Status)
	assert.InDelta(t, 0.85*invoice.DegradeFactor, r.Confidence, 1e-9)
	assert.Equal(t, domain.SourceFallback, r.Source)
}

func TestAugmentation_PerLineRequests(t *testing.T) {
	inv := validInvoice()
	for i := 0; i < 3; i++ {
		inv.LineItems = append(inv.LineItems, inv.LineItems[0])
	}
	aug := &stubAugmenter{resp: &port.ReasoningResponse{Status: "WARNING", Confidence: 0.6, Reasoning: "bundled"}}
	r := evaluate(t, "B5", inv, withAugmenter(aug), func(ec *invoice.EvalContext) { ec.MaxLineConcurrency = 2 })
	assert.Equal(t, domain.CheckStatusWarning, r.Status)
	assert.InDelta(t, 0.6, r.Confidence, 1e-9)
	assert.Len(t, aug.reqs, 4)
}

type panickingAugmenter struct{}

func (panickingAugmenter) Augment(context.Context, port.ReasoningRequest) (*port.ReasoningResponse, error) {
	panic("provider SDK bug")
}

func TestAugmentation_PanicDegrades(t *testing.T) {
	inv := validInvoice()
	inv.LineItems = append(inv.LineItems, inv.LineItems[0], inv.LineItems[0])

	var r domain.CheckResult
	require.NotPanics(t, func() {
		r = evaluate(t, "B5", inv, withAugmenter(panickingAugmenter{}), func(ec *invoice.EvalContext) { ec.MaxLineConcurrency = 2 })
	})
	assert.Equal(t, domain.CheckStatusWarning, r.Status)
	assert.True(t, r.RequiresReview)
	assert.Equal(t, domain.SourceFallback, r.Source)
	assert.InDelta(t, 0.85*invoice.DegradeFactor, r.Confidence, 1e-9)
	assert.Contains(t, r.Reasoning, "reasoning panicked: provider SDK bug")
}
