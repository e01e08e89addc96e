package validator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/domain"
	"gstaudit/internal/testutil"
	"gstaudit/internal/validator"
	"gstaudit/internal/validator/invoice"
)

func result(id string, status domain.CheckStatus, conf float64, sev domain.Severity, review bool) domain.CheckResult {
	return domain.NewCheckResult(domain.CheckResult{
		CheckID:        id,
		Name:           "check " + id,
		Category:       invoice.CheckID(id).Category(),
		Status:         status,
		Confidence:     conf,
		Severity:       sev,
		RequiresReview: review,
	})
}

func aggregate(checks ...domain.CheckResult) *domain.ValidationResult {
	cats := map[domain.Category]*domain.CategoryResult{}
	for _, c := range checks {
		cr, ok := cats[c.Category]
		if !ok {
			cr = &domain.CategoryResult{Category: c.Category}
			cats[c.Category] = cr
		}
		cr.Checks = append(cr.Checks, c)
	}
	return validator.Aggregate(cats, nil)
}

func TestAggregate(t *testing.T) {
	res := aggregate(
		result("A1", domain.CheckStatusPass, 1.0, domain.SeverityLow, false),
		result("B1", domain.CheckStatusFail, 0.4, domain.SeverityCritical, true),
		result("B2", domain.CheckStatusFail, 0.4, domain.SeverityMedium, false),
		result("B3", domain.CheckStatusWarning, 0.4, domain.SeverityCritical, false),
	)

	assert.Equal(t, domain.OverallStatusFail, res.Status)
	assert.Equal(t, 4, res.TotalChecks)
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Warnings)
	// mean over checks, not over category means (which would give 0.7)
	assert.InDelta(t, 0.55, res.AverageConfidence, 1e-9)
	assert.True(t, res.RequiresReview)
	require.Len(t, res.CriticalIssues, 1)
	assert.Equal(t, "B1", res.CriticalIssues[0].CheckID)

	gst := res.Categories[domain.CategoryGST]
	assert.Equal(t, 2, gst.Failed())
	assert.InDelta(t, 0.4, gst.AverageConfidence(), 1e-9)

	t.Run("warnings_only_pass", func(t *testing.T) {
		res := aggregate(result("C1", domain.CheckStatusWarning, 0.8, domain.SeverityHigh, false))
		assert.Equal(t, domain.OverallStatusPass, res.Status)
	})

	t.Run("failed_category_fails", func(t *testing.T) {
		res := validator.Aggregate(map[domain.Category]*domain.CategoryResult{}, []domain.Category{domain.CategoryTDS, domain.CategoryGST})
		assert.Equal(t, domain.OverallStatusFail, res.Status)
		assert.Equal(t, []domain.Category{domain.CategoryGST, domain.CategoryTDS}, res.FailedCategories)
		assert.Zero(t, res.AverageConfidence)
	})
}

func TestEscalationPolicy_Defaults(t *testing.T) {
	cfg := validator.NewEscalationPolicy(validator.EscalationConfig{}).Config()
	assert.Equal(t, 0.70, cfg.ConfidenceThreshold)
	assert.Equal(t, 1_000_000.0, cfg.HighValueThreshold)
	assert.Equal(t, 3, cfg.MultipleFailureThreshold)
}

func TestEscalationPolicy_Decide(t *testing.T) {
	policy := validator.NewEscalationPolicy(validator.EscalationConfig{})
	small := &invoice.Invoice{TotalAmount: 59000}

	t.Run("clean_result", func(t *testing.T) {
		res := aggregate(result("A1", domain.CheckStatusPass, 0.95, domain.SeverityLow, false))
		d := policy.Decide(res, small)
		assert.False(t, d.Escalate)
		assert.Empty(t, d.Reasons)
	})

	t.Run("low_confidence", func(t *testing.T) {
		res := aggregate(
			result("A1", domain.CheckStatusPass, 0.6, domain.SeverityLow, false),
			result("A2", domain.CheckStatusPass, 0.7, domain.SeverityLow, false),
		)
		d := policy.Decide(res, small)
		assert.True(t, d.Escalate)
		assert.Equal(t, []string{"Low confidence: 65.0% < 70.0%"}, d.Reasons)
	})

	t.Run("just_below_threshold_reads_below", func(t *testing.T) {
		res := aggregate(
			result("A1", domain.CheckStatusPass, 0.69, domain.SeverityLow, false),
			result("A2", domain.CheckStatusPass, 0.70, domain.SeverityLow, false),
		)
		d := policy.Decide(res, small)
		assert.True(t, d.Escalate)
		assert.Equal(t, []string{"Low confidence: 69.5% < 70.0%"}, d.Reasons)
	})

	t.Run("every_reason_listed", func(t *testing.T) {
		res := aggregate(
			result("A8", domain.CheckStatusFail, 0.5, domain.SeverityCritical, true),
			result("C1", domain.CheckStatusFail, 0.5, domain.SeverityMedium, false),
			result("C2", domain.CheckStatusFail, 0.5, domain.SeverityMedium, false),
		)
		res.FirstTimeVendor = true
		d := policy.Decide(res, &invoice.Invoice{TotalAmount: 2_000_000})

		assert.True(t, d.Escalate)
		assert.Equal(t, []string{
			"Low confidence: 50.0% < 70.0%",
			"High value invoice: Rs 2000000.00 exceeds Rs 1000000.00",
			"Critical issues: 1 (A8)",
			"Multiple failures: 3 checks failed",
			"First-time vendor",
			"Manual review requested by: A8",
		}, d.Reasons)
	})

	t.Run("failed_category", func(t *testing.T) {
		res := validator.Aggregate(map[domain.Category]*domain.CategoryResult{
			domain.CategoryVendor: {Category: domain.CategoryVendor, Checks: []domain.CheckResult{
				result("A1", domain.CheckStatusSkipped, 0, domain.SeverityLow, true),
			}},
		}, []domain.Category{domain.CategoryVendor})
		d := policy.Decide(res, small)
		require.NotEmpty(t, d.Reasons)
		assert.Equal(t, "Evaluation failed for: Vendor & Document", d.Reasons[0])
	})

	t.Run("invalid_input_single_reason", func(t *testing.T) {
		res := validator.InvalidInput([]string{"invoice has no line items"})
		d := policy.Decide(res, small)
		assert.True(t, d.Escalate)
		assert.Equal(t, []string{"Invalid input: invoice has no line items"}, d.Reasons)
	})

	t.Run("idempotent", func(t *testing.T) {
		res := aggregate(result("B1", domain.CheckStatusFail, 0.9, domain.SeverityCritical, true))
		assert.Equal(t, policy.Decide(res, small), policy.Decide(res, small))
	})

	t.Run("custom_thresholds", func(t *testing.T) {
		strict := validator.NewEscalationPolicy(validator.EscalationConfig{ConfidenceThreshold: 0.9, HighValueThreshold: 50000})
		res := aggregate(result("A1", domain.CheckStatusPass, 0.85, domain.SeverityLow, false))
		d := strict.Decide(res, small)
		assert.Len(t, d.Reasons, 2)
	})
}

func TestEscalation_EndToEnd(t *testing.T) {
	ref := testutil.Snapshot(t)
	engine := newEngine(t, validator.EngineOptions{})
	policy := validator.NewEscalationPolicy(validator.EscalationConfig{})

	t.Run("high_value_alone_escalates", func(t *testing.T) {
		inv := testutil.Invoice(t, "high_value")
		res, err := engine.Run(context.Background(), inv, ref, invoice.History{Known: true})
		require.NoError(t, err)
		require.Equal(t, domain.OverallStatusPass, res.Status)
		require.Equal(t, res.TotalChecks, res.Passed)

		d := policy.Decide(res, inv)
		assert.True(t, d.Escalate)
		assert.Equal(t, []string{"High value invoice: Rs 1180000.00 exceeds Rs 1000000.00"}, d.Reasons)
	})

	t.Run("suspended_vendor_escalates", func(t *testing.T) {
		inv := testutil.Invoice(t, "suspended_vendor")
		res, err := engine.Run(context.Background(), inv, ref, invoice.History{})
		require.NoError(t, err)

		d := policy.Decide(res, inv)
		assert.True(t, d.Escalate)
		var critical string
		for _, r := range d.Reasons {
			if strings.HasPrefix(r, "Critical issues") {
				critical = r
			}
		}
		assert.Contains(t, critical, "A8")

		report := domain.NewReport(res, d)
		assert.Equal(t, domain.VerdictEscalate, report.Verdict)
	})

	t.Run("clean_invoice_passes", func(t *testing.T) {
		inv := testutil.Invoice(t, "valid")
		res, err := engine.Run(context.Background(), inv, ref, invoice.History{})
		require.NoError(t, err)
		report := domain.NewReport(res, policy.Decide(res, inv))
		assert.Equal(t, domain.VerdictPass, report.Verdict)
	})
}
