package email_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"gstaudit/internal/domain"
	"gstaudit/internal/email"
)

func TestEscalationMessage(t *testing.T) {
	critical := domain.CheckResult{CheckID: "A8", Name: "Vendor Status", Reasoning: "vendor suspended since 2024-06-01"}
	report := domain.NewReport(&domain.ValidationResult{
		RunID:             uuid.MustParse("6f1c2b1e-0000-4000-8000-000000000001"),
		InvoiceID:         "SG-7781",
		Status:            domain.OverallStatusFail,
		Failed:            2,
		AverageConfidence: 0.84,
		CriticalIssues:    []domain.CheckResult{critical},
	}, domain.EscalationDecision{Escalate: true, Reasons: []string{"Critical issues: 1 (A8)", "Amount <Rs 1> & more"}})

	msg := email.EscalationMessage(report)
	assert.Equal(t, "[GST Audit] Review required: invoice SG-7781 (FAIL)", msg.Subject)
	assert.Contains(t, msg.Text, "Average confidence: 84%")
	assert.Contains(t, msg.Text, "- Critical issues: 1 (A8)")
	assert.Contains(t, msg.Text, "- A8 Vendor Status: vendor suspended since 2024-06-01")
	assert.Contains(t, msg.HTML, "<li>Amount &lt;Rs 1&gt; &amp; more</li>")
	assert.Contains(t, msg.HTML, "6f1c2b1e-0000-4000-8000-000000000001")
}
