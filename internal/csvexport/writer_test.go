package csvexport

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/domain"
)

var runID = uuid.MustParse("6f1c2a8e-0b1d-4c55-9a43-2f7e0d9c1a10")

func sampleReport() *domain.Report {
	res := &domain.ValidationResult{
		RunID:     runID,
		InvoiceID: "TS/2024/118",
		Timestamp: time.Date(2024, 12, 1, 9, 30, 0, 0, time.UTC),
		Status:    domain.OverallStatusFail,
		Categories: map[domain.Category]*domain.CategoryResult{
			domain.CategoryGST: {Category: domain.CategoryGST, Checks: []domain.CheckResult{
				domain.NewCheckResult(domain.CheckResult{
					CheckID: "B1", Name: "HSN/SAC Validity", Category: domain.CategoryGST,
					Status: domain.CheckStatusPass, Confidence: 0.95, Severity: domain.SeverityLow,
					Reasoning: "all codes known",
				}),
			}},
			domain.CategoryVendor: {Category: domain.CategoryVendor, Checks: []domain.CheckResult{
				domain.NewCheckResult(domain.CheckResult{
					CheckID: "A8", Name: "Vendor Status", Category: domain.CategoryVendor,
					Status: domain.CheckStatusFail, Confidence: 1, Severity: domain.SeverityCritical,
					RequiresReview: true, Reasoning: "vendor is SUSPENDED, \"blocked\"",
				}),
			}},
		},
		TotalChecks:       2,
		Passed:            1,
		Failed:            1,
		AverageConfidence: 0.96,
		RequiresReview:    true,
		ReferenceVersion:  "v1",
	}
	res.CriticalIssues = []domain.CheckResult{res.Categories[domain.CategoryVendor].Checks[0]}
	return domain.NewReport(res, domain.EscalationDecision{
		Escalate: true,
		Reasons:  []string{"Critical issues: 1 (A8)", "Manual review requested by: A8"},
	})
}

func readAll(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	rows, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteSummaryHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteSummaryHeader())
	w.Flush()
	require.NoError(t, w.Error())

	rows := readAll(t, &buf)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 17)
	assert.Equal(t, "Run ID", rows[0][0])
	assert.Equal(t, "Verdict", rows[0][2])
	assert.Equal(t, "Validated At", rows[0][16])
}

func TestWriteReports(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteSummaryHeader())
	require.NoError(t, w.WriteReports([]*domain.Report{sampleReport()}))
	w.Flush()
	require.NoError(t, w.Error())

	rows := readAll(t, &buf)
	require.Len(t, rows, 2)
	row := rows[1]
	assert.Equal(t, runID.String(), row[0])
	assert.Equal(t, "TS/2024/118", row[1])
	assert.Equal(t, "ESCALATE", row[2])
	assert.Equal(t, "FAIL", row[3])
	assert.Equal(t, "Yes", row[4])
	assert.Equal(t, "2", row[5])
	assert.Equal(t, "1", row[6])
	assert.Equal(t, "1", row[7])
	assert.Equal(t, "0", row[8])
	assert.Equal(t, "0.96", row[10])
	assert.Equal(t, "No", row[12])
	assert.Equal(t, "A8", row[13])
	assert.Equal(t, "Critical issues: 1 (A8); Manual review requested by: A8", row[14])
	assert.Equal(t, "v1", row[15])
	assert.Equal(t, "2024-12-01T09:30:00Z", row[16])
}

func TestWriteChecks(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteCheckHeader())
	require.NoError(t, w.WriteChecks([]*domain.Report{sampleReport()}))
	w.Flush()
	require.NoError(t, w.Error())

	rows := readAll(t, &buf)
	require.Len(t, rows, 3)
	assert.Len(t, rows[0], 11)

	// vendor checks come before GST checks
	assert.Equal(t, "A8", rows[1][2])
	assert.Equal(t, "FAIL", rows[1][5])
	assert.Equal(t, "1.00", rows[1][7])
	assert.Equal(t, "Yes", rows[1][8])
	assert.Equal(t, `vendor is SUSPENDED, "blocked"`, rows[1][10])

	assert.Equal(t, "B1", rows[2][2])
	assert.Equal(t, "0.95", rows[2][7])
	assert.Equal(t, domain.SourceRuleBased, rows[2][9])
}

func TestWriteReports_Empty(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteReports(nil))
	w.Flush()
	assert.Zero(t, buf.Len())
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Q3 Purchase Invoices", "Q3_Purchase_Invoices"},
		{"invoice number", "TS/2024/118", "TS_2024_118"},
		{"special chars", "FY 2024-25 / Q3 (Oct–Dec)", "FY_2024-25_Q3_Oct_Dec"},
		{"unicode", "कंपनी Invoices", "Invoices"},
		{"consecutive underscores collapsed", "test___batch", "test_batch"},
		{"leading/trailing cleaned", "  hello  ", "hello"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestBuildFilename(t *testing.T) {
	at := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "TS_2024_118_2024-12-01.csv", BuildFilename("TS/2024/118", at))
}
