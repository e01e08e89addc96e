package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gstaudit/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// summaryColumns is the header of the one-row-per-invoice export.
var summaryColumns = []string{
	"Run ID",
	"Invoice Number",
	"Verdict",
	"Status",
	"Escalate",
	"Total Checks",
	"Passed",
	"Failed",
	"Warnings",
	"Skipped",
	"Average Confidence",
	"Requires Review",
	"First-Time Vendor",
	"Critical Issues",
	"Escalation Reasons",
	"Reference Version",
	"Validated At",
}

// checkColumns is the header of the one-row-per-check export.
var checkColumns = []string{
	"Run ID",
	"Invoice Number",
	"Check ID",
	"Check Name",
	"Category",
	"Status",
	"Severity",
	"Confidence",
	"Requires Review",
	"Source",
	"Reasoning",
}

// Writer wraps csv.Writer for exporting validation reports as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteSummaryHeader writes the header row of the per-invoice export.
func (w *Writer) WriteSummaryHeader() error {
	return w.csv.Write(summaryColumns)
}

// WriteCheckHeader writes the header row of the per-check export.
func (w *Writer) WriteCheckHeader() error {
	return w.csv.Write(checkColumns)
}

// WriteReports writes one summary row per report.
func (w *Writer) WriteReports(reports []*domain.Report) error {
	for _, rep := range reports {
		if err := w.csv.Write(summaryRow(rep)); err != nil {
			return err
		}
	}
	return nil
}

// WriteChecks writes one row per check result of every report, in category order.
func (w *Writer) WriteChecks(reports []*domain.Report) error {
	for _, rep := range reports {
		res := rep.Result
		for _, c := range res.Checks() {
			row := []string{
				res.RunID.String(),
				res.InvoiceID,
				c.CheckID,
				c.Name,
				c.Category.Name(),
				string(c.Status),
				string(c.Severity),
				formatConfidence(c.Confidence),
				formatBool(c.RequiresReview),
				c.Source,
				c.Reasoning,
			}
			if err := w.csv.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func summaryRow(rep *domain.Report) []string {
	res := rep.Result
	critical := make([]string, len(res.CriticalIssues))
	for i, c := range res.CriticalIssues {
		critical[i] = c.CheckID
	}
	return []string{
		res.RunID.String(),
		res.InvoiceID,
		rep.Verdict,
		string(res.Status),
		formatBool(rep.Escalation.Escalate),
		strconv.Itoa(res.TotalChecks),
		strconv.Itoa(res.Passed),
		strconv.Itoa(res.Failed),
		strconv.Itoa(res.Warnings),
		strconv.Itoa(res.Skipped),
		formatConfidence(res.AverageConfidence),
		formatBool(res.RequiresReview),
		formatBool(res.FirstTimeVendor),
		strings.Join(critical, ", "),
		strings.Join(rep.Escalation.Reasons, "; "),
		res.ReferenceVersion,
		res.Timestamp.Format(time.RFC3339),
	}
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition or an object key.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename.
// Format: {sanitized_name}_{YYYY-MM-DD}.csv
func BuildFilename(name string, at time.Time) string {
	return fmt.Sprintf("%s_%s.csv", SanitizeFilename(name), at.Format("2006-01-02"))
}
