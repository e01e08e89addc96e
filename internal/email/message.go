// Package email renders escalation notices. Subpackages deliver them.
package email

import (
	"fmt"
	"html"
	"strings"

	"gstaudit/internal/domain"
)

// Message is a rendered e-mail.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// EscalationMessage renders the notice sent when a report is escalated.
func EscalationMessage(report *domain.Report) Message {
	res := report.Result
	subject := fmt.Sprintf("[GST Audit] Review required: invoice %s (%s)", res.InvoiceID, res.Status)

	var text strings.Builder
	fmt.Fprintf(&text, "Invoice %s needs manual review.\n\n", res.InvoiceID)
	fmt.Fprintf(&text, "Run: %s\nStatus: %s\nChecks: %d passed, %d failed, %d warnings\nAverage confidence: %.0f%%\n\n",
		res.RunID, res.Status, res.Passed, res.Failed, res.Warnings, res.AverageConfidence*100)
	text.WriteString("Escalation reasons:\n")
	for _, r := range report.Escalation.Reasons {
		fmt.Fprintf(&text, "- %s\n", r)
	}
	if len(res.CriticalIssues) > 0 {
		text.WriteString("\nCritical issues:\n")
		for _, c := range res.CriticalIssues {
			fmt.Fprintf(&text, "- %s %s: %s\n", c.CheckID, c.Name, c.Reasoning)
		}
	}

	var body strings.Builder
	body.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
`)
	fmt.Fprintf(&body, "  <h2 style=\"color: #333;\">Invoice %s needs review</h2>\n", html.EscapeString(res.InvoiceID))
	fmt.Fprintf(&body, "  <p>Run %s finished with status <strong>%s</strong> (%d failed, %d warnings).</p>\n",
		res.RunID, res.Status, res.Failed, res.Warnings)
	body.WriteString("  <ul>\n")
	for _, r := range report.Escalation.Reasons {
		fmt.Fprintf(&body, "    <li>%s</li>\n", html.EscapeString(r))
	}
	body.WriteString("  </ul>\n")
	body.WriteString(`  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">GST Audit - invoice compliance checks</p>
</body>
</html>`)

	return Message{Subject: subject, Text: text.String(), HTML: body.String()}
}
