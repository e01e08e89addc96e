package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gstaudit/internal/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [invoice.json]...",
	Short: "Validate one or more invoices",
	Long: `Run the full check battery against each invoice and print its report.

Each argument is a JSON file holding one invoice or an array of invoices, or a
directory of such files. Invoices are validated one after another, so
duplicates and year-to-date totals build up across the run.`,
	Example: `  # Print the full report as JSON
  gstaudit validate testdata/invoices/valid.json

  # Human-readable summary, non-zero exit unless every invoice passes
  gstaudit validate --output text --strict invoices/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("output", "o", "json", "Output format: json or text")
	validateCmd.Flags().Bool("strict", false, "Exit with an error unless every invoice passes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	strict, _ := cmd.Flags().GetBool("strict")
	if output != "json" && output != "text" {
		return fmt.Errorf("unknown output format %q", output)
	}

	invs, err := readInvoices(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	w := cmd.OutOrStdout()
	notPassed := 0
	for _, inv := range invs {
		report, err := a.Validation.Validate(ctx, inv)
		if err != nil {
			return fmt.Errorf("validating %s: %w", inv.InvoiceNumber, err)
		}
		if report.Verdict != domain.VerdictPass {
			notPassed++
		}
		if output == "text" {
			writeReportText(w, report)
			continue
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}

	if strict && notPassed > 0 {
		return fmt.Errorf("%d of %d invoices did not pass", notPassed, len(invs))
	}
	return nil
}

// writeReportText prints a short summary of a report followed by the
// escalation reasons and every check that did not pass.
func writeReportText(w io.Writer, r *domain.Report) {
	res := r.Result
	fmt.Fprintf(w, "%s  %s  %d checks (%d passed, %d failed, %d warnings, %d skipped)  confidence %.2f\n",
		res.InvoiceID, r.Verdict, res.TotalChecks, res.Passed, res.Failed, res.Warnings, res.Skipped, res.AverageConfidence)
	for _, msg := range res.InputErrors {
		fmt.Fprintf(w, "  input: %s\n", msg)
	}
	for _, reason := range r.Escalation.Reasons {
		fmt.Fprintf(w, "  escalate: %s\n", reason)
	}
	for _, c := range res.Checks() {
		if c.Status == domain.CheckStatusPass {
			continue
		}
		fmt.Fprintf(w, "  %-4s %-8s %-8s %s: %s\n", c.CheckID, c.Status, c.Severity, c.Name, c.Reasoning)
	}
}
