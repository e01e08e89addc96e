package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gstaudit/internal/csvexport"
	"gstaudit/internal/domain"
)

var batchCmd = &cobra.Command{
	Use:   "batch [invoice.json|dir]...",
	Short: "Validate invoices concurrently and summarize the batch",
	Long: `Validate every invoice in the given files and directories concurrently
(bounded by GSTAUDIT_VALIDATION_BATCH_CONCURRENCY) and print the batch report.

With --csv the reports are also written as a spreadsheet-friendly CSV: one row
per invoice, or one row per check with --detail checks.`,
	Example: `  gstaudit batch invoices/
  gstaudit batch invoices/ --csv out.csv --detail checks`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("csv", "", "Also write the reports to this CSV file")
	batchCmd.Flags().String("detail", "summary", "CSV detail: summary or checks")
	batchCmd.Flags().Bool("summary-only", false, "Print only the batch summary")
}

func runBatch(cmd *cobra.Command, args []string) error {
	csvPath, _ := cmd.Flags().GetString("csv")
	detail, _ := cmd.Flags().GetString("detail")
	summaryOnly, _ := cmd.Flags().GetBool("summary-only")
	if detail != "summary" && detail != "checks" {
		return fmt.Errorf("detail must be summary or checks")
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

	batch, err := a.Validation.ValidateBatch(ctx, invs)
	if err != nil {
		return err
	}

	if csvPath != "" {
		if err := writeBatchCSV(csvPath, batch.Reports(), detail == "checks"); err != nil {
			return fmt.Errorf("writing %s: %w", csvPath, err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if summaryOnly {
		return enc.Encode(batch.Summary)
	}
	return enc.Encode(batch)
}

func writeBatchCSV(path string, reports []*domain.Report, checks bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := f.Write(csvexport.BOM); err != nil {
		return err
	}
	w := csvexport.NewWriter(f)
	if checks {
		if err := w.WriteCheckHeader(); err != nil {
			return err
		}
		if err := w.WriteChecks(reports); err != nil {
			return err
		}
	} else {
		if err := w.WriteSummaryHeader(); err != nil {
			return err
		}
		if err := w.WriteReports(reports); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
