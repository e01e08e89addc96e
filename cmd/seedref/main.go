// Command seedref loads the government HSN/SAC summary workbook into the
// hsn_sac_codes and gst_rates tables read by GSTAUDIT_REFERENCE_SOURCE=postgres.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gstaudit/internal/config"
	"gstaudit/internal/logger"
	"gstaudit/internal/refdata"
	"gstaudit/internal/repository/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "seedref WORKBOOK.xlsx",
	Short: "Load the HSN/SAC workbook into PostgreSQL",
	Long: `Read the HSN (goods) and SAC_Master (services) sheets of the GST HSN/SAC
summary workbook and replace the code master in PostgreSQL. With --rates the
first rate of every code is also written to the rate schedule, effective from
the GST launch date; this replaces any curated rate history.`,
	Example: `  seedref "GST_HSN Code summary.xlsx" --dry-run
  seedref "GST_HSN Code summary.xlsx" --rates`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().Bool("rates", false, "Also replace the gst_rates table")
	rootCmd.Flags().Bool("dry-run", false, "Parse the workbook and report counts without touching the database")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	withRates, _ := cmd.Flags().GetBool("rates")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	wb, err := refdata.ParseWorkbook(f)
	if err != nil {
		return err
	}
	log.Info("workbook parsed", zap.String("path", args[0]),
		zap.Int("codes", len(wb.Codes)), zap.Int("rates", len(wb.Rates)))
	if dryRun {
		return nil
	}

	ctx := cmd.Context()
	db, err := postgres.NewDB(ctx, &cfg.DB, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	repo := postgres.NewReferenceRepo(db)

	n, err := repo.ReplaceCodes(ctx, wb.CodeRows())
	if err != nil {
		return err
	}
	log.Info("hsn_sac_codes replaced", zap.Int("rows", n))

	if withRates {
		n, err := repo.ReplaceRates(ctx, wb.RateRows())
		if err != nil {
			return err
		}
		log.Info("gst_rates replaced", zap.Int("rows", n))
	}
	return nil
}
