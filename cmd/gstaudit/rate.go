package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rateCmd = &cobra.Command{
	Use:   "rate CODE",
	Short: "Look up the GST rate for an HSN/SAC code",
	Long: `Print the GST rate in force for an HSN or SAC code on a date. When no
rate window covers the date, the closest earlier record is shown and marked.`,
	Example: `  gstaudit rate 995411
  gstaudit rate 995411 --date 2018-06-30`,
	Args: cobra.ExactArgs(1),
	RunE: runRate,
}

var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Load the reference datasets and print their sizes and version",
	Args:  cobra.NoArgs,
	RunE:  runReference,
}

func init() {
	rootCmd.AddCommand(rateCmd)
	rootCmd.AddCommand(referenceCmd)

	rateCmd.Flags().String("date", "", "As-of date (format: YYYY-MM-DD, default: today)")
}

func runRate(cmd *cobra.Command, args []string) error {
	dateStr, _ := cmd.Flags().GetString("date")
	asOf := time.Now().UTC()
	if dateStr != "" {
		d, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			return fmt.Errorf("invalid date format. Use YYYY-MM-DD: %w", err)
		}
		asOf = d
	}

	a, cleanup, err := setup(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	lookup, err := a.References.LookupRate(args[0], asOf)
	if err != nil {
		return err
	}
	rec := lookup.Record
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s\n", rec.Code, rec.Description)
	fmt.Fprintf(out, "  as of %s: CGST %g%% + SGST %g%% / IGST %g%% (total %g%%)\n",
		asOf.Format(time.DateOnly), rec.CGST, rec.SGST, rec.IGST, rec.Total())
	to := "open"
	if rec.EffectiveTo != nil {
		to = rec.EffectiveTo.Format(time.DateOnly)
	}
	fmt.Fprintf(out, "  effective %s to %s", rec.EffectiveFrom.Format(time.DateOnly), to)
	if lookup.Historical {
		fmt.Fprint(out, " (no window covers the date)")
	}
	fmt.Fprintln(out)
	return nil
}

func runReference(cmd *cobra.Command, _ []string) error {
	a, cleanup, err := setup(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(a.References.Current().Stats())
}
