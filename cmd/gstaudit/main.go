// Command gstaudit runs invoice compliance checks from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gstaudit/internal/app"
	"gstaudit/internal/config"
	"gstaudit/internal/logger"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gstaudit",
	Short: "Compliance checks for Indian GST/TDS invoices",
	Long: `gstaudit validates normalized invoices against the vendor registry,
GST rate schedule, HSN/SAC master, TDS sections and company policy, and
decides whether each invoice needs human review.

Configuration is read from GSTAUDIT_* environment variables and an optional
.env file, the same as the API server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("reference-dir", "", "Load reference data from this directory (overrides GSTAUDIT_REFERENCE_DIR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("store", "", "Persist reports: none, memory, postgres or sqlite://PATH")
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

// loadConfig reads configuration and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("reference-dir"); dir != "" {
		cfg.Reference.Source = "dir"
		cfg.Reference.Dir = dir
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if store, _ := cmd.Flags().GetString("store"); store != "" {
		if err := applyStore(cfg, store); err != nil {
			return nil, err
		}
	}
	// Reports go to stdout; logs stay on stderr in console form.
	cfg.Log.Format = "console"
	return cfg, nil
}

// applyStore sets the report store from a --store value. A sqlite store is
// given as sqlite://PATH.
func applyStore(cfg *config.Config, value string) error {
	if path, ok := strings.CutPrefix(value, "sqlite://"); ok {
		if path == "" {
			return fmt.Errorf("--store %q: missing database path", value)
		}
		cfg.Store.Provider = "sqlite"
		cfg.Store.SQLitePath = path
		return nil
	}
	switch value {
	case "none", "memory", "postgres":
		cfg.Store.Provider = value
		return nil
	}
	return fmt.Errorf("--store %q: want none, memory, postgres or sqlite://PATH", value)
}

// setup builds the application for a command. The returned cleanup closes it.
func setup(ctx context.Context, cmd *cobra.Command) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	zl := logger.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	a, err := app.New(ctx, cfg, zl.Named("cli"))
	if err != nil {
		_ = zl.Sync()
		return nil, nil, err
	}
	return a, func() {
		if err := a.Close(); err != nil {
			zl.Warn("closing resources", zap.Error(err))
		}
		_ = zl.Sync()
	}, nil
}
