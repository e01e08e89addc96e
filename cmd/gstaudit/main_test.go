package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/config"
	"gstaudit/internal/csvexport"
	"gstaudit/internal/testutil"
)

// execute runs the root command with args and resets every flag afterwards,
// since the command tree is package state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestReadInvoices(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`[{"invoice_number":"B1"},{"invoice_number":"B2"}]`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte(` {"invoice_number":"A1"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o600))

	invs, err := readInvoices([]string{dir})
	require.NoError(t, err)
	var numbers []string
	for _, inv := range invs {
		numbers = append(numbers, inv.InvoiceNumber)
	}
	assert.Equal(t, []string{"A1", "B1", "B2"}, numbers)

	t.Run("bad_json", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"invoice_number":`), 0o600))
		_, err := readInvoices([]string{p})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.json")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := readInvoices([]string{filepath.Join(t.TempDir(), "nope.json")})
		assert.Error(t, err)
	})
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--reference-dir", testutil.ReferenceDir(),
		"--output", "text", testutil.InvoicePath("valid"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "TS/2024/118  "), out)
	assert.Contains(t, out, "checks (")
}

func TestValidateCommand_JSON(t *testing.T) {
	out, err := execute(t, "validate", "--reference-dir", testutil.ReferenceDir(), testutil.InvoicePath("suspended_vendor"))
	require.NoError(t, err)
	assert.Contains(t, out, `"verdict": "ESCALATE"`)
}

func TestValidateCommand_Strict(t *testing.T) {
	_, err := execute(t, "validate", "--reference-dir", testutil.ReferenceDir(), "--strict", testutil.InvoicePath("suspended_vendor"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 invoices did not pass")
}

func TestValidateCommand_BadOutput(t *testing.T) {
	_, err := execute(t, "validate", "--output", "xml", testutil.InvoicePath("valid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestBatchCommand_CSV(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "out.csv")
	out, err := execute(t, "batch", "--reference-dir", testutil.ReferenceDir(), "--summary-only", "--csv", csvPath,
		testutil.InvoicePath("valid"), testutil.InvoicePath("suspended_vendor"))
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 2`)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, csvexport.BOM))
	rows, err := csv.NewReader(bytes.NewReader(data[len(csvexport.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Run ID", rows[0][0])
}

func TestRateCommand(t *testing.T) {
	out, err := execute(t, "rate", "--reference-dir", testutil.ReferenceDir(), "--date", "2018-06-30", "995411")
	require.NoError(t, err)
	assert.Contains(t, out, "total 18%")
	assert.NotContains(t, out, "no window covers")

	_, err = execute(t, "rate", "--reference-dir", testutil.ReferenceDir(), "--date", "30/06/2018", "995411")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "erp-connector")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}

func TestApplyStore(t *testing.T) {
	tests := []struct {
		value    string
		provider string
		path     string
		wantErr  bool
	}{
		{value: "memory", provider: "memory"},
		{value: "none", provider: "none"},
		{value: "sqlite:///tmp/runs.db", provider: "sqlite", path: "/tmp/runs.db"},
		{value: "sqlite://runs.db", provider: "sqlite", path: "runs.db"},
		{value: "sqlite://", wantErr: true},
		{value: "mysql", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg := &config.Config{}
			err := applyStore(cfg, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, cfg.Store.Provider)
			assert.Equal(t, tt.path, cfg.Store.SQLitePath)
		})
	}
}

func TestValidateCommand_SQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	_, err := execute(t, "validate", "--reference-dir", testutil.ReferenceDir(),
		"--store", "sqlite://"+dbPath, testutil.InvoicePath("valid"))
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}
