// Package testutil loads the reference datasets and sample invoices under
// testdata/ for package tests.
package testutil

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gstaudit/internal/refdata"
	"gstaudit/internal/validator/invoice"
)

// RunDate is the as-of date the sample invoices are written against.
var RunDate = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

var (
	snapOnce sync.Once
	snap     *refdata.Snapshot
	snapErr  error
)

// Root returns the repository root.
func Root() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// ReferenceDir is the directory holding the five reference datasets.
func ReferenceDir() string {
	return filepath.Join(Root(), "testdata", "reference")
}

// Snapshot loads the reference datasets once per test binary.
func Snapshot(t testing.TB) *refdata.Snapshot {
	t.Helper()
	snapOnce.Do(func() {
		dir := ReferenceDir()
		snap, snapErr = refdata.NewLoader(refdata.FSSource{FS: os.DirFS(dir), Name: dir}, nil).Load(context.Background())
	})
	require.NoError(t, snapErr)
	return snap
}

// Invoice decodes testdata/invoices/<name>.json. Every call returns a fresh copy.
func Invoice(t testing.TB, name string) *invoice.Invoice {
	t.Helper()
	data, err := os.ReadFile(InvoicePath(name))
	require.NoError(t, err)
	var inv invoice.Invoice
	require.NoError(t, json.Unmarshal(data, &inv))
	return &inv
}

// InvoicePath is the path of a sample invoice.
func InvoicePath(name string) string {
	return filepath.Join(Root(), "testdata", "invoices", name+".json")
}

// FixedClock returns a clock stopped at RunDate.
func FixedClock() func() time.Time {
	return func() time.Time { return RunDate }
}
