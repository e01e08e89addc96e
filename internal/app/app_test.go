package app_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gstaudit/internal/app"
	"gstaudit/internal/config"
	"gstaudit/internal/domain"
	"gstaudit/internal/testutil"
	"gstaudit/internal/validator/invoice"
)

func testConfig(store string) *config.Config {
	return &config.Config{
		JWT:       config.JWTConfig{Secret: "s3cret", Issuer: "gstaudit"},
		Email:     config.EmailConfig{Provider: "noop"},
		Reference: config.ReferenceConfig{Source: "dir", Dir: testutil.ReferenceDir()},
		Ledger:    config.LedgerConfig{Provider: "memory"},
		Store:     config.StoreConfig{Provider: store, SQLitePath: ":memory:"},
		Validation: config.ValidationConfig{
			ConfidenceThreshold:      0.70,
			HighValueThreshold:       1_000_000,
			MultipleFailureThreshold: 3,
		},
	}
}

func TestNew_ValidatesAndStores(t *testing.T) {
	for _, store := range []string{"memory", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			ctx := context.Background()
			a, err := app.New(ctx, testConfig(store), zap.NewNop())
			require.NoError(t, err)
			defer func() { assert.NoError(t, a.Close()) }()

			require.NotNil(t, a.References.Current())
			assert.Nil(t, a.DB)

			report, err := a.Validation.Validate(ctx, testutil.Invoice(t, "valid"))
			require.NoError(t, err)
			assert.Contains(t, []string{domain.VerdictPass, domain.VerdictFail, domain.VerdictEscalate}, report.Verdict)

			got, err := a.Validation.Get(ctx, report.Result.RunID)
			require.NoError(t, err)
			assert.Equal(t, report.Result.InvoiceID, got.Result.InvoiceID)
		})
	}
}

func TestNew_NoStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig("none")
	cfg.Ledger.Provider = "none"
	a, err := app.New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Validation.Validate(ctx, testutil.Invoice(t, "valid"))
	require.NoError(t, err)
	_, err = a.Validation.Get(ctx, report.Result.RunID)
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}

func TestNew_MissingReferenceData(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Reference.Dir = t.TempDir()

	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReferenceUnavailable)
}

func TestNew_ComplexInvoiceWithoutReasonerDegrades(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		t.Run(fmt.Sprintf("reasoning_enabled_%t", enabled), func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig("memory")
			cfg.Reasoning.Enabled = enabled
			a, err := app.New(ctx, cfg, zap.NewNop())
			require.NoError(t, err)
			defer a.Close()

			inv := testutil.Invoice(t, "valid")
			inv.LineItems[0].Description = "IT consulting services bundle with transport"
			inv.ReverseCharge = true

			report, err := a.Validation.Validate(ctx, inv)
			require.NoError(t, err)

			b5, ok := report.Result.Check("B5")
			require.True(t, ok)
			assert.Equal(t, domain.CheckStatusWarning, b5.Status)
			assert.Equal(t, domain.SourceFallback, b5.Source)
			assert.True(t, b5.RequiresReview)
			assert.LessOrEqual(t, b5.Confidence, 0.85*invoice.DegradeFactor+1e-9)

			b10, ok := report.Result.Check("B10")
			require.True(t, ok)
			assert.Equal(t, domain.SourceFallback, b10.Source)
			assert.True(t, b10.RequiresReview)
			assert.True(t, report.Escalation.Escalate)
		})
	}
}

func TestNew_SimpleInvoiceStaysRuleBased(t *testing.T) {
	ctx := context.Background()
	a, err := app.New(ctx, testConfig("memory"), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	report, err := a.Validation.Validate(ctx, testutil.Invoice(t, "valid"))
	require.NoError(t, err)
	b5, ok := report.Result.Check("B5")
	require.True(t, ok)
	assert.Equal(t, domain.SourceRuleBased, b5.Source)
}
