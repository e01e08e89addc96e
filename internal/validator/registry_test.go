package validator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstaudit/internal/domain"
	"gstaudit/internal/validator"
	"gstaudit/internal/validator/invoice"
)

func constant(id invoice.CheckID, v invoice.Verdict) *invoice.Check {
	return invoice.NewCheck(id, "constant "+string(id), domain.SeverityMedium,
		func(context.Context, *invoice.EvalContext) invoice.Verdict { return v })
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := validator.DefaultRegistry()
	require.NoError(t, err)
	assert.Equal(t, 58, reg.Len())

	all := reg.All()
	require.Len(t, all, 58)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].ID.Less(all[i].ID))
	}

	gst := reg.Category(domain.CategoryGST)
	require.Len(t, gst, 18)
	assert.Equal(t, invoice.CheckID("B1"), gst[0].ID)
	assert.Equal(t, invoice.CheckID("B18"), gst[17].ID)

	c, ok := reg.Get("D6")
	require.True(t, ok)
	assert.Equal(t, "Aggregate Threshold", c.Name)
}

func TestNewRegistry_Errors(t *testing.T) {
	t.Run("duplicate_id", func(t *testing.T) {
		checks := append(invoice.AllChecks(), constant("A1", invoice.Verdict{}))
		_, err := validator.NewRegistry(checks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "check A1 registered twice")
	})

	t.Run("missing_id", func(t *testing.T) {
		var checks []*invoice.Check
		for _, c := range invoice.AllChecks() {
			if c.ID != "B10" {
				checks = append(checks, c)
			}
		}
		_, err := validator.NewRegistry(checks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no evaluator for check B10")
	})

	t.Run("unknown_id", func(t *testing.T) {
		checks := append(invoice.AllChecks(), constant("F1", invoice.Verdict{}))
		_, err := validator.NewRegistry(checks)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `check "F1" is not part of the battery`)
	})
}
