package service_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gstaudit/internal/refdata"
	"gstaudit/internal/service"
	"gstaudit/internal/testutil"
	"gstaudit/internal/validator"
)

func newReferenceService(t *testing.T) service.ReferenceService {
	t.Helper()
	dir := testutil.ReferenceDir()
	refs := service.NewReferenceService(refdata.NewLoader(refdata.FSSource{FS: os.DirFS(dir), Name: dir}, nil), zap.NewNop())
	_, err := refs.Reload(context.Background())
	require.NoError(t, err)
	return refs
}

// newDeps returns deps with a real engine, policy and reference snapshot.
func newDeps(t *testing.T) service.ValidationDeps {
	t.Helper()
	reg, err := validator.DefaultRegistry()
	require.NoError(t, err)
	return service.ValidationDeps{
		Engine:     validator.NewEngine(reg, validator.EngineOptions{Clock: testutil.FixedClock()}, zap.NewNop()),
		Policy:     validator.NewEscalationPolicy(validator.EscalationConfig{}),
		References: newReferenceService(t),
		Now:        testutil.FixedClock(),
	}
}
