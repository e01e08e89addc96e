package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gstaudit/internal/refdata"
)

// MockReferenceService is a mock implementation of service.ReferenceService.
type MockReferenceService struct {
	mock.Mock
}

func (m *MockReferenceService) Reload(ctx context.Context) (refdata.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(refdata.Stats), args.Error(1)
}

func (m *MockReferenceService) Current() *refdata.Snapshot {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*refdata.Snapshot)
}

func (m *MockReferenceService) LookupRate(code string, asOf time.Time) (refdata.RateLookup, error) {
	args := m.Called(code, asOf)
	return args.Get(0).(refdata.RateLookup), args.Error(1)
}
