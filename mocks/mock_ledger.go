package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gstaudit/internal/ledger"
	"gstaudit/internal/validator/invoice"
)

// MockLedger is a mock implementation of ledger.Ledger.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) History(ctx context.Context, k ledger.Key) (invoice.History, error) {
	args := m.Called(ctx, k)
	return args.Get(0).(invoice.History), args.Error(1)
}

func (m *MockLedger) Record(ctx context.Context, k ledger.Key, amount float64) error {
	args := m.Called(ctx, k, amount)
	return args.Error(0)
}
