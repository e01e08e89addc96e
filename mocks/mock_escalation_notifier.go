package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gstaudit/internal/domain"
)

// MockEscalationNotifier is a mock implementation of port.EscalationNotifier.
type MockEscalationNotifier struct {
	mock.Mock
}

func (m *MockEscalationNotifier) NotifyEscalation(ctx context.Context, report *domain.Report) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
