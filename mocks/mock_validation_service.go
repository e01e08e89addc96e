package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"gstaudit/internal/domain"
	"gstaudit/internal/service"
	"gstaudit/internal/validator/invoice"
)

// MockValidationService is a mock implementation of service.ValidationService.
type MockValidationService struct {
	mock.Mock
}

func (m *MockValidationService) Validate(ctx context.Context, inv *invoice.Invoice) (*domain.Report, error) {
	args := m.Called(ctx, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func (m *MockValidationService) ValidateBatch(ctx context.Context, invs []*invoice.Invoice) (*service.BatchReport, error) {
	args := m.Called(ctx, invs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchReport), args.Error(1)
}

func (m *MockValidationService) Get(ctx context.Context, runID uuid.UUID) (*domain.Report, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func (m *MockValidationService) ListByInvoice(ctx context.Context, invoiceNumber string, limit int) ([]*domain.Report, error) {
	args := m.Called(ctx, invoiceNumber, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Report), args.Error(1)
}
