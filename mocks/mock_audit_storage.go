package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gstaudit/internal/port"
)

// MockAuditStorage is a mock implementation of port.AuditStorage.
type MockAuditStorage struct {
	mock.Mock
}

func (m *MockAuditStorage) FetchReference(ctx context.Context, bucket, key string) ([]byte, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockAuditStorage) ArchiveReport(ctx context.Context, obj port.ReportObject) (*port.ArchivedReport, error) {
	args := m.Called(ctx, obj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ArchivedReport), args.Error(1)
}

func (m *MockAuditStorage) ReportURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, ttl)
	return args.String(0), args.Error(1)
}
