package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
	"github.com/joseph-ayodele/invoice-analyzer/internal/repository"
)

// MockRunRepository is a mock implementation of repository.RunRepository.
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) StartRun(ctx context.Context, id string, startedAt time.Time) error {
	args := m.Called(ctx, id, startedAt)
	return args.Error(0)
}

func (m *MockRunRepository) FinishRun(ctx context.Context, id string, res repository.RunResult) error {
	args := m.Called(ctx, id, res)
	return args.Error(0)
}

func (m *MockRunRepository) GetRun(ctx context.Context, id string) (*repository.Run, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Run), args.Error(1)
}

func (m *MockRunRepository) ListInvoices(ctx context.Context, runID string) ([]entity.Invoice, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Invoice), args.Error(1)
}

func (m *MockRunRepository) ListTotals(ctx context.Context, runID, dimension string) ([]entity.Amount, error) {
	args := m.Called(ctx, runID, dimension)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Amount), args.Error(1)
}
