package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joseph-ayodele/invoice-analyzer/internal/llm"
)

// MockCategorizer is a mock implementation of llm.Categorizer.
type MockCategorizer struct {
	mock.Mock
}

func (m *MockCategorizer) Categorize(ctx context.Context, description string, labels []string) (string, error) {
	args := m.Called(ctx, description, labels)
	return args.String(0), args.Error(1)
}

// MockNarrator is a mock implementation of llm.Narrator.
type MockNarrator struct {
	mock.Mock
}

func (m *MockNarrator) Summarize(ctx context.Context, req llm.SummaryRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockHealthChecker is a mock implementation of llm.HealthChecker.
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) IsRunning(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockHealthChecker) ModelExists(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
