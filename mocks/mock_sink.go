package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joseph-ayodele/invoice-analyzer/internal/report"
)

// MockSink is a mock implementation of report.Sink.
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Write(ctx context.Context, in report.Input) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}
