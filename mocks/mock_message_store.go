package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockMessageStore is a mock implementation of ingest.MessageStore.
type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Search(ctx context.Context, query string) ([]string, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMessageStore) Attachment(ctx context.Context, id string) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
