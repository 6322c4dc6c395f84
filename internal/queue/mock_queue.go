package queue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockQueue records enqueued tasks. Worker blocks until ctx is done unless an
// error is configured.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, task Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockQueue) Worker(ctx context.Context, taskType TaskType, handler Handler) error {
	if err := m.Called(ctx, taskType, handler).Error(0); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}
