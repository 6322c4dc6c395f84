package slackapi

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPoster is a mock implementation of Poster using testify/mock.
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) PostMessage(ctx context.Context, channel, text, threadTS string) (Ack, error) {
	args := m.Called(ctx, channel, text, threadTS)
	return args.Get(0).(Ack), args.Error(1)
}

func (m *MockPoster) PostSummary(ctx context.Context, channel, originalText, summary, threadTS string) (Ack, error) {
	args := m.Called(ctx, channel, originalText, summary, threadTS)
	return args.Get(0).(Ack), args.Error(1)
}
