package llm

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of Client using testify/mock.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Generate(ctx context.Context, prompt string, ov Overrides) (string, error) {
	args := m.Called(ctx, prompt, ov)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	args := m.Called(ctx, text, maxLength, minLength)
	return args.String(0), args.Error(1)
}

func (m *MockClient) AnswerQuestion(ctx context.Context, question, contextText string, format AnswerFormat) (string, error) {
	args := m.Called(ctx, question, contextText, format)
	return args.String(0), args.Error(1)
}
