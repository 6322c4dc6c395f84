package llm

import "context"

// AnswerFormat controls how long an answer should be.
type AnswerFormat string

const (
	FormatDetailed AnswerFormat = "detailed"
	FormatConcise  AnswerFormat = "concise"
)

// Generator turns one prompt into one complete model response.
type Generator interface {
	Generate(ctx context.Context, prompt string, ov Overrides) (string, error)
}

// Client is the inference surface used by handlers.
type Client interface {
	Generator
	Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error)
	AnswerQuestion(ctx context.Context, question, contextText string, format AnswerFormat) (string, error)
}
