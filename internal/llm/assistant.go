package llm

import (
	"context"
	"fmt"
	"strings"

	"whatsbot/internal/apperr"
)

const (
	DefaultMaxLength = 150
	DefaultMinLength = 50

	summaryPersona = "You are a summarization expert. Create clear and concise summaries " +
		"that capture the main points while being easy to understand."
	answerPersona = "You are a helpful AI assistant. Provide clear, accurate, and concise answers. " +
		"Focus on the most important information and avoid unnecessary details."
)

// Assistant builds task prompts and hands them to a Generator. It is
// provider independent.
type Assistant struct {
	gen Generator
}

// NewAssistant wraps gen.
func NewAssistant(gen Generator) *Assistant {
	return &Assistant{gen: gen}
}

func (a *Assistant) Generate(ctx context.Context, prompt string, ov Overrides) (string, error) {
	return a.gen.Generate(ctx, prompt, ov)
}

// Summarize asks for a summary between minLength and maxLength words.
// Non-positive lengths fall back to 50 and 150.
func (a *Assistant) Summarize(ctx context.Context, text string, maxLength, minLength int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", apperr.New(apperr.KindValidation, "Input text is empty")
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return a.gen.Generate(ctx, SummaryPrompt(text, maxLength, minLength), SummarizeOverrides(maxLength))
}

// AnswerQuestion answers question, grounding it in contextText when given.
func (a *Assistant) AnswerQuestion(ctx context.Context, question, contextText string, format AnswerFormat) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", apperr.New(apperr.KindValidation, "Question is required")
	}
	return a.gen.Generate(ctx, AnswerPrompt(question, contextText, format), AnswerOverrides(format))
}

// SummaryPrompt renders the summarization prompt.
func SummaryPrompt(text string, maxLength, minLength int) string {
	return fmt.Sprintf("%s\n\nPlease summarize the following text in %d-%d words:\n\n%s\n\nSummary:",
		summaryPersona, minLength, maxLength, text)
}

// SummarizeOverrides sizes the output budget to the requested length.
func SummarizeOverrides(maxLength int) Overrides {
	return Overrides{
		NumPredict:  Int(max(100, maxLength*8)),
		Temperature: Float(0.5),
	}
}

// AnswerPrompt renders the question answering prompt.
func AnswerPrompt(question, contextText string, format AnswerFormat) string {
	style := "detailed"
	if format != FormatDetailed && format != "" {
		style = "brief"
	}
	var b strings.Builder
	b.WriteString(answerPersona)
	b.WriteString("\n\n")
	if contextText != "" {
		fmt.Fprintf(&b, "Context: %s\n\n", contextText)
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	fmt.Fprintf(&b, "Please provide a %s answer focusing on the most relevant information.", style)
	return b.String()
}

// AnswerOverrides shortens concise answers and leaves detailed ones on the
// defaults.
func AnswerOverrides(format AnswerFormat) Overrides {
	if format != FormatConcise {
		return Overrides{}
	}
	return Overrides{
		NumPredict:  Int(128),
		Temperature: Float(0.5),
	}
}
