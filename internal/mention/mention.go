// Package mention answers Slack app mentions. It is shared by the inline
// events handler and the queue worker.
package mention

import (
	"context"
	"log/slog"
	"strings"

	"whatsbot/internal/llm"
	"whatsbot/internal/slackapi"
)

const (
	Greeting = "Hello! How can I help you today?"
	Apology  = "I apologize, but I'm having trouble processing your request right now. Please try again in a moment."
)

// Mention is an app_mention event reduced to what a reply needs. It is also
// the queue payload.
type Mention struct {
	Channel  string `json:"channel"`
	User     string `json:"user,omitempty"`
	Text     string `json:"text"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// ExtractQuestion drops everything up to and including the first '>' (the
// bot mention) and trims the rest.
func ExtractQuestion(text string) string {
	if _, after, ok := strings.Cut(text, ">"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(text)
}

// Reply picks the text to post for a mention. Inference failures turn into
// the apology so the user always hears back.
func Reply(ctx context.Context, client llm.Client, log *slog.Logger, m Mention) string {
	question := ExtractQuestion(m.Text)
	if question == "" {
		return Greeting
	}
	answer, err := client.AnswerQuestion(ctx, question, "", llm.FormatConcise)
	if err != nil {
		log.Error("failed to answer mention", "channel", m.Channel, "err", err)
		return Apology
	}
	return answer
}

// Respond answers m and posts the reply in its thread.
func Respond(ctx context.Context, client llm.Client, poster slackapi.Poster, log *slog.Logger, m Mention) (slackapi.Ack, error) {
	return poster.PostMessage(ctx, m.Channel, Reply(ctx, client, log, m), m.ThreadTS)
}
