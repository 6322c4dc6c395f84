package mention

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"whatsbot/internal/apperr"
	"whatsbot/internal/llm"
	"whatsbot/internal/logger"
	"whatsbot/internal/slackapi"
)

func TestExtractQuestion(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"<@U123> what time is it", "what time is it"},
		{"<@U123>", ""},
		{"<@U123>   ", ""},
		{"no mention here ", "no mention here"},
		{"<@U123> compare <a> and <b>", "compare <a> and <b>"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractQuestion(tt.text))
		})
	}
}

func TestRespond(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		setup    func(*llm.MockClient)
		expected string
	}{
		{
			name:     "greeting on empty mention",
			text:     "<@U123>",
			setup:    func(m *llm.MockClient) {},
			expected: Greeting,
		},
		{
			name: "concise answer",
			text: "<@U123> what time is it",
			setup: func(m *llm.MockClient) {
				m.On("AnswerQuestion", mock.Anything, "what time is it", "", llm.FormatConcise).Return("noon", nil)
			},
			expected: "noon",
		},
		{
			name: "apology on inference failure",
			text: "<@U123> hi",
			setup: func(m *llm.MockClient) {
				m.On("AnswerQuestion", mock.Anything, "hi", "", llm.FormatConcise).
					Return("", apperr.Wrap(apperr.KindUnavailable, "down", errors.New("refused")))
			},
			expected: Apology,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(llm.MockClient)
			tt.setup(client)
			poster := new(slackapi.MockPoster)
			poster.On("PostMessage", mock.Anything, "C1", tt.expected, "111.222").
				Return(slackapi.Ack{Channel: "C1", Timestamp: "3.4"}, nil)

			ack, err := Respond(context.Background(), client, poster, logger.Discard(),
				Mention{Channel: "C1", Text: tt.text, ThreadTS: "111.222"})
			require.NoError(t, err)
			assert.Equal(t, "3.4", ack.Timestamp)
			client.AssertExpectations(t)
			poster.AssertExpectations(t)
		})
	}
}

func TestRespondSlackFailure(t *testing.T) {
	client := new(llm.MockClient)
	poster := new(slackapi.MockPoster)
	poster.On("PostMessage", mock.Anything, "C1", Greeting, "").
		Return(slackapi.Ack{}, apperr.New(apperr.KindSlackAPI, "not_in_channel"))

	_, err := Respond(context.Background(), client, poster, logger.Discard(), Mention{Channel: "C1", Text: "<@U1>"})
	assert.True(t, apperr.Is(err, apperr.KindSlackAPI))
}
