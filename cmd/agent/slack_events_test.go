package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"whatsbot/internal/llm"
	"whatsbot/internal/mention"
	"whatsbot/internal/queue"
	"whatsbot/internal/slackapi"
)

const mentionEvent = `{
	"type": "event_callback",
	"event": {
		"type": "app_mention",
		"channel": "C123",
		"user": "U1",
		"text": "<@UBOT> what is the weather?",
		"ts": "1700000000.000100"
	}
}`

func TestSlackEventsHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(testMocks)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "url verification",
			body:       `{"type":"url_verification","challenge":"abc123"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"challenge":"abc123"}`,
		},
		{
			name: "app mention answered in thread",
			body: mentionEvent,
			setup: func(m testMocks) {
				m.llm.On("AnswerQuestion", mock.Anything, "what is the weather?", "", llm.FormatConcise).Return("Sunny.", nil).Once()
				m.slack.On("PostMessage", mock.Anything, "C123", "Sunny.", "1700000000.000100").
					Return(slackapi.Ack{Channel: "C123", Timestamp: "1700000000.000200"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"success","message":"Response sent to Slack"}`,
		},
		{
			name: "empty mention gets the greeting",
			body: `{"type":"event_callback","event":{"type":"app_mention","channel":"C1","text":"<@UBOT>","ts":"1.1","thread_ts":"0.5"}}`,
			setup: func(m testMocks) {
				m.slack.On("PostMessage", mock.Anything, "C1", mention.Greeting, "0.5").Return(slackapi.Ack{}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "inference failure posts the apology",
			body: mentionEvent,
			setup: func(m testMocks) {
				m.llm.On("AnswerQuestion", mock.Anything, "what is the weather?", "", llm.FormatConcise).Return("", assert.AnError).Once()
				m.slack.On("PostMessage", mock.Anything, "C123", mention.Apology, "1700000000.000100").Return(slackapi.Ack{}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "other events are ignored",
			body:       `{"type":"event_callback","event":{"type":"message","channel":"C1","text":"hi"}}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ignored","event_type":"message"}`,
		},
		{
			name:       "malformed payload",
			body:       `{"type":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMocks()
			if tt.setup != nil {
				tt.setup(m)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/slack/events", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			slackEventsHandler(newTestDeps(m))(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d. Body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			m.assertExpectations(t)
		})
	}
}

func TestSlackEventsQueueMode(t *testing.T) {
	m := newTestMocks()
	var queued queue.Task
	m.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(task queue.Task) bool {
		return task.Type == queue.TaskTypeSlackMention
	})).Run(func(args mock.Arguments) {
		queued = args.Get(1).(queue.Task)
	}).Return(nil).Once()

	deps := newTestDeps(m)
	deps.Config.SlackEventMode = "queue"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slack/events", strings.NewReader(mentionEvent))
	w := httptest.NewRecorder()
	slackEventsHandler(deps)(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, queued.ID.String(), body["task_id"])

	var got mention.Mention
	require.NoError(t, queued.Decode(&got))
	assert.Equal(t, mention.Mention{
		Channel:  "C123",
		User:     "U1",
		Text:     "<@UBOT> what is the weather?",
		ThreadTS: "1700000000.000100",
	}, got)
	assert.Equal(t, mentionMaxAttempts, queued.MaxAttempts)

	m.assertExpectations(t)
	m.llm.AssertNotCalled(t, "AnswerQuestion", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSlackEventsRejectsBadSignature(t *testing.T) {
	m := newTestMocks()
	deps := newTestDeps(m)
	deps.Config.SlackSigningSecret = "secret"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/slack/events", strings.NewReader(mentionEvent))
	req.Header.Set("X-Slack-Request-Timestamp", "1")
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")
	w := httptest.NewRecorder()
	slackEventsHandler(deps)(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	m.assertExpectations(t)
}
