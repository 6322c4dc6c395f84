package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"whatsbot/internal/app"
	"whatsbot/internal/apperr"
	"whatsbot/internal/cache"
	"whatsbot/internal/config"
	"whatsbot/internal/llm"
	"whatsbot/internal/logger"
	"whatsbot/internal/queue"
	"whatsbot/internal/slackapi"
)

type testMocks struct {
	llm   *llm.MockClient
	slack *slackapi.MockPoster
	cache *cache.MockCache
	queue *queue.MockQueue
}

func newTestMocks() testMocks {
	return testMocks{
		llm:   new(llm.MockClient),
		slack: new(slackapi.MockPoster),
		cache: new(cache.MockCache),
		queue: new(queue.MockQueue),
	}
}

func (m testMocks) assertExpectations(t *testing.T) {
	m.llm.AssertExpectations(t)
	m.slack.AssertExpectations(t)
	m.cache.AssertExpectations(t)
	m.queue.AssertExpectations(t)
}

func newTestDeps(m testMocks) app.Deps {
	return app.Deps{
		Config: config.Config{
			MaxUploadSize:       1024 * 1024, // 1MB for tests
			MCPAPIKey:           "mcp-key",
			LLMProvider:         "ollama",
			OllamaModel:         "llama3",
			SlackSummaryChannel: "all-whatsbot",
			SlackEventMode:      "inline",
			CacheTTL:            60,
		},
		Log:   logger.Discard(),
		LLM:   m.llm,
		Slack: m.slack,
		Cache: m.cache,
		Queue: m.queue,
	}
}

func TestSummarizeHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(testMocks)
		wantStatus int
		check      func(*testing.T, map[string]any)
	}{
		{
			name: "successful summary posts to slack",
			body: `{"text":"one two three four"}`,
			setup: func(m testMocks) {
				m.llm.On("Summarize", mock.Anything, "one two three four", 150, 50).Return("short summary", nil).Once()
				m.slack.On("PostSummary", mock.Anything, "all-whatsbot", "one two three four", "short summary", "").
					Return(slackapi.Ack{Channel: "C1", Timestamp: "1.2"}, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "short summary", body["summary"])
				assert.Equal(t, float64(4), body["original_length"])
				assert.Equal(t, float64(2), body["summary_length"])
				meta := body["metadata"].(map[string]any)
				assert.Equal(t, 0.5, meta["compression_ratio"])
				assert.Equal(t, "paragraph", meta["format"])
			},
		},
		{
			name: "bullets format",
			body: `{"text":"alpha beta gamma delta epsilon","max_length":20,"min_length":5,"format":"bullets"}`,
			setup: func(m testMocks) {
				m.llm.On("Summarize", mock.Anything, "alpha beta gamma delta epsilon", 20, 5).Return("Alpha. Beta!", nil).Once()
				m.slack.On("PostSummary", mock.Anything, "all-whatsbot", mock.Anything, "• Alpha.\n• Beta!", "").
					Return(slackapi.Ack{}, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "• Alpha.\n• Beta!", body["summary"])
				assert.Equal(t, float64(2), body["summary_length"])
			},
		},
		{
			name:       "blank text",
			body:       `{"text":"   "}`,
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "Input text is empty", body["error"])
			},
		},
		{
			name:       "missing text",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid format",
			body:       `{"text":"hello","format":"haiku"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "inference unavailable",
			body: `{"text":"hello there"}`,
			setup: func(m testMocks) {
				m.llm.On("Summarize", mock.Anything, "hello there", 150, 50).
					Return("", apperr.Wrap(apperr.KindUnavailable, "inference server unavailable", errors.New("refused"))).Once()
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name: "slack failure fails the request",
			body: `{"text":"hello there"}`,
			setup: func(m testMocks) {
				m.llm.On("Summarize", mock.Anything, "hello there", 150, 50).Return("hi", nil).Once()
				m.slack.On("PostSummary", mock.Anything, "all-whatsbot", "hello there", "hi", "").
					Return(slackapi.Ack{}, apperr.New(apperr.KindSlackAPI, "Slack API error")).Once()
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMocks()
			if tt.setup != nil {
				tt.setup(m)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/summarize", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			summarizeHandler(newTestDeps(m))(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d. Body: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.check != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				tt.check(t, body)
			}
			m.assertExpectations(t)
		})
	}
}

func TestSummarizeSkipsSlackWithoutChannel(t *testing.T) {
	m := newTestMocks()
	m.llm.On("Summarize", mock.Anything, "one two", 150, 50).Return("one", nil).Once()

	deps := newTestDeps(m)
	deps.Config.SlackSummaryChannel = ""

	req := httptest.NewRequest(http.MethodPost, "/api/v1/summarize", strings.NewReader(`{"text":"one two"}`))
	w := httptest.NewRecorder()
	summarizeHandler(deps)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	m.slack.AssertNotCalled(t, "PostSummary", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func createMultipartRequest(filename, contentType string, content []byte, fields map[string]string) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/summarize/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func TestUploadHandler(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		content     []byte
		fields      map[string]string
		setup       func(testMocks)
		wantStatus  int
	}{
		{
			name:        "text file",
			filename:    "notes.txt",
			contentType: "text/plain",
			content:     []byte("one two three four"),
			fields:      map[string]string{"max_length": "40", "min_length": "10"},
			setup: func(m testMocks) {
				m.llm.On("Summarize", mock.Anything, "one two three four", 40, 10).Return("short summary", nil).Once()
				m.slack.On("PostSummary", mock.Anything, "all-whatsbot", "one two three four", "short summary", "").
					Return(slackapi.Ack{}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:     "missing Content-Type detects from extension",
			filename: "notes.txt",
			content:  []byte("alpha beta"),
			setup: func(m testMocks) {
				m.llm.On("Summarize", mock.Anything, "alpha beta", 150, 50).Return("alpha", nil).Once()
				m.slack.On("PostSummary", mock.Anything, "all-whatsbot", "alpha beta", "alpha", "").
					Return(slackapi.Ack{}, nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "file too large",
			filename:    "large.txt",
			contentType: "text/plain",
			content:     make([]byte, 2*1024*1024),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:       "unsupported extension",
			filename:   "notes.docx",
			content:    []byte("content"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "bad max_length",
			filename:    "notes.txt",
			contentType: "text/plain",
			content:     []byte("content"),
			fields:      map[string]string{"max_length": "lots"},
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "empty file",
			filename:    "empty.txt",
			contentType: "text/plain",
			content:     []byte{},
			wantStatus:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMocks()
			if tt.setup != nil {
				tt.setup(m)
			}

			req, err := createMultipartRequest(tt.filename, tt.contentType, tt.content, tt.fields)
			require.NoError(t, err)
			w := httptest.NewRecorder()
			uploadHandler(newTestDeps(m))(w, req)

			if w.Code != tt.wantStatus {
				body, _ := io.ReadAll(w.Result().Body)
				t.Errorf("Expected status %d, got %d. Body: %s", tt.wantStatus, w.Code, string(body))
			}
			m.assertExpectations(t)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/summarize/upload", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()
		uploadHandler(newTestDeps(newTestMocks()))(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUploadHandlerLimitsChunkedBody(t *testing.T) {
	m := newTestMocks()
	req, err := createMultipartRequest("large.txt", "text/plain", bytes.Repeat([]byte("word "), 700*1024), nil)
	require.NoError(t, err)
	req.ContentLength = -1
	req.Header.Set("Transfer-Encoding", "chunked")

	w := httptest.NewRecorder()
	uploadHandler(newTestDeps(m))(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file too large")
	m.assertExpectations(t)
}

func TestSupportedUpload(t *testing.T) {
	assert.True(t, supportedUpload("a.pdf", ""))
	assert.True(t, supportedUpload("a.bin", "text/plain; charset=utf-8"))
	assert.False(t, supportedUpload("a.doc", "application/msword"))
	assert.False(t, supportedUpload("a", ""))
}

func TestIntegrationHandlers(t *testing.T) {
	t.Run("test-slack", func(t *testing.T) {
		m := newTestMocks()
		m.slack.On("PostMessage", mock.Anything, "all-whatsbot", testSlackMessage, "").
			Return(slackapi.Ack{Channel: "C1", Timestamp: "9.9"}, nil).Once()

		w := httptest.NewRecorder()
		testSlackHandler(newTestDeps(m))(w, httptest.NewRequest(http.MethodPost, "/api/v1/integrations/test-slack", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"message":"Test message sent to Slack"`)
		m.assertExpectations(t)
	})

	t.Run("test-llama", func(t *testing.T) {
		m := newTestMocks()
		m.llm.On("Generate", mock.Anything, testLlamaPrompt, llm.Overrides{}).Return("Hello! I am working!", nil).Once()

		w := httptest.NewRecorder()
		testLlamaHandler(newTestDeps(m))(w, httptest.NewRequest(http.MethodPost, "/api/v1/integrations/test-llama", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"llama_response":"Hello! I am working!"`)
		m.assertExpectations(t)
	})

	t.Run("test-llama model missing", func(t *testing.T) {
		m := newTestMocks()
		m.llm.On("Generate", mock.Anything, testLlamaPrompt, llm.Overrides{}).
			Return("", apperr.New(apperr.KindModelNotFound, "model llama3 not found")).Once()

		w := httptest.NewRecorder()
		testLlamaHandler(newTestDeps(m))(w, httptest.NewRequest(http.MethodPost, "/api/v1/integrations/test-llama", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRouter(t *testing.T) {
	r := newRouter(newTestDeps(newTestMocks()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"status":"healthy","service":"whatsbot","version":"1.0.0"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/process", strings.NewReader(`{"message_id":"1","content":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
