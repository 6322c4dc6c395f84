package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"whatsbot/internal/apperr"
	"whatsbot/internal/metrics"
)

// OpenAI generates text through an OpenAI-compatible chat completions API.
// Ollama's /v1 endpoint works as a base URL too.
type OpenAI struct {
	model    openai.ChatModel
	defaults Options
	client   *openai.Client
	log      *slog.Logger
}

// OpenAIConfig holds the connection settings for NewOpenAI.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
}

// NewOpenAI builds a chat completions generator.
func NewOpenAI(cfg OpenAIConfig, log *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key required")
	}
	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultOllamaRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOllamaTimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries - 1),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	cli := openai.NewClient(opts...)
	return &OpenAI{
		model:    model,
		defaults: DefaultOptions(),
		client:   &cli,
		log:      log,
	}, nil
}

// Generate sends prompt as a single user message. Options without a chat
// completions equivalent are ignored.
func (c *OpenAI) Generate(ctx context.Context, prompt string, ov Overrides) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperr.New(apperr.KindValidation, "prompt is required")
	}
	start := time.Now()
	defer func() {
		metrics.GenerateDuration.WithLabelValues("openai", string(c.model)).Observe(time.Since(start).Seconds())
	}()

	opts := c.defaults.Merge(ov)
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Temperature: openai.Float(opts.Temperature),
		TopP:        openai.Float(opts.TopP),
		MaxTokens:   openai.Int(int64(opts.NumPredict)),
	})
	if err != nil {
		metrics.InferenceAttempts.WithLabelValues("chat", metrics.OutcomeError).Inc()
		c.log.Warn("chat completion failed", "model", c.model, "err", err)
		return "", apperr.Wrap(apperr.KindUnavailable, "inference server unavailable", err)
	}
	metrics.InferenceAttempts.WithLabelValues("chat", metrics.OutcomeSuccess).Inc()

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperr.New(apperr.KindEmptyResponse, fmt.Sprintf("%s returned no content", c.model))
	}
	return resp.Choices[0].Message.Content, nil
}
