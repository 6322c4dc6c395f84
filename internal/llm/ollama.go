package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"whatsbot/internal/apperr"
	"whatsbot/internal/metrics"
	"whatsbot/internal/retry"
	"whatsbot/internal/textutil"
)

const (
	defaultOllamaRetries = 3
	defaultOllamaTimeout = 30 * time.Second
	retryStep            = time.Second
)

// Ollama generates text through the Ollama REST API. Every call to the server
// is retried with linear backoff.
type Ollama struct {
	baseURL  string
	model    string
	defaults Options
	http     *http.Client
	retry    retry.Policy
	log      *slog.Logger
}

// OllamaOption configures an Ollama generator.
type OllamaOption func(*Ollama)

// WithMaxRetries sets the total attempts per server call.
func WithMaxRetries(n int) OllamaOption {
	return func(o *Ollama) {
		if n > 0 {
			o.retry.Attempts = n
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) OllamaOption {
	return func(o *Ollama) {
		if d > 0 {
			o.http.Timeout = d
		}
	}
}

// WithDefaults replaces the base generation options.
func WithDefaults(opts Options) OllamaOption {
	return func(o *Ollama) { o.defaults = opts }
}

// WithHTTPClient swaps the transport. The client's timeout is used as is.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(o *Ollama) {
		if c != nil {
			o.http = c
		}
	}
}

// NewOllama builds a generator for model served at baseURL.
func NewOllama(baseURL, model string, log *slog.Logger, opts ...OllamaOption) *Ollama {
	o := &Ollama{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		defaults: DefaultOptions(),
		http:     &http.Client{Timeout: defaultOllamaTimeout},
		retry: retry.Policy{
			Attempts: defaultOllamaRetries,
			Backoff:  retry.Linear(retryStep),
		},
		log: log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate checks the model is installed, then runs a single non-streaming
// generation with the defaults merged with ov.
func (o *Ollama) Generate(ctx context.Context, prompt string, ov Overrides) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", apperr.New(apperr.KindValidation, "prompt is required")
	}
	start := time.Now()
	defer func() {
		metrics.GenerateDuration.WithLabelValues("ollama", o.model).Observe(time.Since(start).Seconds())
	}()

	o.log.Debug("generating response", "model", o.model, "prompt", textutil.Preview(prompt, 100))

	if err := o.ensureModel(ctx); err != nil {
		return "", err
	}

	req := generateRequest{
		Model:   o.model,
		Prompt:  prompt,
		Stream:  false,
		Options: o.defaults.Merge(ov),
	}
	var resp generateResponse
	err := o.call(ctx, "generate", func(ctx context.Context) error {
		return o.doJSON(ctx, http.MethodPost, "/api/generate", req, &resp)
	})
	if err != nil {
		return "", err
	}
	if resp.Response == "" {
		return "", apperr.New(apperr.KindEmptyResponse, "inference server returned no response text")
	}
	o.log.Info("generated response", "model", o.model, "chars", len(resp.Response))
	return resp.Response, nil
}

// ensureModel fails with ModelNotFound when the configured model is not in
// the server's listing.
func (o *Ollama) ensureModel(ctx context.Context) error {
	var tags tagsResponse
	err := o.call(ctx, "tags", func(ctx context.Context) error {
		return o.doJSON(ctx, http.MethodGet, "/api/tags", nil, &tags)
	})
	if err != nil {
		return err
	}

	want := qualifiedModel(o.model)
	available := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name == want {
			return nil
		}
		available = append(available, m.Name)
	}
	o.log.Error("model not installed", "model", want, "available", available)
	return apperr.New(apperr.KindModelNotFound, fmt.Sprintf("model %s not found", o.model)).
		WithDetail("available models: [%s]", strings.Join(available, ", "))
}

// qualifiedModel adds the default tag unless the name already has one.
func qualifiedModel(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}

// call runs fn under the retry policy and records each attempt.
func (o *Ollama) call(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	policy := o.retry
	policy.OnRetry = func(attempt int, err error) {
		o.log.Warn("inference request failed", "endpoint", endpoint, "attempt", attempt, "max_attempts", policy.Attempts, "err", err)
	}
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		err := fn(ctx)
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
		}
		metrics.InferenceAttempts.WithLabelValues(endpoint, outcome).Inc()
		return err
	})
	if err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "inference server unavailable", err).
			WithDetail("%s %s", endpoint, o.baseURL)
	}
	return nil
}

// doJSON performs one request and decodes a 2xx JSON body into out. Non-2xx
// statuses and undecodable bodies are errors so they are retried.
func (o *Ollama) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
