// Package search queries the external activity search API. Failures never
// reach the caller; they degrade to an empty result list.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"whatsbot/internal/apperr"
	"whatsbot/internal/metrics"
)

// Result is one search hit.
type Result struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         string  `json:"url,omitempty"`
	Score       float64 `json:"score"`
}

// Searcher looks up activities matching a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) []Result
}

// Client calls the search REST API with a bearer key.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	log      *slog.Logger
}

// NewClient builds a Client. timeout <= 0 means 10s.
func NewClient(endpoint, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search returns the matching results, or an empty non-nil slice on any
// failure.
func (c *Client) Search(ctx context.Context, query string) []Result {
	results, err := c.search(ctx, query)
	if err != nil {
		metrics.SearchRequests.WithLabelValues(metrics.OutcomeError).Inc()
		c.log.Warn("search api error", "query", query, "err", apperr.Wrap(apperr.KindSearch, "search failed", err))
		return []Result{}
	}
	metrics.SearchRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	if results == nil {
		return []Result{}
	}
	return results
}

func (c *Client) search(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("type", "activity")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body.Results, nil
}
