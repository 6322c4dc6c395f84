// Package slackapi posts messages to Slack and verifies inbound Slack
// requests.
package slackapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"whatsbot/internal/apperr"
	"whatsbot/internal/metrics"
)

const defaultTimeout = 10 * time.Second

// Ack identifies a posted message.
type Ack struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

// Poster sends messages to Slack channels.
type Poster interface {
	PostMessage(ctx context.Context, channel, text, threadTS string) (Ack, error)
	PostSummary(ctx context.Context, channel, originalText, summary, threadTS string) (Ack, error)
}

// Options tune the Slack client. Zero values use the public API and a 10s
// timeout.
type Options struct {
	APIURL  string
	Timeout time.Duration
}

// Client posts through the Slack Web API. Posts are never retried.
type Client struct {
	api *slack.Client
	log *slog.Logger
}

// NewClient builds a Client for a bot token.
func NewClient(token string, opts Options, log *slog.Logger) (*Client, error) {
	if token == "" {
		return nil, apperr.New(apperr.KindConfig, "SLACK_BOT_TOKEN is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	slackOpts := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: opts.Timeout}),
	}
	if opts.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(strings.TrimRight(opts.APIURL, "/")+"/"))
	}
	return &Client{api: slack.New(token, slackOpts...), log: log}, nil
}

// PostMessage posts text to channel, as a thread reply when threadTS is set.
func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) (Ack, error) {
	msgOpts := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	}
	if threadTS != "" {
		msgOpts = append(msgOpts, slack.MsgOptionTS(threadTS))
	}

	respChannel, ts, err := c.api.PostMessageContext(ctx, channel, msgOpts...)
	if err != nil {
		metrics.SlackPosts.WithLabelValues(metrics.OutcomeError).Inc()
		c.log.Error("slack post failed", "channel", channel, "err", err)
		return Ack{}, apperr.Wrap(apperr.KindSlackAPI, "Slack API error", err).WithDetail("channel %s", channel)
	}
	metrics.SlackPosts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.log.Info("message posted to slack", "channel", respChannel, "ts", ts)
	return Ack{Channel: respChannel, Timestamp: ts}, nil
}

// PostSummary posts a summary with word-count stats.
func (c *Client) PostSummary(ctx context.Context, channel, originalText, summary, threadTS string) (Ack, error) {
	return c.PostMessage(ctx, channel, SummaryMessage(originalText, summary), threadTS)
}

// SummaryMessage renders the summary post. Counts are whitespace tokens.
func SummaryMessage(originalText, summary string) string {
	return fmt.Sprintf("*Original Text Length:* %d words\n*Summary Length:* %d words\n\n*Summary:*\n%s",
		len(strings.Fields(originalText)), len(strings.Fields(summary)), summary)
}

// VerifyRequest checks the Slack signature headers against body. An empty
// secret disables verification.
func VerifyRequest(header http.Header, body []byte, secret string) error {
	if secret == "" {
		return nil
	}
	sv, err := slack.NewSecretsVerifier(header, secret)
	if err != nil {
		return fmt.Errorf("slack signature headers: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("slack signature: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return errors.New("invalid slack signature")
	}
	return nil
}
