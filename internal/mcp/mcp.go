// Package mcp serves the MCP-style process endpoint shared by both services:
// the message content is sent to the model and to the activity search at the
// same time.
package mcp

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"

	"whatsbot/internal/app"
	"whatsbot/internal/httputil"
	"whatsbot/internal/llm"
	"whatsbot/internal/search"
)

// Message is an inbound MCP message.
type Message struct {
	MessageID string         `json:"message_id" validate:"required"`
	Content   string         `json:"content" validate:"required"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Source    string         `json:"source,omitempty"`
}

// Response is the processed reply.
type Response struct {
	MessageID  string          `json:"message_id"`
	Response   string          `json:"response"`
	Status     string          `json:"status"`
	Activities []search.Result `json:"activities"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
}

// Process answers msg and looks up related activities concurrently. Search
// never fails the call.
func Process(ctx context.Context, client llm.Client, searcher search.Searcher, msg Message) (string, []search.Result, error) {
	var (
		answer     string
		activities []search.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		answer, err = client.Generate(gctx, msg.Content, llm.Overrides{})
		return err
	})
	g.Go(func() error {
		activities = searcher.Search(gctx, msg.Content)
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", nil, err
	}
	return answer, activities, nil
}

// Handler serves POST /process. source names the service in the response
// metadata.
func Handler(deps app.Deps, source string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		if !httputil.DecodeJSON(deps.Log, w, r, &msg) {
			return
		}

		ctx := context.WithoutCancel(r.Context())
		answer, activities, err := Process(ctx, deps.LLM, deps.Search, msg)
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}

		deps.Log.Info("mcp message processed", "message_id", msg.MessageID, "source", msg.Source, "activities", len(activities))
		httputil.WriteJSON(w, http.StatusOK, Response{
			MessageID:  msg.MessageID,
			Response:   answer,
			Status:     "success",
			Activities: activities,
			Metadata: map[string]any{
				"source":         source,
				"processed_with": deps.Config.ModelName(),
			},
		})
	}
}
