package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"whatsbot/internal/app"
	"whatsbot/internal/httputil"
	"whatsbot/internal/mention"
	"whatsbot/internal/queue"
	"whatsbot/internal/slackapi"
)

const mentionMaxAttempts = 3

// slackEnvelope is the subset of an Events API callback we read.
type slackEnvelope struct {
	Type      string      `json:"type"`
	Challenge string      `json:"challenge"`
	Event     *slackEvent `json:"event"`
}

type slackEvent struct {
	Type     string `json:"type"`
	Channel  string `json:"channel"`
	User     string `json:"user"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

func writeChallenge(w http.ResponseWriter, challenge string) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"challenge": challenge})
}

func slackEventsHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read body", err, http.StatusBadRequest)
			return
		}
		if err := slackapi.VerifyRequest(r.Header, body, deps.Config.SlackSigningSecret); err != nil {
			httputil.Fail(deps.Log, w, "invalid slack signature", err, http.StatusUnauthorized)
			return
		}

		var env slackEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if env.Type == "url_verification" {
			writeChallenge(w, env.Challenge)
			return
		}

		var eventType string
		if env.Event != nil {
			eventType = env.Event.Type
		}
		if eventType != "app_mention" {
			httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ignored", "event_type": eventType})
			return
		}

		m := mention.Mention{
			Channel:  env.Event.Channel,
			User:     env.Event.User,
			Text:     env.Event.Text,
			ThreadTS: env.Event.ThreadTS,
		}
		if m.ThreadTS == "" {
			m.ThreadTS = env.Event.TS
		}

		ctx := context.WithoutCancel(r.Context())
		if deps.Config.SlackEventMode == "queue" {
			enqueueMention(ctx, deps, w, m)
			return
		}

		if _, err := mention.Respond(ctx, deps.LLM, deps.Slack, deps.Log, m); err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Response sent to Slack"})
	}
}

// enqueueMention hands the mention to the worker so Slack gets its
// acknowledgement without waiting on the model.
func enqueueMention(ctx context.Context, deps app.Deps, w http.ResponseWriter, m mention.Mention) {
	task, err := queue.NewTask(queue.TaskTypeSlackMention, m, mentionMaxAttempts)
	if err != nil {
		httputil.Fail(deps.Log, w, "failed to encode mention", err, http.StatusInternalServerError)
		return
	}
	if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
		httputil.Fail(deps.Log, w, "failed to enqueue mention; please retry", err, http.StatusInternalServerError)
		return
	}
	deps.Log.Info("mention queued", "task_id", task.ID, "channel", m.Channel)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted", "task_id": task.ID.String()})
}
