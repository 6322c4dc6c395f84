package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"whatsbot/internal/app"
	"whatsbot/internal/cache"
	"whatsbot/internal/httputil"
	"whatsbot/internal/llm"
	"whatsbot/internal/metrics"
	"whatsbot/internal/textutil"
)

const maxEventBody = 1 << 20

type questionRequest struct {
	Question string           `json:"question" validate:"required"`
	Context  *string          `json:"context"`
	Format   llm.AnswerFormat `json:"format" validate:"omitempty,oneof=detailed concise"`
}

type questionResponse struct {
	Status   string         `json:"status"`
	Answer   string         `json:"answer"`
	Metadata map[string]any `json:"metadata"`
}

// askHandler answers a question. A Slack url_verification envelope posted
// here is answered with its challenge first.
func askHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read body", err, http.StatusBadRequest)
			return
		}

		var probe slackEnvelope
		if err := json.Unmarshal(body, &probe); err == nil && probe.Type == "url_verification" {
			writeChallenge(w, probe.Challenge)
			return
		}

		var req questionRequest
		if err := json.Unmarshal(body, &req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		if req.Format == "" {
			req.Format = llm.FormatDetailed
		}
		contextText := ""
		if req.Context != nil {
			contextText = *req.Context
		}

		deps.Log.Info("question received", "question", textutil.Preview(req.Question, 100), "format", req.Format)
		ctx := context.WithoutCancel(r.Context())
		answer, cached, err := cachedAnswer(ctx, deps, req.Question, contextText, req.Format)
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, questionResponse{
			Status: "success",
			Answer: answer,
			Metadata: map[string]any{
				"format":           req.Format,
				"context_provided": req.Context != nil,
				"cached":           cached,
			},
		})
	}
}

// cachedAnswer consults the answer cache before calling the model. Cache errors
// are logged and treated as misses.
func cachedAnswer(ctx context.Context, deps app.Deps, question, contextText string, format llm.AnswerFormat) (string, bool, error) {
	key := cache.Key(question, contextText, string(format))
	if deps.Cache != nil {
		hit, err := deps.Cache.GetAnswer(ctx, key)
		if err != nil {
			deps.Log.Warn("answer cache read failed", "err", err)
		}
		if hit != nil {
			metrics.CacheLookups.WithLabelValues(metrics.OutcomeHit).Inc()
			return hit.Answer, true, nil
		}
		metrics.CacheLookups.WithLabelValues(metrics.OutcomeMiss).Inc()
	}

	text, err := deps.LLM.AnswerQuestion(ctx, question, contextText, format)
	if err != nil {
		return "", false, err
	}

	if deps.Cache != nil {
		ttl := time.Duration(deps.Config.CacheTTL) * time.Second
		entry := &cache.Answer{Answer: text, Format: string(format), Model: deps.Config.ModelName(), CreatedAt: time.Now().UTC()}
		if err := deps.Cache.SetAnswer(ctx, key, entry, ttl); err != nil {
			deps.Log.Warn("failed to cache answer", "err", err)
		}
	}
	return text, false, nil
}
