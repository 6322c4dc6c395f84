package main

import (
	"context"
	"net/http"

	"whatsbot/internal/app"
	"whatsbot/internal/httputil"
	"whatsbot/internal/llm"
)

const (
	testSlackMessage = "🎉 Test message from WhatsBot! If you see this, the Slack integration is working."
	testLlamaPrompt  = "Say 'Hello! I am working!' if you can read this message."
)

func testSlackHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ack, err := deps.Slack.PostMessage(context.WithoutCancel(r.Context()), deps.Config.SlackSummaryChannel, testSlackMessage, "")
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":         "success",
			"message":        "Test message sent to Slack",
			"slack_response": ack,
		})
	}
}

func testLlamaHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, err := deps.LLM.Generate(context.WithoutCancel(r.Context()), testLlamaPrompt, llm.Overrides{})
		if err != nil {
			httputil.FailErr(deps.Log, w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"status":         "success",
			"message":        "Llama connection test successful",
			"llama_response": text,
		})
	}
}
