package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whatsbot/internal/app"
	"whatsbot/internal/httputil"
	"whatsbot/internal/mcp"
)

const serviceName = "whatsbot"

func main() {
	if err := run(); err != nil {
		slog.Default().Error("agent stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	deps, err := app.Build()
	if err != nil {
		return fmt.Errorf("failed to build dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("failed to close dependencies", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps.Log.Info("whatsbot agent starting", "provider", deps.Config.LLMProvider, "model", deps.Config.ModelName(), "slack_event_mode", deps.Config.SlackEventMode)
	return httputil.Serve(ctx, deps.Log, fmt.Sprintf(":%d", deps.Config.Port), newRouter(deps))
}

func newRouter(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log)

	r.Get("/", httputil.StatusHandler(serviceName, app.Version))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/summarize", summarizeHandler(deps))
		r.Post("/summarize/upload", uploadHandler(deps))
		r.Post("/questions/ask", askHandler(deps))
		r.Post("/slack/events", slackEventsHandler(deps))
		r.With(httputil.RequireAPIKey(deps.Log, deps.Config.MCPAPIKey)).
			Post("/process", mcp.Handler(deps, serviceName))
		r.Post("/integrations/test-slack", testSlackHandler(deps))
		r.Post("/integrations/test-llama", testLlamaHandler(deps))
	})
	return r
}
