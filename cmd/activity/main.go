package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whatsbot/internal/app"
	"whatsbot/internal/httputil"
	"whatsbot/internal/mcp"
	"whatsbot/internal/planner"
)

const serviceName = "activity-agent"

func main() {
	if err := run(); err != nil {
		slog.Default().Error("activity agent stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	deps, err := app.BuildActivity()
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

	deps.Log.Info("activity agent starting", "provider", deps.Config.LLMProvider, "model", deps.Config.ModelName())
	return httputil.Serve(ctx, deps.Log, fmt.Sprintf(":%d", deps.Config.Port), newRouter(deps, planner.New()))
}

func newRouter(deps app.Deps, p *planner.Planner) *chi.Mux {
	r := httputil.NewRouter(deps.Log)

	r.Get("/", httputil.StatusHandler(serviceName, ""))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(httputil.RequireAPIKey(deps.Log, deps.Config.MCPAPIKey)).
			Post("/process", mcp.Handler(deps, serviceName))
		r.Post("/activities/suggest", suggestHandler(deps, p))
	})
	return r
}

type suggestResponse struct {
	Status     string               `json:"status"`
	Activities []planner.Suggestion `json:"activities"`
}

func suggestHandler(deps app.Deps, p *planner.Planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var prefs planner.Preferences
		if !httputil.DecodeJSON(deps.Log, w, r, &prefs) {
			return
		}
		suggestions := p.Suggest(prefs)
		deps.Log.Info("activities suggested", "count", len(suggestions), "location", prefs.Location)
		httputil.WriteJSON(w, http.StatusOK, suggestResponse{Status: "success", Activities: suggestions})
	}
}
