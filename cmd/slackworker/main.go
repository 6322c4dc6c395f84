package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"whatsbot/internal/app"
	"whatsbot/internal/httputil"
	"whatsbot/internal/mention"
	"whatsbot/internal/queue"
)

func main() {
	if err := run(); err != nil {
		slog.Default().Error("slack worker stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	deps, err := app.BuildWorker()
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

	deps.Log.Info("slack worker starting", "provider", deps.Config.LLMProvider, "model", deps.Config.ModelName())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Queue.Worker(gctx, queue.TaskTypeSlackMention, handleMention(deps))
	})
	g.Go(func() error {
		return httputil.ServeHealth(gctx, deps.Log, deps.Config.HealthPort)
	})
	return g.Wait()
}

// handleMention answers a queued mention. A failed Slack post is returned so
// the queue retries it; an undecodable payload is dropped.
func handleMention(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		var m mention.Mention
		if err := task.Decode(&m); err != nil {
			deps.Log.Error("dropping malformed mention task", "id", task.ID, "err", err)
			return nil
		}

		ack, err := mention.Respond(ctx, deps.LLM, deps.Slack, deps.Log, m)
		if err != nil {
			deps.Log.Warn("failed to post mention reply", "id", task.ID, "attempt", task.Attempts+1, "err", err)
			return err
		}
		deps.Log.Info("mention answered", "id", task.ID, "channel", ack.Channel, "ts", ack.Timestamp)
		return nil
	}
}
