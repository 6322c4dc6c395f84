package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"whatsbot/internal/cache"
	"whatsbot/internal/config"
	"whatsbot/internal/llm"
	"whatsbot/internal/logger"
	"whatsbot/internal/queue"
	"whatsbot/internal/search"
	"whatsbot/internal/slackapi"
)

// Version is reported by the status endpoints.
const Version = "1.0.0"

// Deps bundles common runtime dependencies for services. Components a
// service does not use are nil.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	LLM    llm.Client
	Slack  slackapi.Poster
	Search search.Searcher
	Cache  cache.AnswerCache
	Queue  queue.Queue

	closers []func() error
}

// Close releases connections opened by Build.
func (d Deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Build wires the WhatsBot API: inference, search, Slack, answer cache and,
// in queue mode, the mention queue.
func Build() (Deps, error) {
	deps, err := base()
	if err != nil {
		return Deps{}, err
	}
	cfg, log := deps.Config, deps.Log

	if deps.LLM, err = buildLLM(cfg, log); err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	deps.Search = buildSearch(cfg, log)
	if deps.Slack, err = buildSlack(cfg, log); err != nil {
		return Deps{}, fmt.Errorf("failed to initialize Slack: %w", err)
	}
	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	deps.Cache = c
	deps.closers = append(deps.closers, c.Close)

	q, closeQueue, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	if cfg.SlackEventMode == "queue" && q == nil {
		return Deps{}, errors.New("SLACK_EVENT_MODE=queue requires QUEUE_PROVIDER=nats")
	}
	deps.Queue = q
	if closeQueue != nil {
		deps.closers = append(deps.closers, closeQueue)
	}
	return deps, nil
}

// BuildActivity wires the activity agent: inference and search only.
func BuildActivity() (Deps, error) {
	deps, err := base()
	if err != nil {
		return Deps{}, err
	}
	if deps.LLM, err = buildLLM(deps.Config, deps.Log); err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	deps.Search = buildSearch(deps.Config, deps.Log)
	return deps, nil
}

// BuildWorker wires the Slack mention worker. A queue is mandatory.
func BuildWorker() (Deps, error) {
	deps, err := base()
	if err != nil {
		return Deps{}, err
	}
	cfg, log := deps.Config, deps.Log

	if deps.LLM, err = buildLLM(cfg, log); err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	if deps.Slack, err = buildSlack(cfg, log); err != nil {
		return Deps{}, fmt.Errorf("failed to initialize Slack: %w", err)
	}
	q, closeQueue, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	if q == nil {
		return Deps{}, errors.New("the slack worker requires QUEUE_PROVIDER=nats")
	}
	deps.Queue = q
	deps.closers = append(deps.closers, closeQueue)
	return deps, nil
}

// base loads .env (optional), config and the logger.
func base() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return Deps{}, err
	}
	return Deps{Config: cfg, Log: logger.New(cfg.LogLevel, cfg.LogFormat)}, nil
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "ollama":
		gen := llm.NewOllama(cfg.OllamaAPIURL, cfg.OllamaModel, log,
			llm.WithMaxRetries(cfg.InferenceMaxRetries),
			llm.WithTimeout(cfg.InferenceTimeout),
		)
		log.Info("using Ollama LLM client", "url", cfg.OllamaAPIURL, "model", cfg.OllamaModel)
		return llm.NewAssistant(gen), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		gen, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:     cfg.OpenAIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			MaxRetries: cfg.InferenceMaxRetries,
			Timeout:    cfg.InferenceTimeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.OpenAIModel)
		return llm.NewAssistant(gen), nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: ollama, openai)", cfg.LLMProvider)
	}
}

func buildSearch(cfg config.Config, log *slog.Logger) search.Searcher {
	return search.NewClient(cfg.SearchAPIURL, cfg.SearchAPIKey, cfg.SearchTimeout, log)
}

func buildSlack(cfg config.Config, log *slog.Logger) (slackapi.Poster, error) {
	return slackapi.NewClient(cfg.SlackBotToken, slackapi.Options{
		APIURL:  cfg.SlackAPIURL,
		Timeout: cfg.SlackTimeout,
	}, log)
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.AnswerCache, error) {
	switch cfg.CacheProvider {
	case "none", "":
		return cache.NewNoOpCache(), nil
	case "redis":
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable, answer caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis answer cache", "addr", cfg.RedisAddr)
		return rc, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

// buildQueue returns a nil queue when queuing is disabled.
func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, func() error, error) {
	switch cfg.QueueProvider {
	case "none", "":
		return nil, nil, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("whatsbot"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue", "url", cfg.QueueURL)
		return queue.NewNATS(log, nc), func() error { return nc.Drain() }, nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}
