package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by all services.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8000"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8081"` // workers without an API
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"`

	// Upload limits
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Required keys
	SearchAPIKey string `env:"SEARCH_API_KEY,required,notEmpty"`
	MCPAPIKey    string `env:"MCP_API_KEY,required,notEmpty"`

	// Search
	SearchAPIURL  string        `env:"SEARCH_API_URL" envDefault:"https://api.search.service/v1/search"`
	SearchTimeout time.Duration `env:"SEARCH_TIMEOUT" envDefault:"10s"`

	// LLM
	LLMProvider         string        `env:"LLM_PROVIDER" envDefault:"ollama"` // "ollama" or "openai"
	OllamaAPIURL        string        `env:"OLLAMA_API_URL" envDefault:"http://localhost:11434"`
	OllamaModel         string        `env:"OLLAMA_MODEL" envDefault:"llama3"`
	InferenceMaxRetries int           `env:"INFERENCE_MAX_RETRIES" envDefault:"3"`
	InferenceTimeout    time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"30s"`
	OpenAIKey           string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL"`
	OpenAIModel         string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Slack
	SlackBotToken       string        `env:"SLACK_BOT_TOKEN"`
	SlackSigningSecret  string        `env:"SLACK_SIGNING_SECRET"`
	SlackAPIURL         string        `env:"SLACK_API_URL" envDefault:"https://slack.com/api/"`
	SlackTimeout        time.Duration `env:"SLACK_TIMEOUT" envDefault:"10s"`
	SlackSummaryChannel string        `env:"SLACK_SUMMARY_CHANNEL" envDefault:"all-whatsbot"`
	SlackEventMode      string        `env:"SLACK_EVENT_MODE" envDefault:"inline"` // "inline" or "queue"

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds

	// Queue
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" or "nats"
	QueueURL      string `env:"QUEUE_URL"`
}

// Load reads configuration from environment variables with defaults and
// fails when a required key is missing or empty.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ModelName is the model the configured LLM provider talks to.
func (c Config) ModelName() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIModel
	}
	return c.OllamaModel
}
