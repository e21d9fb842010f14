package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Telegram token is deliberately not required: without it the process
	// degrades to web-only mode instead of exiting.
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	// LLM settings (OpenAI-compatible endpoint, Groq by default)
	GroqAPIKey     string        `env:"GROQ_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"llama-3.1-8b-instant"`
	LLMMaxTokens   int           `env:"LLM_MAX_TOKENS" envDefault:"120"`
	LLMTemperature float32       `env:"LLM_TEMPERATURE" envDefault:"0.8"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"10s"`

	// Storage: Redis when REDIS_URL is set, snapshot file otherwise
	RedisURL         string `env:"REDIS_URL"`
	RedisKeyPrefix   string `env:"REDIS_KEY_PREFIX" envDefault:"luna"`
	SnapshotFilePath string `env:"SNAPSHOT_FILE_PATH" envDefault:"data/luna_data.json"`
	BackupFilePath   string `env:"BACKUP_FILE_PATH" envDefault:"data/luna_backup.json"`

	// Persistence daemon
	SaveInterval       time.Duration `env:"SAVE_INTERVAL" envDefault:"60s"`
	ShutdownSaveBudget time.Duration `env:"SHUTDOWN_SAVE_BUDGET" envDefault:"5s"`

	// Dispatch pipeline
	DispatchWorkers   int `env:"DISPATCH_WORKERS" envDefault:"4"`
	DispatchQueueSize int `env:"DISPATCH_QUEUE_SIZE" envDefault:"64"`
	DedupCapacity     int `env:"DEDUP_CAPACITY" envDefault:"1000"`

	// Transport restart policy
	MaxRestarts    int           `env:"MAX_RESTARTS" envDefault:"10"`
	RestartBackoff time.Duration `env:"RESTART_BACKOFF" envDefault:"15s"`

	// Web server
	WebPort int `env:"PORT" envDefault:"10000"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
