package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"luna-bot/internal/config"
	"luna-bot/internal/llm"
	"luna-bot/internal/persist"
	"luna-bot/internal/state"
	"luna-bot/internal/store"
	"luna-bot/internal/telegram"
	"luna-bot/internal/web"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	ctx := context.Background()

	st := newStore(cfg)
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("failed to close store: %v", err)
		}
	}()

	// The recovery chain must finish before any event is accepted. The
	// backup snapshot file serves both backends: the file store rotates
	// into it on every save, and the Redis edition uses it as a local
	// fallback when the service holds no usable state at startup.
	snap, source := store.LoadWithRecovery(ctx, st, store.NewFileLoader(cfg.BackupFilePath))
	log.Printf("loaded state from %s: %d users, %d messages", source, snap.TotalUsers, snap.TotalMessages)

	manager := state.NewManager(st, snap)

	daemon := persist.New(manager, st, cfg.SaveInterval)
	if err := daemon.Start(); err != nil {
		log.Fatalf("failed to start persistence daemon: %v", err)
	}
	defer daemon.Stop()
	daemon.HandleSignals(cfg.ShutdownSaveBudget)

	webServer := web.NewServer(manager, daemon, st.Name(), cfg.WebPort)
	go func() {
		if err := webServer.Start(); err != nil {
			log.Printf("web server stopped: %v", err)
		}
	}()

	var llmClient llm.Client
	if cfg.GroqAPIKey != "" {
		llmClient = llm.NewOpenAI(cfg.GroqAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTemperature)
	} else {
		log.Printf("no LLM API key configured, canned fallback replies only")
	}

	if cfg.TelegramBotToken == "" {
		// degraded mode: the health endpoints stay up even when the chat
		// transport cannot be reached at all
		log.Printf("no telegram token configured, running in web-only mode")
		select {}
	}

	bot, err := telegram.New(cfg.TelegramBotToken, llmClient, manager, daemon, telegram.Options{
		LLMTimeout:     cfg.LLMTimeout,
		Workers:        cfg.DispatchWorkers,
		QueueSize:      cfg.DispatchQueueSize,
		DedupCapacity:  cfg.DedupCapacity,
		MaxRestarts:    cfg.MaxRestarts,
		RestartBackoff: cfg.RestartBackoff,
		StorageName:    st.Name(),
	})
	if err != nil {
		log.Printf("failed to create bot, running in web-only mode: %v", err)
		select {}
	}

	bot.Start(ctx)
}

func newStore(cfg *config.Config) store.Store {
	if cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(cfg.RedisURL, cfg.RedisKeyPrefix)
		if err == nil {
			log.Printf("using redis store")
			return rs
		}
		log.Printf("redis unavailable, falling back to file store: %v", err)
	}
	fs, err := store.NewFileStore(cfg.SnapshotFilePath, cfg.BackupFilePath)
	if err != nil {
		log.Fatalf("failed to init file store: %v", err)
	}
	log.Printf("using file store at %s", cfg.SnapshotFilePath)
	return fs
}
