package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/promptvault/promptvault/internal/api"
	"github.com/promptvault/promptvault/internal/config"
	"github.com/promptvault/promptvault/internal/llm"
	"github.com/promptvault/promptvault/internal/store"
	"github.com/promptvault/promptvault/internal/store/seed"

	// Register storage engines.
	_ "github.com/promptvault/promptvault/internal/store/postgres"
	_ "github.com/promptvault/promptvault/internal/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	backend, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open store", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	if err := backend.Initialize(ctx); err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}

	if err := seed.Install(ctx, backend); err != nil {
		slog.Warn("seeding system prompts failed", "error", err)
	}

	// Redis connection (optional)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, rate limiting disabled", "error", err)
		}
		defer rdb.Close()
	}

	gateway := llm.NewGateway(backend, cfg.LLM.DefaultProvider, cfg.LLM.DefaultModel, logger)
	if cfg.LLM.OpenAIKey != "" {
		gateway.RegisterProvider(llm.NewOpenAIProvider(cfg.LLM.OpenAIKey))
	}
	if cfg.LLM.AnthropicKey != "" {
		gateway.RegisterProvider(llm.NewAnthropicProvider(cfg.LLM.AnthropicKey))
	}
	if cfg.LLM.OllamaURL != "" {
		gateway.RegisterProvider(llm.NewOllamaProvider(cfg.LLM.OllamaURL))
	}

	router := api.NewRouter(backend, rdb, gateway, cfg)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr(), "storage", cfg.Storage.Type)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
