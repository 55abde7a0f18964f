package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/axiomhub/axiom-gateway/internal/agent"
	"github.com/axiomhub/axiom-gateway/internal/channel/webchat"
	"github.com/axiomhub/axiom-gateway/internal/chat"
	"github.com/axiomhub/axiom-gateway/internal/config"
	"github.com/axiomhub/axiom-gateway/internal/llm"
	"github.com/axiomhub/axiom-gateway/internal/logging"
	"github.com/axiomhub/axiom-gateway/internal/scheduler"
	"github.com/axiomhub/axiom-gateway/internal/server"
	"github.com/axiomhub/axiom-gateway/internal/store"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	// Load configuration; fall back to env-driven defaults when the
	// file is absent.
	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.WithComponent("main")

	logger.Info("Starting Axiom-Gateway", "version", version)
	if err != nil {
		logger.Warn("Config file not loaded, using defaults", "path", *configPath, "error", err)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pick the session store. Redis when configured, in-memory
	// otherwise.
	var st store.Store
	var redisStore *store.RedisStore
	if cfg.Redis.Addr != "" {
		redisStore, err = store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Error("Redis unavailable, falling back to memory store", "error", err)
			st = store.NewMemoryStore()
		} else {
			logger.Info("Redis store connected", "addr", cfg.Redis.Addr)
			st = redisStore
		}
	} else {
		logger.Info("No Redis configured, using memory store")
		st = store.NewMemoryStore()
	}

	client := llm.NewClient(cfg.LLM)
	if !client.Configured() {
		logger.Warn("LLM API key or model not set, chat replies will report missing configuration")
	}

	loop := agent.NewLoop(client, logging.WithComponent("agent"))
	controller := chat.NewController(cfg.LLM, cfg.Chat, st, client, loop, logging.WithComponent("chat"))

	sched := scheduler.NewScheduler(st, cfg.Chat, logging.WithComponent("scheduler"))
	sched.Start()
	logger.Info("Scheduler started")

	var wc *webchat.Adapter
	if cfg.Channels.WebChat.Enabled {
		wc = webchat.NewAdapter(cfg.Channels.WebChat.Port)
		if err := wc.Start(ctx); err != nil {
			logger.Error("Failed to start webchat adapter", "error", err)
		} else {
			logger.Info("WebChat adapter started", "port", cfg.Channels.WebChat.Port)
			go chat.Dispatch(ctx, wc, controller, logging.WithComponent("dispatch"))
		}
	}

	srv := server.New(cfg, controller, logging.WithComponent("server"))
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if wc != nil {
		if err := wc.Stop(); err != nil {
			logger.Error("Failed to stop webchat adapter", "error", err)
		}
	}

	sched.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	if redisStore != nil {
		if err := redisStore.Close(); err != nil {
			logger.Error("Failed to close Redis", "error", err)
		}
	}

	logger.Info("Shutdown complete")
}
