package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricescout/zap-scraper/internal/config"
	"github.com/pricescout/zap-scraper/internal/database"
)

// Standalone outbox relay: moves pending events from Postgres to Redis
// streams. Run it next to the API server when the in-process relay is
// disabled, or on its own for catch-up after an outage.
func main() {
	var (
		pollInterval = flag.Duration("poll-interval", 5*time.Second, "Outbox poll interval")
		batchSize    = flag.Int("batch-size", 100, "Events per poll")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	db, err := database.New(ctx, database.ConfigFromEnv(cfg.Database))
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	relay := database.NewRelay(db, redisClient, logger, database.RelayConfig{
		PollInterval: *pollInterval,
		BatchSize:    *batchSize,
	})

	if err := relay.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("relay stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("relay stopped")
}
