package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/ingestor/internal/feed"
	"github.com/tickplane/tickplane/cmd/ingestor/internal/ingest"
	"github.com/tickplane/tickplane/pkg/config"
	"github.com/tickplane/tickplane/pkg/queue"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	producer := queue.NewProducer(rdb)
	ingestor := ingest.NewIngestor(producer, rdb, cfg.Feed.QueueChannel, logger)

	client := feed.NewClient(
		cfg.Feed.URL,
		cfg.Feed.Symbols,
		cfg.Feed.PingInterval,
		feed.FixedDelay{Delay: cfg.Feed.ReconnectDelay},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("Shutdown signal received")
		cancel()
	}()

	client.Run(ctx, func(raw []byte) {
		ingestor.HandleRaw(ctx, raw)
	})

	rdb.Close()
	logger.Info("Shutdown Complete")
}
