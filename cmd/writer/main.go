package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tickplane/tickplane/cmd/writer/internal/writer"
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

	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	if err := db.AutoMigrate(&writer.TickRecord{}); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	// Dedicated connection for the consumer: its blocking pop occupies the
	// connection for the whole wait
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("Shutdown signal received")
		cancel()
	}()

	consumer := queue.NewConsumer(rdb, writer.NewTickStore(db), logger)
	consumer.Run(ctx, cfg.Feed.QueueChannel)

	rdb.Close()
	logger.Info("Shutdown Complete")
}
