package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tickplane/tickplane/cmd/trigger/internal/bus"
	"github.com/tickplane/tickplane/cmd/trigger/internal/engine"
	"github.com/tickplane/tickplane/cmd/trigger/internal/notify"
	"github.com/tickplane/tickplane/cmd/trigger/internal/store"
	"github.com/tickplane/tickplane/pkg/config"
	"github.com/tickplane/tickplane/pkg/models"
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
	if err := db.AutoMigrate(&models.Position{}, &models.UserBalance{}); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	dispatcher := notify.NewDispatcher(&kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.NotificationTopic,
		Balancer: &kafka.LeastBytes{},
	})
	defer dispatcher.Close()

	eng := engine.NewEngine(
		store.NewGormStore(db),
		dispatcher,
		cfg.Trigger.QuoteSuffix,
		cfg.Trigger.DebounceInterval,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	sub := bus.NewSubscriber(ctx, rdb, cfg.Trigger.Symbols)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.Info("Shutdown signal received")
		cancel()
		sub.Close()
	}()

	logger.Info("Trigger engine started",
		zap.Strings("symbols", cfg.Trigger.Symbols),
		zap.Duration("debounce", cfg.Trigger.DebounceInterval))

	sub.Run(ctx, eng.HandleTick)

	rdb.Close()
	logger.Info("Shutdown Complete")
}
