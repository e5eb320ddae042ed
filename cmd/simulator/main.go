package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/simulator/internal/simulator"
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

	basePrices := map[string]float64{
		"BTCUSDT": 50000.0,
		"ETHUSDT": 3000.0,
		"SOLUSDT": 150.0,
	}

	sim := simulator.NewTickSimulator(
		logger,
		queue.NewProducer(rdb),
		rdb,
		cfg.Feed.Symbols,
		basePrices,
		simulator.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))},
		simulator.RealClock{},
		cfg.Feed.QueueChannel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		cancel()
	}()

	sim.Run(ctx)

	rdb.Close()
	logger.Info("Shutdown Complete")
}
