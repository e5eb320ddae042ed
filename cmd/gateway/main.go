package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gobwas/ws"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickplane/tickplane/cmd/gateway/internal/gateway"
	"github.com/tickplane/tickplane/cmd/gateway/internal/hub"
	"github.com/tickplane/tickplane/cmd/gateway/internal/repository"
	"github.com/tickplane/tickplane/pkg/config"
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
	repo := repository.NewRedisStore(rdb)

	wsHub := hub.NewHub(repo, logger)

	validSymbols := make(map[string]bool)
	for _, s := range cfg.Gateway.ValidSymbols {
		validSymbols[s] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}

		client := gateway.NewClient(conn, wsHub, logger, validSymbols)
		client.Start()
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux}

	go func() {
		logger.Info("Gateway started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			// ConfigurationError: cannot bind the listening port
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	srv.Shutdown(context.Background())
	repo.Close()
	logger.Info("Shutdown Complete")
}
