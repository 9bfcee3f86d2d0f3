package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraud-detection-service/internal/cache"
	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/config"
	"fraud-detection-service/internal/handler"
	"fraud-detection-service/internal/repository/postgres"
	"fraud-detection-service/internal/service"
	"fraud-detection-service/internal/util"
)

func main() {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	redisClient, err := client.NewRedisClient(cfg, util.Get())
	if err != nil {
		util.Fatal("failed to initialize Redis client", util.ErrorField(err))
	}
	defer redisClient.Close()

	pgClient, err := client.NewPostgresClient(cfg, util.Get())
	if err != nil {
		util.Fatal("failed to initialize Postgres client", util.ErrorField(err))
	}
	defer pgClient.Close()

	cacheStore := cache.NewStore(redisClient, cfg.Redis.InstanceName)
	recordRepo := postgres.NewRecordRepository(pgClient, util.Get())
	recordService := service.NewRecordService(recordRepo, cacheStore, cfg.Fraud.FlaggedDataTTL, util.Get())
	recordHandler := handler.NewRecordHandler(recordService, util.Get())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(recordHandler, util.Get()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		util.Info("starting record query API",
			util.String("environment", cfg.Environment),
			util.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Fatal("server failed to start", util.ErrorField(err))
		}
	}()

	waitForShutdown(server)
}

func waitForShutdown(server *http.Server) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-signalChan
	util.Info("received shutdown signal", util.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		util.Error("failed to shutdown server gracefully", util.ErrorField(err))
	} else {
		util.Info("server shutdown completed")
	}
}
