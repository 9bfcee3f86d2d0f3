package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/config"
	"fraud-detection-service/internal/producer"
	"fraud-detection-service/internal/util"
)

func main() {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	kafkaProducer, err := client.NewKafkaProducer(cfg, util.Get())
	if err != nil {
		util.Fatal("failed to initialize Kafka producer", util.ErrorField(err))
	}
	defer kafkaProducer.Close()

	worker := producer.NewWorker(kafkaProducer, time.Second, util.Get())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /toggle", worker.ToggleHandler)
	mux.HandleFunc("GET /status", worker.StatusHandler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return worker.Run(groupCtx)
	})

	group.Go(func() error {
		util.Info("starting producer control server", util.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("control server failed: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		util.Fatal("producer terminated", util.ErrorField(err))
	}
	util.Info("producer shutdown completed")
}
