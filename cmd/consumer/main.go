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

	"fraud-detection-service/internal/cache"
	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/config"
	"fraud-detection-service/internal/consumer"
	"fraud-detection-service/internal/fraud"
	"fraud-detection-service/internal/metrics"
	"fraud-detection-service/internal/repository/postgres"
	"fraud-detection-service/internal/util"
)

func main() {
	cfg := config.LoadConfig()
	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

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

	if cfg.IsDevelopment() {
		if err := pgClient.EnsureSchema(ctx); err != nil {
			util.Fatal("failed to ensure schema", util.ErrorField(err))
		}
	}

	kafkaConsumer, err := client.NewKafkaConsumer(cfg, util.Get())
	if err != nil {
		util.Fatal("failed to initialize Kafka consumer", util.ErrorField(err))
	}

	cacheStore := cache.NewStore(redisClient, cfg.Redis.InstanceName)
	flaggedRepo := postgres.NewFlaggedRepository(pgClient, util.Get())
	recordRepo := postgres.NewRecordRepository(pgClient, util.Get())

	resolver := fraud.NewResolver(cacheStore, flaggedRepo, cfg.Fraud.FlaggedDataTTL, util.Get())
	rateCounter := fraud.NewRateCounter(cacheStore, cfg.Fraud.RecentTxTTL, util.Get())
	engine := fraud.NewEngine(resolver, rateCounter, cfg.Fraud.RapidTxThreshold, util.Get())

	collector := metrics.NewCollector(util.Get())
	streamConsumer := consumer.New(kafkaConsumer, recordRepo, engine, collector, util.Get())

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux(collector),
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return streamConsumer.Run(groupCtx)
	})

	group.Go(func() error {
		util.Info("starting metrics server", util.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		util.Fatal("consumer terminated", util.ErrorField(err))
	}
	util.Info("consumer shutdown completed")
}

func metricsMux(collector *metrics.Collector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"fraud-consumer"}`))
	})
	return mux
}
