// Package producer generates synthetic transactions for load and demo runs.
// Only the message shape matters to the rest of the system; the generator
// itself is a toy.
package producer

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/model"
)

var (
	locations = []string{
		"New York", "London", "Paris", "Toronto", "Los Angeles", "Russia",
		"Japan", "South Africa", "Spain", "India", "Egypt", "China", "Australia",
	}
	devices = []string{
		"iPhone 15", "Samsung Galaxy S24", "iPad Pro", "MacBook Pro",
		"Dell XPS", "Google Pixel 8",
	}
	categories = []string{
		"Groceries", "Electronics", "Clothing", "Travel", "Dining",
		"Entertainment", "Health", "Utilities", "Education", "Automotive",
	}
)

// Worker publishes random transactions to the topic while toggled on.
type Worker struct {
	producer *client.KafkaProducer
	logger   *zap.Logger
	interval time.Duration
	running  atomic.Bool
}

func NewWorker(producer *client.KafkaProducer, interval time.Duration, logger *zap.Logger) *Worker {
	return &Worker{
		producer: producer,
		logger:   logger,
		interval: interval,
	}
}

func (w *Worker) SetRunning(state bool) {
	w.running.Store(state)
}

func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// Run produces transactions until ctx is cancelled. While toggled off it
// idles, checking again every second.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("mock data producer worker started")

	for {
		if ctx.Err() != nil {
			w.logger.Info("mock data producer worker stopped")
			return nil
		}

		if !w.running.Load() {
			w.sleep(ctx, time.Second)
			continue
		}

		tx := generateTransaction()
		payload, err := json.Marshal(tx)
		if err != nil {
			w.logger.Error("failed to marshal transaction", zap.Error(err))
			continue
		}

		if err := w.producer.ProduceMessage(ctx, []byte(uuid.NewString()), payload); err != nil {
			w.logger.Error("error producing message to kafka", zap.Error(err))
			w.sleep(ctx, time.Second)
			continue
		}

		w.logger.Info("produced transaction",
			zap.Int64("account_id", tx.AccountID),
			zap.String("amount", tx.Amount.String()))

		w.sleep(ctx, w.interval)
	}
}

// ToggleHandler starts or stops generation: POST /toggle?state=true|false.
func (w *Worker) ToggleHandler(rw http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state") == "true"
	w.SetRunning(state)

	message := "data generation stopped"
	if state {
		message = "data generation started"
	}
	w.logger.Info(message)

	writeJSON(rw, http.StatusOK, map[string]any{
		"isRunning": state,
		"message":   message,
	})
}

// StatusHandler reports whether generation is running: GET /status.
func (w *Worker) StatusHandler(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"isRunning": w.IsRunning(),
	})
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func generateTransaction() model.Transaction {
	amount := decimal.NewFromFloat(rand.Float64() * 15000 / float64(rand.Intn(9)+1)).Round(2)

	return model.Transaction{
		Amount:            amount,
		TimeOfTransaction: time.Now().UTC(),
		AccountID:         int64(rand.Intn(3000) + 1000),
		ReceipientID:      int64(rand.Intn(3000) + 1000),
		Location:          locations[rand.Intn(len(locations))],
		Device:            devices[rand.Intn(len(devices))],
		Category:          categories[rand.Intn(len(categories))],
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
