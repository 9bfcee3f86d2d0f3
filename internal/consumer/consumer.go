// Package consumer implements the stream-processing loop: fetch a message,
// evaluate it, persist the result, and only then commit the offset. An
// uncommitted message is redelivered after a restart or rebalance, which is
// the at-least-once contract; downstream deduplication is the operator's
// concern.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"fraud-detection-service/internal/model"
)

// State tracks where the consumer is in its lifecycle.
type State int32

const (
	StateStarting State = iota
	StateSubscribed
	StateConsuming
	StateProcessingMessage
	StateStopping
	StateStopped
	// StateFaulted absorbs an unrecoverable subscribe failure.
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateSubscribed:
		return "subscribed"
	case StateConsuming:
		return "consuming"
	case StateProcessingMessage:
		return "processing_message"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// MessageSource abstracts the broker. *client.KafkaConsumer is the
// production implementation.
type MessageSource interface {
	Subscribe(ctx context.Context) error
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RecordStore persists evaluated transactions.
type RecordStore interface {
	InsertRecord(ctx context.Context, tx *model.Transaction) (int64, error)
}

// Evaluator produces a fraud verdict for a transaction. It never fails; the
// rule engine's fail-open contract lives behind this interface.
type Evaluator interface {
	Evaluate(ctx context.Context, tx *model.Transaction) model.FraudVerdict
}

// Metrics receives per-message processing outcomes.
type Metrics interface {
	RecordProcessed(duration time.Duration, fraud bool)
	RecordFailure()
}

type Consumer struct {
	source  MessageSource
	store   RecordStore
	engine  Evaluator
	metrics Metrics
	logger  *zap.Logger

	pollInterval time.Duration
	errorPause   time.Duration

	state atomic.Int32
}

func New(source MessageSource, store RecordStore, engine Evaluator, metrics Metrics, logger *zap.Logger) *Consumer {
	return &Consumer{
		source:       source,
		store:        store,
		engine:       engine,
		metrics:      metrics,
		logger:       logger,
		pollInterval: 5 * time.Second,
		errorPause:   time.Second,
	}
}

// State returns the consumer's current lifecycle state.
func (c *Consumer) State() State {
	return State(c.state.Load())
}

func (c *Consumer) setState(s State) {
	c.state.Store(int32(s))
}

// Run drives the consume loop until ctx is cancelled. It returns an error
// only when the initial subscription cannot be established; per-message
// failures are logged and the loop keeps polling.
func (c *Consumer) Run(ctx context.Context) error {
	c.setState(StateStarting)
	c.logger.Info("transaction consumer starting")

	if err := c.source.Subscribe(ctx); err != nil {
		c.setState(StateFaulted)
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	c.setState(StateSubscribed)

	for {
		if ctx.Err() != nil {
			break
		}
		c.setState(StateConsuming)

		msg, ok := c.poll(ctx)
		if !ok {
			continue
		}

		c.setState(StateProcessingMessage)
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("error processing message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			if c.metrics != nil {
				c.metrics.RecordFailure()
			}
			// Pause so a poison message or a dead store does not spin the
			// loop; the offset stays uncommitted so the message comes back.
			c.pause(ctx)
		}
	}

	c.setState(StateStopping)
	c.logger.Info("transaction consumer stopping")

	if err := c.source.Close(); err != nil {
		c.logger.Error("failed to release subscription", zap.Error(err))
	}

	c.setState(StateStopped)
	c.logger.Info("transaction consumer stopped")
	return nil
}

// poll waits up to the poll interval for one message. Returning ok=false
// means either no message arrived or a broker-level error occurred; both
// just loop again.
func (c *Consumer) poll(ctx context.Context) (kafka.Message, bool) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollInterval)
	defer cancel()

	msg, err := c.source.FetchMessage(pollCtx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// Shutting down.
		case errors.Is(err, context.DeadlineExceeded):
			// No message within the poll interval.
		default:
			c.logger.Error("error consuming message", zap.Error(err))
		}
		return kafka.Message{}, false
	}
	return msg, true
}

func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	start := time.Now()

	var inbound model.Transaction
	if err := json.Unmarshal(msg.Value, &inbound); err != nil {
		c.logger.Error("json deserialization failed",
			zap.ByteString("message", msg.Value),
			zap.Error(err))
		return fmt.Errorf("failed to deserialize transaction: %w", err)
	}

	// Fresh record with the fraud flag reset: the producer's fraud-related
	// fields are not trusted.
	record := &model.Transaction{
		Amount:            inbound.Amount,
		TimeOfTransaction: inbound.TimeOfTransaction,
		AccountID:         inbound.AccountID,
		ReceipientID:      inbound.ReceipientID,
		Location:          inbound.Location,
		Device:            inbound.Device,
		Category:          inbound.Category,
		IsFraud:           false,
	}

	c.logger.Debug("processing transaction",
		zap.Int64("account_id", record.AccountID),
		zap.String("amount", record.Amount.String()))

	verdict := c.engine.Evaluate(ctx, record)
	record.IsFraud = verdict.IsFraud
	record.FraudReason = verdict.Reason

	// Once evaluation is done, let persistence and the offset commit finish
	// even if shutdown begins, so a restart does not double-process.
	finishCtx := context.WithoutCancel(ctx)

	id, err := c.store.InsertRecord(finishCtx, record)
	if err != nil {
		c.logger.Error("database save failed", zap.Error(err))
		return fmt.Errorf("failed to persist transaction: %w", err)
	}
	record.TransactionID = id

	if err := c.source.CommitMessages(finishCtx, msg); err != nil {
		c.logger.Error("offset commit failed",
			zap.Int64("transaction_id", id),
			zap.Error(err))
		return err
	}

	c.logger.Info("transaction saved",
		zap.Int64("transaction_id", id),
		zap.Int64("account_id", record.AccountID),
		zap.String("amount", record.Amount.String()),
		zap.Bool("is_fraud", record.IsFraud),
		zap.String("fraud_reason", record.FraudReason))

	if c.metrics != nil {
		c.metrics.RecordProcessed(time.Since(start), record.IsFraud)
	}
	return nil
}

func (c *Consumer) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.errorPause):
	}
}
