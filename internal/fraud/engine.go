package fraud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fraud-detection-service/internal/model"
)

// failureReason is the generic verdict reason when evaluation itself fails.
const failureReason = "Fraud Check Failed"

// categoryThresholds are the static per-category amount limits for the
// unusual-amount rule. Amounts strictly above the threshold trigger;
// categories absent from the table never do.
var categoryThresholds = map[string]decimal.Decimal{
	"Groceries":     decimal.NewFromInt(3000),
	"Electronics":   decimal.NewFromInt(25000),
	"Clothing":      decimal.NewFromInt(5000),
	"Travel":        decimal.NewFromInt(40000),
	"Dining":        decimal.NewFromInt(2500),
	"Entertainment": decimal.NewFromInt(8000),
	"Health":        decimal.NewFromInt(10000),
	"Utilities":     decimal.NewFromInt(5000),
	"Education":     decimal.NewFromInt(60000),
	"Automotive":    decimal.NewFromInt(120000),
}

// ReferenceResolver answers flagged-set membership for the rules that need
// reference data. *Resolver is the production implementation.
type ReferenceResolver interface {
	IsFlaggedLocation(ctx context.Context, location string) (bool, error)
	IsFlaggedDevice(ctx context.Context, device string) (bool, error)
	IsFlaggedAccount(ctx context.Context, accountID, recipientID int64) (bool, error)
}

// Counter observes per-account transaction frequency. *RateCounter is the
// production implementation.
type Counter interface {
	Observe(ctx context.Context, accountID int64) (int, error)
}

// Engine evaluates every fraud rule against a transaction. All rules run on
// every call (reasons accumulate; there is no short-circuiting), and the
// engine never surfaces an error to its caller: an internal failure yields a
// not-fraud verdict with a generic reason. False negatives are preferred over
// stalling the pipeline.
type Engine struct {
	resolver  ReferenceResolver
	counter   Counter
	threshold int
	logger    *zap.Logger
}

func NewEngine(resolver ReferenceResolver, counter Counter, rapidTxThreshold int, logger *zap.Logger) *Engine {
	return &Engine{
		resolver:  resolver,
		counter:   counter,
		threshold: rapidTxThreshold,
		logger:    logger,
	}
}

// Evaluate runs all rules and returns the verdict. It never returns an error.
func (e *Engine) Evaluate(ctx context.Context, tx *model.Transaction) model.FraudVerdict {
	verdict, err := e.runRules(ctx, tx)
	if err != nil {
		e.logger.Error("error in fraud check",
			zap.Int64("account_id", tx.AccountID),
			zap.Error(err))
		return model.FraudVerdict{IsFraud: false, Reason: failureReason}
	}

	if verdict.IsFraud {
		e.logger.Warn("FRAUD DETECTED",
			zap.String("amount", tx.Amount.String()),
			zap.Int64("account_id", tx.AccountID),
			zap.Int64("recipient_id", tx.ReceipientID),
			zap.String("location", tx.Location),
			zap.Time("time", tx.TimeOfTransaction),
			zap.String("reasons", verdict.Reason))
	} else {
		e.logger.Info("clean transaction",
			zap.String("amount", tx.Amount.String()),
			zap.Int64("account_id", tx.AccountID),
			zap.Int64("recipient_id", tx.ReceipientID),
			zap.String("location", tx.Location))
	}

	return verdict
}

func (e *Engine) runRules(ctx context.Context, tx *model.Transaction) (model.FraudVerdict, error) {
	var reasons []string

	if categoryAmountExceeded(tx.Category, tx.Amount) {
		reasons = append(reasons, "Rule 1: Unusual Amount for Category")
	}

	flaggedLocation, err := e.resolver.IsFlaggedLocation(ctx, tx.Location)
	if err != nil {
		return model.FraudVerdict{}, err
	}
	if flaggedLocation {
		reasons = append(reasons, "Rule 2: Flagged Location")
	}

	flaggedDevice, err := e.resolver.IsFlaggedDevice(ctx, tx.Device)
	if err != nil {
		return model.FraudVerdict{}, err
	}
	if flaggedDevice {
		reasons = append(reasons, fmt.Sprintf("Rule 3: Flagged Device (%s)", tx.Device))
	}

	count, err := e.counter.Observe(ctx, tx.AccountID)
	if err != nil {
		return model.FraudVerdict{}, err
	}
	if count > e.threshold {
		e.logger.Warn("multiple rapid transactions detected",
			zap.Int64("account_id", tx.AccountID),
			zap.Int("count", count))
		reasons = append(reasons, "Rule 6: Multiple Rapid Transactions")
	}

	flaggedAccount, err := e.resolver.IsFlaggedAccount(ctx, tx.AccountID, tx.ReceipientID)
	if err != nil {
		return model.FraudVerdict{}, err
	}
	if flaggedAccount {
		reasons = append(reasons,
			fmt.Sprintf("Rule 4: Flagged Account ID(%d) or Recipient ID(%d)", tx.AccountID, tx.ReceipientID))
	}

	if unusualHour(tx.TimeOfTransaction) {
		reasons = append(reasons, "Rule 5: Unusual Time")
	}

	return model.FraudVerdict{
		IsFraud: len(reasons) > 0,
		Reason:  strings.Join(reasons, ", "),
	}, nil
}

func categoryAmountExceeded(category string, amount decimal.Decimal) bool {
	threshold, ok := categoryThresholds[category]
	if !ok {
		return false
	}
	return amount.GreaterThan(threshold)
}

// unusualHour reports whether the UTC hour falls in [2, 5).
func unusualHour(t time.Time) bool {
	hour := t.UTC().Hour()
	return hour >= 2 && hour < 5
}
