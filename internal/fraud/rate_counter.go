package fraud

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fraud-detection-service/internal/cache"
)

// RateCounter tracks how many transactions an account has produced in the
// current unexpired window. Every observation resets the TTL, so the window
// slides forward on each hit: a steady stream from one account keeps the
// counter alive indefinitely. It counts "transactions since the last quiet
// gap", not a true trailing window, and that behavior is intentional.
//
// The count lives only in the cache store; an absent key reads as zero.
type RateCounter struct {
	cache  *cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewRateCounter(cacheStore *cache.Store, ttl time.Duration, logger *zap.Logger) *RateCounter {
	return &RateCounter{
		cache:  cacheStore,
		ttl:    ttl,
		logger: logger,
	}
}

// Observe records one transaction for the account and returns the
// post-increment count.
func (c *RateCounter) Observe(ctx context.Context, accountID int64) (int, error) {
	key := rateKey(accountID)

	count, _, err := cache.GetJSON[int](ctx, c.cache, key)
	if err != nil {
		return 0, err
	}

	count++

	if err := c.cache.Set(ctx, key, count, c.ttl); err != nil {
		return 0, err
	}

	c.logger.Debug("rate counter incremented",
		zap.Int64("account_id", accountID),
		zap.Int("count", count),
		zap.Duration("ttl", c.ttl))

	return count, nil
}

func rateKey(accountID int64) string {
	return fmt.Sprintf("recent_tx_count_%d", accountID)
}
