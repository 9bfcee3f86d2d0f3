package fraud

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"fraud-detection-service/internal/cache"
)

// Cache keys for the materialized reference sets.
const (
	cacheKeyFlaggedLocations = "FlaggedLocations"
	cacheKeyFlaggedDevices   = "FlaggedDevices"
	cacheKeyFlaggedAccounts  = "FlaggedAccounts"
)

// Resolver answers flagged-set membership questions with a two-tier
// strategy: the full set is cached with a bounded TTL, and a candidate that
// misses the cached set gets a targeted point lookup against the durable
// store. Confirmed candidates are added to the cached set in place, so a
// freshly flagged value becomes visible without waiting out the TTL.
//
// Concurrent consumer instances can race on the add-and-overwrite step and
// lose an update; that is tolerated, since the point lookup restores
// correctness on the next miss.
type Resolver struct {
	cache  *cache.Store
	store  FlaggedStore
	ttl    time.Duration
	logger *zap.Logger
}

func NewResolver(cacheStore *cache.Store, store FlaggedStore, ttl time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		cache:  cacheStore,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// IsFlaggedLocation reports whether the transaction's location is flagged.
// Blank locations never match.
func (r *Resolver) IsFlaggedLocation(ctx context.Context, location string) (bool, error) {
	if strings.TrimSpace(location) == "" {
		return false, nil
	}
	return r.isFlaggedString(ctx, cacheKeyFlaggedLocations, location,
		r.store.FlaggedLocations, r.store.LocationFlagged)
}

// IsFlaggedDevice reports whether the transaction's device is flagged.
// Blank device labels never match.
func (r *Resolver) IsFlaggedDevice(ctx context.Context, device string) (bool, error) {
	if strings.TrimSpace(device) == "" {
		return false, nil
	}
	return r.isFlaggedString(ctx, cacheKeyFlaggedDevices, device,
		r.store.FlaggedDevices, r.store.DeviceFlagged)
}

// IsFlaggedAccount tests the source and recipient account ids against the
// flagged-account set in one call.
func (r *Resolver) IsFlaggedAccount(ctx context.Context, accountID, recipientID int64) (bool, error) {
	set, err := loadSet(ctx, r, cacheKeyFlaggedAccounts, r.store.FlaggedAccounts)
	if err != nil {
		return false, err
	}

	if slices.Contains(set, recipientID) || slices.Contains(set, accountID) {
		return true, nil
	}

	// Neither id in the cached set: point lookup for just these two.
	flagged, err := r.store.FlaggedAccountIDs(ctx, []int64{recipientID, accountID})
	if err != nil {
		return false, err
	}
	if len(flagged) == 0 {
		return false, nil
	}

	for _, id := range flagged {
		if !slices.Contains(set, id) {
			set = append(set, id)
		}
	}
	r.refreshCache(ctx, cacheKeyFlaggedAccounts, set)
	r.logger.Info("added newly flagged account ids to cache",
		zap.Int64s("account_ids", flagged))

	return true, nil
}

func (r *Resolver) isFlaggedString(
	ctx context.Context,
	cacheKey, candidate string,
	loadAll func(context.Context) ([]string, error),
	existsInStore func(context.Context, string) (bool, error),
) (bool, error) {
	set, err := loadSet(ctx, r, cacheKey, loadAll)
	if err != nil {
		return false, err
	}

	normalized := strings.ToLower(candidate)
	if slices.Contains(set, normalized) {
		return true, nil
	}

	// Cached set missed this candidate: cheap point lookup, not a reload.
	exists, err := existsInStore(ctx, candidate)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	r.refreshCache(ctx, cacheKey, append(set, normalized))
	r.logger.Info("added newly flagged entry to cache",
		zap.String("cache_key", cacheKey),
		zap.String("value", candidate))

	return true, nil
}

// loadSet fetches the materialized set from cache, falling back to a full
// load from the durable store on a miss or a cache failure. The store is
// authoritative: a broken cache degrades performance, never correctness.
func loadSet[T any](ctx context.Context, r *Resolver, cacheKey string, loadAll func(context.Context) ([]T, error)) ([]T, error) {
	set, found, err := cache.GetJSON[[]T](ctx, r.cache, cacheKey)
	if err != nil {
		r.logger.Warn("cache unavailable, falling back to durable store",
			zap.String("cache_key", cacheKey),
			zap.Error(err))
	} else if found {
		r.logger.Debug("cache hit", zap.String("cache_key", cacheKey))
		return set, nil
	} else {
		r.logger.Debug("cache miss, fetching from durable store",
			zap.String("cache_key", cacheKey))
	}

	set, err = loadAll(ctx)
	if err != nil {
		return nil, err
	}
	r.refreshCache(ctx, cacheKey, set)
	return set, nil
}

// refreshCache overwrites the cached set, best effort.
func (r *Resolver) refreshCache(ctx context.Context, cacheKey string, set any) {
	if err := r.cache.Set(ctx, cacheKey, set, r.ttl); err != nil {
		r.logger.Warn("failed to refresh reference-set cache",
			zap.String("cache_key", cacheKey),
			zap.Error(err))
	}
}
