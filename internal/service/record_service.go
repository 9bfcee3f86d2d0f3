package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fraud-detection-service/internal/cache"
	"fraud-detection-service/internal/model"
)

const recordCachePrefix = "record_"

// RecordQueryStore is the read side of the records table.
type RecordQueryStore interface {
	GetRecords(ctx context.Context, offset, limit int) ([]model.Transaction, error)
	CountRecords(ctx context.Context) (int, error)
	GetRecordByID(ctx context.Context, id int64) ([]model.Transaction, error)
	GetRecordsByAccountID(ctx context.Context, accountID int64, offset, limit int) ([]model.Transaction, error)
	CountRecordsByAccountID(ctx context.Context, accountID int64) (int, error)
	GetRecordsByRecipientID(ctx context.Context, recipientID int64, offset, limit int) ([]model.Transaction, error)
	CountRecordsByRecipientID(ctx context.Context, recipientID int64) (int, error)
}

// RecordService serves the paginated query endpoints cache-aside: each page
// is cached under its own key with a bounded TTL, and an operator can flush
// all query caches after an out-of-band correction.
type RecordService struct {
	store  RecordQueryStore
	cache  *cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewRecordService(store RecordQueryStore, cacheStore *cache.Store, ttl time.Duration, logger *zap.Logger) *RecordService {
	return &RecordService{
		store:  store,
		cache:  cacheStore,
		ttl:    ttl,
		logger: logger,
	}
}

// GetRecords returns one page of all records.
func (s *RecordService) GetRecords(ctx context.Context, offset, limit int) (model.PaginatedResponse[model.Transaction], error) {
	cacheKey := fmt.Sprintf("%s%d_%d", recordCachePrefix, offset, limit)
	return s.getPageCached(ctx, cacheKey, offset, limit,
		func(ctx context.Context) ([]model.Transaction, error) {
			return s.store.GetRecords(ctx, offset, limit)
		},
		s.store.CountRecords,
	)
}

// GetRecordByID returns the record with the given transaction id; the result
// slice is empty when no such record exists.
func (s *RecordService) GetRecordByID(ctx context.Context, id int64) ([]model.Transaction, error) {
	cacheKey := fmt.Sprintf("%s%d", recordCachePrefix, id)

	if cached, found, err := cache.GetJSON[[]model.Transaction](ctx, s.cache, cacheKey); err != nil {
		s.logger.Warn("cache unavailable for record lookup",
			zap.String("cache_key", cacheKey), zap.Error(err))
	} else if found {
		s.logger.Debug("cache hit", zap.String("cache_key", cacheKey))
		return cached, nil
	}

	records, err := s.store.GetRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, records, s.ttl); err != nil {
		s.logger.Warn("failed to cache record lookup",
			zap.String("cache_key", cacheKey), zap.Error(err))
	}
	return records, nil
}

// GetRecordsByAccountID returns one page of records for a source account.
func (s *RecordService) GetRecordsByAccountID(ctx context.Context, accountID int64, offset, limit int) (model.PaginatedResponse[model.Transaction], error) {
	cacheKey := fmt.Sprintf("%saccount_%d_limit_%d_offset_%d", recordCachePrefix, accountID, limit, offset)
	return s.getPageCached(ctx, cacheKey, offset, limit,
		func(ctx context.Context) ([]model.Transaction, error) {
			return s.store.GetRecordsByAccountID(ctx, accountID, offset, limit)
		},
		func(ctx context.Context) (int, error) {
			return s.store.CountRecordsByAccountID(ctx, accountID)
		},
	)
}

// GetRecordsByRecipientID returns one page of records for a recipient.
func (s *RecordService) GetRecordsByRecipientID(ctx context.Context, recipientID int64, offset, limit int) (model.PaginatedResponse[model.Transaction], error) {
	cacheKey := fmt.Sprintf("%srecipient_%d_limit_%d_offset_%d", recordCachePrefix, recipientID, limit, offset)
	return s.getPageCached(ctx, cacheKey, offset, limit,
		func(ctx context.Context) ([]model.Transaction, error) {
			return s.store.GetRecordsByRecipientID(ctx, recipientID, offset, limit)
		},
		func(ctx context.Context) (int, error) {
			return s.store.CountRecordsByRecipientID(ctx, recipientID)
		},
	)
}

// ClearRecordCaches drops every cached query page, e.g. after an operator
// manually corrects a false positive in the store.
func (s *RecordService) ClearRecordCaches(ctx context.Context) {
	s.cache.ClearByPrefix(ctx, recordCachePrefix)
}

func (s *RecordService) getPageCached(
	ctx context.Context,
	cacheKey string,
	offset, limit int,
	fetch func(context.Context) ([]model.Transaction, error),
	count func(context.Context) (int, error),
) (model.PaginatedResponse[model.Transaction], error) {
	if cached, found, err := cache.GetJSON[model.PaginatedResponse[model.Transaction]](ctx, s.cache, cacheKey); err != nil {
		s.logger.Warn("cache unavailable for record page",
			zap.String("cache_key", cacheKey), zap.Error(err))
	} else if found {
		s.logger.Debug("cache hit", zap.String("cache_key", cacheKey))
		return cached, nil
	}

	total, err := count(ctx)
	if err != nil {
		return model.PaginatedResponse[model.Transaction]{}, err
	}
	records, err := fetch(ctx)
	if err != nil {
		return model.PaginatedResponse[model.Transaction]{}, err
	}

	response := model.NewPaginatedResponse(records, total, offset, limit)

	if err := s.cache.Set(ctx, cacheKey, response, s.ttl); err != nil {
		s.logger.Warn("failed to cache record page",
			zap.String("cache_key", cacheKey), zap.Error(err))
	}
	return response, nil
}
