package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fraud-detection-service/internal/cache"
	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/model"
	"fraud-detection-service/internal/util"
)

type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (kv *memKV) Get(ctx context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.getErr != nil {
		return "", kv.getErr
	}
	v, ok := kv.data[key]
	if !ok {
		return "", client.ErrKeyNotFound
	}
	return v, nil
}

func (kv *memKV) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = value
	return nil
}

func (kv *memKV) Del(ctx context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	for _, k := range keys {
		delete(kv.data, k)
	}
	return nil
}

func (kv *memKV) Scan(ctx context.Context, pattern string) ([]string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range kv.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

type fakeQueryStore struct {
	records []model.Transaction
	err     error

	pageQueries  int
	countQueries int
}

func (s *fakeQueryStore) GetRecords(ctx context.Context, offset, limit int) ([]model.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.pageQueries++
	if offset >= len(s.records) {
		return []model.Transaction{}, nil
	}
	end := min(offset+limit, len(s.records))
	return s.records[offset:end], nil
}

func (s *fakeQueryStore) CountRecords(ctx context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.countQueries++
	return len(s.records), nil
}

func (s *fakeQueryStore) GetRecordByID(ctx context.Context, id int64) ([]model.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.pageQueries++
	for _, r := range s.records {
		if r.TransactionID == id {
			return []model.Transaction{r}, nil
		}
	}
	return []model.Transaction{}, nil
}

func (s *fakeQueryStore) GetRecordsByAccountID(ctx context.Context, accountID int64, offset, limit int) ([]model.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.pageQueries++
	var out []model.Transaction
	for _, r := range s.records {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	if offset >= len(out) {
		return []model.Transaction{}, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (s *fakeQueryStore) CountRecordsByAccountID(ctx context.Context, accountID int64) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.countQueries++
	n := 0
	for _, r := range s.records {
		if r.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (s *fakeQueryStore) GetRecordsByRecipientID(ctx context.Context, recipientID int64, offset, limit int) ([]model.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.pageQueries++
	var out []model.Transaction
	for _, r := range s.records {
		if r.ReceipientID == recipientID {
			out = append(out, r)
		}
	}
	if offset >= len(out) {
		return []model.Transaction{}, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (s *fakeQueryStore) CountRecordsByRecipientID(ctx context.Context, recipientID int64) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.countQueries++
	n := 0
	for _, r := range s.records {
		if r.ReceipientID == recipientID {
			n++
		}
	}
	return n, nil
}

func testRecords(n int) []model.Transaction {
	records := make([]model.Transaction, n)
	for i := range records {
		records[i] = model.Transaction{
			TransactionID:     int64(i + 1),
			Amount:            decimal.NewFromInt(int64(100 * (i + 1))),
			TimeOfTransaction: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
			AccountID:         int64(i%2 + 1),
			ReceipientID:      int64(i%3 + 10),
			Location:          "Paris",
			Device:            "MacBook Pro",
			Category:          "Dining",
		}
	}
	return records
}

func newTestService(kv *memKV, store *fakeQueryStore) *RecordService {
	cacheStore := cache.NewStore(kv, "records:")
	return NewRecordService(store, cacheStore, time.Minute, util.Get())
}

func TestRecordService_PageServedFromCacheOnRepeat(t *testing.T) {
	ctx := context.Background()
	store := &fakeQueryStore{records: testRecords(5)}
	svc := newTestService(newMemKV(), store)

	first, err := svc.GetRecords(ctx, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalCount != 5 || first.TotalPages != 3 || len(first.Data) != 2 {
		t.Fatalf("unexpected page: %+v", first)
	}
	if first.HasPrevious || !first.HasNext {
		t.Errorf("page bookkeeping wrong: %+v", first)
	}

	second, err := svc.GetRecords(ctx, 0, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.pageQueries != 1 || store.countQueries != 1 {
		t.Errorf("repeat page should come from cache: pages=%d counts=%d",
			store.pageQueries, store.countQueries)
	}
	if second.TotalCount != first.TotalCount || len(second.Data) != len(first.Data) {
		t.Errorf("cached page differs: %+v vs %+v", second, first)
	}
}

func TestRecordService_DistinctPagesCachedSeparately(t *testing.T) {
	ctx := context.Background()
	store := &fakeQueryStore{records: testRecords(5)}
	svc := newTestService(newMemKV(), store)

	if _, err := svc.GetRecords(ctx, 0, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err := svc.GetRecords(ctx, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.pageQueries != 2 {
		t.Errorf("second page needs its own store query, got %d", store.pageQueries)
	}
	if page.CurrentPage != 2 || !page.HasPrevious || !page.HasNext {
		t.Errorf("unexpected page bookkeeping: %+v", page)
	}
}

func TestRecordService_ClearRecordCachesForcesReload(t *testing.T) {
	ctx := context.Background()
	store := &fakeQueryStore{records: testRecords(3)}
	svc := newTestService(newMemKV(), store)

	if _, err := svc.GetRecords(ctx, 0, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.ClearRecordCaches(ctx)
	if _, err := svc.GetRecords(ctx, 0, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.pageQueries != 2 {
		t.Errorf("flushed cache should force a reload, got %d queries", store.pageQueries)
	}
}

func TestRecordService_LookupByIDCached(t *testing.T) {
	ctx := context.Background()
	store := &fakeQueryStore{records: testRecords(3)}
	svc := newTestService(newMemKV(), store)

	for i := 0; i < 2; i++ {
		records, err := svc.GetRecordByID(ctx, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || records[0].TransactionID != 2 {
			t.Fatalf("unexpected lookup result: %+v", records)
		}
	}
	if store.pageQueries != 1 {
		t.Errorf("repeat lookup should come from cache, got %d queries", store.pageQueries)
	}
}

func TestRecordService_LookupByIDMissingIsEmptyNotError(t *testing.T) {
	store := &fakeQueryStore{records: testRecords(3)}
	svc := newTestService(newMemKV(), store)

	records, err := svc.GetRecordByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty result, got %+v", records)
	}
}

func TestRecordService_AccountAndRecipientFilters(t *testing.T) {
	ctx := context.Background()
	store := &fakeQueryStore{records: testRecords(6)}
	svc := newTestService(newMemKV(), store)

	byAccount, err := svc.GetRecordsByAccountID(ctx, 1, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range byAccount.Data {
		if r.AccountID != 1 {
			t.Errorf("account filter leaked record %+v", r)
		}
	}
	if byAccount.TotalCount != 3 {
		t.Errorf("expected 3 records for account 1, got %d", byAccount.TotalCount)
	}

	byRecipient, err := svc.GetRecordsByRecipientID(ctx, 10, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range byRecipient.Data {
		if r.ReceipientID != 10 {
			t.Errorf("recipient filter leaked record %+v", r)
		}
	}
}

func TestRecordService_CacheFailureFallsThroughToStore(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("redis unreachable")
	store := &fakeQueryStore{records: testRecords(2)}
	svc := newTestService(kv, store)

	page, err := svc.GetRecords(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("cache failure must degrade, not fail: %v", err)
	}
	if page.TotalCount != 2 {
		t.Errorf("expected store result, got %+v", page)
	}
}

func TestRecordService_StoreErrorPropagates(t *testing.T) {
	store := &fakeQueryStore{err: errors.New("db down")}
	svc := newTestService(newMemKV(), store)

	if _, err := svc.GetRecords(context.Background(), 0, 10); err == nil {
		t.Error("expected store error to surface")
	}
}
