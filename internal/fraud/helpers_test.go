package fraud

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"fraud-detection-service/internal/cache"
	"fraud-detection-service/internal/client"
	"fraud-detection-service/internal/util"
)

// testKV is an in-memory cache backend with TTL support driven by an
// adjustable clock, so tests can fast-forward past expirations.
type testKV struct {
	mu     sync.Mutex
	data   map[string]testEntry
	now    time.Time
	getErr error
	setErr error
}

type testEntry struct {
	value     string
	expiresAt time.Time
}

func newTestKV() *testKV {
	return &testKV{
		data: make(map[string]testEntry),
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (kv *testKV) advance(d time.Duration) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.now = kv.now.Add(d)
}

func (kv *testKV) Get(ctx context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.getErr != nil {
		return "", kv.getErr
	}
	e, ok := kv.data[key]
	if !ok || (!e.expiresAt.IsZero() && kv.now.After(e.expiresAt)) {
		return "", client.ErrKeyNotFound
	}
	return e.value, nil
}

func (kv *testKV) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.setErr != nil {
		return kv.setErr
	}
	e := testEntry{value: value}
	if expiration > 0 {
		e.expiresAt = kv.now.Add(expiration)
	}
	kv.data[key] = e
	return nil
}

func (kv *testKV) Del(ctx context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	for _, k := range keys {
		delete(kv.data, k)
	}
	return nil
}

func (kv *testKV) Scan(ctx context.Context, pattern string) ([]string, error) {
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

// fakeFlaggedStore is an in-memory durable store for the reference tables,
// counting full loads and point lookups so tests can assert the two-tier
// lookup behavior.
type fakeFlaggedStore struct {
	mu        sync.Mutex
	locations []string
	devices   []string
	accounts  []int64

	err error

	fullLoads    int
	pointLookups int
}

func (s *fakeFlaggedStore) FlaggedLocations(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.fullLoads++
	return lowerAll(s.locations), nil
}

func (s *fakeFlaggedStore) FlaggedDevices(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.fullLoads++
	return lowerAll(s.devices), nil
}

func (s *fakeFlaggedStore) FlaggedAccounts(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.fullLoads++
	return slices.Clone(s.accounts), nil
}

func (s *fakeFlaggedStore) LocationFlagged(ctx context.Context, location string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.pointLookups++
	return slices.Contains(lowerAll(s.locations), strings.ToLower(location)), nil
}

func (s *fakeFlaggedStore) DeviceFlagged(ctx context.Context, device string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.pointLookups++
	return slices.Contains(lowerAll(s.devices), strings.ToLower(device)), nil
}

func (s *fakeFlaggedStore) FlaggedAccountIDs(ctx context.Context, ids []int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.pointLookups++
	var flagged []int64
	for _, id := range ids {
		if slices.Contains(s.accounts, id) && !slices.Contains(flagged, id) {
			flagged = append(flagged, id)
		}
	}
	return flagged, nil
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func newTestCache(kv *testKV) *cache.Store {
	return cache.NewStore(kv, "records:")
}

func newTestEngine(kv *testKV, store *fakeFlaggedStore) *Engine {
	cacheStore := newTestCache(kv)
	resolver := NewResolver(cacheStore, store, 5*time.Minute, util.Get())
	counter := NewRateCounter(cacheStore, 2*time.Minute, util.Get())
	return NewEngine(resolver, counter, 3, util.Get())
}
