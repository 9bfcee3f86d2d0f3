package fraud

import "context"

// FlaggedStore is the durable source of truth for the reference sets. The
// full-set loaders feed the cache; the point lookups serve targeted checks
// when a candidate misses the cached set.
type FlaggedStore interface {
	FlaggedLocations(ctx context.Context) ([]string, error)
	FlaggedDevices(ctx context.Context) ([]string, error)
	FlaggedAccounts(ctx context.Context) ([]int64, error)

	LocationFlagged(ctx context.Context, location string) (bool, error)
	DeviceFlagged(ctx context.Context, device string) (bool, error)
	FlaggedAccountIDs(ctx context.Context, ids []int64) ([]int64, error)
}
