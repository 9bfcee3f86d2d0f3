package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"fraud-detection-service/internal/client"
)

// FlaggedRepository reads the pre-seeded reference tables of flagged
// locations, devices and accounts. The service never writes new flags; an
// operator (or an upstream job) owns that data.
type FlaggedRepository struct {
	client *client.PostgresClient
	logger *zap.Logger
}

func NewFlaggedRepository(client *client.PostgresClient, logger *zap.Logger) *FlaggedRepository {
	return &FlaggedRepository{client: client, logger: logger}
}

// FlaggedLocations returns the distinct flagged locations, lower-cased.
func (r *FlaggedRepository) FlaggedLocations(ctx context.Context) ([]string, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT DISTINCT lower(location) FROM flagged_locations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged locations: %w", err)
	}
	defer rows.Close()

	return collectStrings(rows)
}

// FlaggedDevices returns the distinct flagged device names, lower-cased.
func (r *FlaggedRepository) FlaggedDevices(ctx context.Context) ([]string, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT DISTINCT lower(device_name) FROM flagged_devices`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged devices: %w", err)
	}
	defer rows.Close()

	return collectStrings(rows)
}

// FlaggedAccounts returns the distinct flagged account ids.
func (r *FlaggedRepository) FlaggedAccounts(ctx context.Context) ([]int64, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT DISTINCT account_id FROM flagged_accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged accounts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan flagged account: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flagged accounts: %w", err)
	}
	return ids, nil
}

// LocationFlagged is the targeted point lookup for a single candidate,
// used when the cached set misses.
func (r *FlaggedRepository) LocationFlagged(ctx context.Context, location string) (bool, error) {
	var exists bool
	err := r.client.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM flagged_locations WHERE lower(location) = lower($1))`,
		location).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check flagged location: %w", err)
	}
	return exists, nil
}

// DeviceFlagged is the targeted point lookup for a single device name.
func (r *FlaggedRepository) DeviceFlagged(ctx context.Context, device string) (bool, error) {
	var exists bool
	err := r.client.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM flagged_devices WHERE lower(device_name) = lower($1))`,
		device).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check flagged device: %w", err)
	}
	return exists, nil
}

// FlaggedAccountIDs returns which of the given ids appear in the flagged
// table. A single query covers both the source and recipient account.
func (r *FlaggedRepository) FlaggedAccountIDs(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT DISTINCT account_id FROM flagged_accounts WHERE account_id = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check flagged account ids: %w", err)
	}
	defer rows.Close()

	var flagged []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan flagged account id: %w", err)
		}
		flagged = append(flagged, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read flagged account ids: %w", err)
	}
	return flagged, nil
}
