package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfeed/costsim/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache by storing the latest
// published snapshot per asset as a JSON blob.
//
// Key schema:
//
//	book:{asset}:latest - JSON-encoded domain.Snapshot
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
// A zero ttl means cached snapshots never expire.
func NewSnapshotCache(c *Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying(), ttl: ttl}
}

func snapshotKey(asset string) string { return "book:" + asset + ":latest" }

// SetLatest replaces the cached snapshot for an asset.
func (sc *SnapshotCache) SetLatest(ctx context.Context, asset string, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %s: %w", asset, err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(asset), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", asset, err)
	}
	return nil
}

// GetLatest returns the cached snapshot for an asset, or domain.ErrNotFound
// when none exists.
func (sc *SnapshotCache) GetLatest(ctx context.Context, asset string) (domain.Snapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(asset)).Bytes()
	if err == redis.Nil {
		return domain.Snapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: get snapshot %s: %w", asset, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: unmarshal snapshot %s: %w", asset, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
