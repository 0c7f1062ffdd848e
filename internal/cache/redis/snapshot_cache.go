package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// SnapshotCache implements domain.SnapshotCache with plain string keys.
//
// Key schema:
//
//	snapshot:{source} - raw snapshot document
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func snapshotKey(source string) string { return "snapshot:" + source }

// GetSnapshot returns the cached document for source, or domain.ErrNotFound.
func (sc *SnapshotCache) GetSnapshot(ctx context.Context, source string) ([]byte, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(source)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get snapshot %s: %w", source, err)
	}
	return data, nil
}

// SetSnapshot stores data for source. A non-positive ttl stores without
// expiry.
func (sc *SnapshotCache) SetSnapshot(ctx context.Context, source string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := sc.rdb.Set(ctx, snapshotKey(source), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %s: %w", source, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
