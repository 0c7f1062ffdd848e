package domain

import (
	"context"
	"time"
)

// SnapshotCache keeps raw market snapshot documents keyed by source URL.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, source string) ([]byte, error)
	SetSnapshot(ctx context.Context, source string, data []byte, ttl time.Duration) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Publisher delivers a payload to every listener of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// SignalBus provides pub/sub between service instances.
type SignalBus interface {
	Publisher
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
