package redis

import (
	"context"
	"time"
)

// Client represents a Redis client interface for testing and abstraction.
// It carries only the operations the snapshot layer uses: hash writes for
// controller state and sensor metadata, sorted-set maintenance for the
// sample history, and key TTLs.
type Client interface {
	// HSet sets a field in a hash
	HSet(ctx context.Context, key string, field string, value interface{}) error

	// ZAdd adds a member with a score to a sorted set
	ZAdd(ctx context.Context, key string, score float64, member interface{}) error

	// ZRemRangeByScore removes members with scores between min and max
	ZRemRangeByScore(ctx context.Context, key string, min, max string) error

	// ZRemRangeByRank removes members with ranks between start and stop
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error

	// Expire sets a TTL on a key
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping checks the connection to Redis
	Ping(ctx context.Context) error

	// Close closes the Redis connection
	Close() error
}
