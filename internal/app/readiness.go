package app

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// BuildRedisCheck returns the readiness probe for the shared limiter backend,
// or nil when the in-process limiter is active and there is nothing to check.
func BuildRedisCheck(rdb *redis.Client) func(ctx context.Context) error {
	if rdb == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
