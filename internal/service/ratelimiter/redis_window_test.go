package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLimiter(t *testing.T, maxRequests int, window time.Duration) (*RedisLimiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiter(rdb, maxRequests, window)
	cleanup := func() {
		_ = rdb.Close()
		mr.Close()
	}
	return limiter, mr, cleanup
}

func TestRedisAllow_NilLimiter_FailOpen(t *testing.T) {
	var limiter *RedisLimiter
	allowed, retryAfter, err := limiter.Allow(context.Background(), "any")
	if err != nil || !allowed || retryAfter != 0 {
		t.Fatalf("nil limiter should fail open: %v %v %v", allowed, retryAfter, err)
	}
}

func TestRedisAllow_RespectsCapacity(t *testing.T) {
	limiter, _, cleanup := newTestRedisLimiter(t, 3, time.Minute)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, retryAfter, err := limiter.Allow(ctx, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("call %d should be allowed with zero retry, got %v %v", i, allowed, retryAfter)
		}
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("fourth call should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter out of range: %v", retryAfter)
	}

	// a different identity is unaffected
	allowed, _, err = limiter.Allow(ctx, "sess-2")
	if err != nil || !allowed {
		t.Fatalf("independent identity should be allowed: %v %v", allowed, err)
	}
}

func TestRedisAllow_WindowSlides(t *testing.T) {
	limiter, mr, cleanup := newTestRedisLimiter(t, 1, time.Second)
	defer cleanup()
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatalf("first call should be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatalf("second call inside window should be denied")
	}
	// miniredis clock does not advance on its own; entries are scored by
	// wall-clock ms, so waiting past the window frees the slot.
	mr.FastForward(2 * time.Second)
	time.Sleep(1100 * time.Millisecond)
	if allowed, _, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatalf("call after window should be allowed")
	}
}

func TestRedisReset(t *testing.T) {
	limiter, _, cleanup := newTestRedisLimiter(t, 1, time.Minute)
	defer cleanup()
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatalf("first call should be allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatalf("second call should be denied")
	}
	if err := limiter.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if allowed, _, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatalf("call after reset should be allowed")
	}
}

func TestKeyedImplementsLimiter(t *testing.T) {
	var _ Limiter = NewKeyed(1, time.Minute)
	var _ Limiter = (*RedisLimiter)(nil)

	k := NewKeyed(1, time.Minute)
	ctx := context.Background()
	allowed, retryAfter, err := k.Allow(ctx, "x")
	if err != nil || !allowed || retryAfter != 0 {
		t.Fatalf("first allow: %v %v %v", allowed, retryAfter, err)
	}
	allowed, retryAfter, err = k.Allow(ctx, "x")
	if err != nil || allowed {
		t.Fatalf("second allow should be denied: %v %v", allowed, err)
	}
	if retryAfter <= 0 {
		t.Fatalf("denied allow should report a wait, got %v", retryAfter)
	}
	if err := k.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if allowed, _, _ := k.Allow(ctx, "x"); !allowed {
		t.Fatalf("allow after reset should succeed")
	}
}
