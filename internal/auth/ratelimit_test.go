package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRateLimiter(t *testing.T, maxAttempt int, window time.Duration) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRateLimiter(rdb, maxAttempt, window), mr
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 3, time.Minute)
	ctx := context.Background()

	result, err := rl.Check(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Allowed || result.Remaining != 3 {
		t.Errorf("result = %+v, want allowed with remaining=3", result)
	}
}

func TestRateLimiter_RecordIncrementsAndDenies(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 2, time.Minute)
	ctx := context.Background()
	ip := "1.2.3.4"

	if err := rl.Record(ctx, ip); err != nil {
		t.Fatalf("Record: %v", err)
	}
	result, err := rl.Check(ctx, ip)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Allowed || result.Remaining != 1 {
		t.Errorf("after 1 record: result = %+v, want allowed with remaining=1", result)
	}

	if err := rl.Record(ctx, ip); err != nil {
		t.Fatalf("Record: %v", err)
	}
	result, err = rl.Check(ctx, ip)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Allowed {
		t.Errorf("after 2 records (limit 2): result = %+v, want denied", result)
	}
	if result.RetryAt.Before(time.Now()) {
		t.Errorf("RetryAt = %v, want a time in the future", result.RetryAt)
	}
}

func TestRateLimiter_ExpirySetOnlyOnFirstIncrement(t *testing.T) {
	rl, mr := newTestRateLimiter(t, 5, 30*time.Second)
	ctx := context.Background()
	ip := "5.6.7.8"

	if err := rl.Record(ctx, ip); err != nil {
		t.Fatalf("Record: %v", err)
	}
	key := "login_ratelimit:" + ip
	ttl1 := mr.TTL(key)
	if ttl1 <= 0 {
		t.Fatalf("expected a positive TTL after first record, got %v", ttl1)
	}

	mr.FastForward(5 * time.Second)

	if err := rl.Record(ctx, ip); err != nil {
		t.Fatalf("Record: %v", err)
	}
	ttl2 := mr.TTL(key)
	if ttl2 <= 0 {
		t.Fatalf("expected the key to still carry a TTL after second record, got %v", ttl2)
	}
	if ttl2 > ttl1 {
		t.Errorf("ttl after second record = %v, want <= ttl after first record (%v); expiry should not be reset", ttl2, ttl1)
	}
}

func TestRateLimiter_ResetClearsCounter(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 2, time.Minute)
	ctx := context.Background()
	ip := "9.9.9.9"

	if err := rl.Record(ctx, ip); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := rl.Record(ctx, ip); err != nil {
		t.Fatalf("Record: %v", err)
	}
	result, err := rl.Check(ctx, ip)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected denial before reset")
	}

	if err := rl.Reset(ctx, ip); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	result, err = rl.Check(ctx, ip)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Allowed || result.Remaining != 2 {
		t.Errorf("after reset: result = %+v, want allowed with remaining=2", result)
	}
}
