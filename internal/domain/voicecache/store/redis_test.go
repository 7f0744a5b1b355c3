package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newRedisStore(t *testing.T, clock *fakeClock) (*redisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	s, err := NewRedis(Config{Redis: &RedisConfig{Addr: mr.Addr(), Prefix: "test:"}})
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	rs := s.(*redisStore)
	rs.now = clock.Now
	return rs, mr
}

func TestRedisStoreContract(t *testing.T) {
	clock := newFakeClock()
	s, mr := newRedisStore(t, clock)

	runStoreContract(t, s, clock, func(d time.Duration) {
		clock.Add(d)
		mr.FastForward(d)
	})
}

func TestRedisStoreKeysAndTTL(t *testing.T) {
	clock := newFakeClock()
	s, mr := newRedisStore(t, clock)
	ctx := context.Background()

	if err := s.Put(ctx, sampleArtifact("abc", clock.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !mr.Exists("test:artifact:abc") || !mr.Exists("test:usage:abc") {
		t.Fatalf("expected artifact and usage keys, have %v", mr.Keys())
	}
	if ttl := mr.TTL("test:artifact:abc"); ttl <= 0 || ttl > time.Hour+time.Minute {
		t.Fatalf("unexpected artifact ttl %v", ttl)
	}
	if got := mr.HGet("test:usage:abc", "times_used"); got != "1" {
		t.Fatalf("times_used = %q", got)
	}

	if _, err := s.Touch(ctx, "abc"); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if got := mr.HGet("test:usage:abc", "times_used"); got != "2" {
		t.Fatalf("times_used after touch = %q", got)
	}
}

func TestRedisStoreTouchRecreatesUsageWithExpiry(t *testing.T) {
	clock := newFakeClock()
	s, mr := newRedisStore(t, clock)
	ctx := context.Background()

	if err := s.Put(ctx, sampleArtifact("lost", clock.Now().Add(time.Hour))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	// usage hash evicted while the payload survives
	mr.Del("test:usage:lost")

	a, err := s.Touch(ctx, "lost")
	if err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if a.TimesUsed != 1 {
		t.Fatalf("TimesUsed = %d, want 1", a.TimesUsed)
	}
	ttl := mr.TTL("test:usage:lost")
	if ttl <= 0 || ttl > mr.TTL("test:artifact:lost") {
		t.Fatalf("recreated usage ttl = %v, artifact ttl = %v", ttl, mr.TTL("test:artifact:lost"))
	}

	mr.FastForward(time.Hour + time.Second)
	if mr.Exists("test:usage:lost") || mr.Exists("test:artifact:lost") {
		t.Fatalf("keys outlived the artifact expiry: %v", mr.Keys())
	}
}

func TestRedisStoreRequiresAddress(t *testing.T) {
	if _, err := NewRedis(Config{}); err == nil {
		t.Fatalf("expected error without redis config")
	}
	if _, err := NewRedis(Config{Redis: &RedisConfig{}}); err == nil {
		t.Fatalf("expected error without address")
	}
}
