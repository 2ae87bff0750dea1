package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheSetGetRoundTrips(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v1" {
		t.Fatalf("expected v1, got %q", got)
	}
}

func TestLRUCacheGetMissingReturnsNilNoError(t *testing.T) {
	c := NewLRUCache(10)
	got, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error for cache miss, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil value for cache miss, got %v", got)
	}
}

func TestLRUCacheExpiresAfterTTL(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()
	if err := c.Set(ctx, "k1", []byte("v1"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired entry to be evicted, got %v", got)
	}
}

func TestLRUCacheEvictsOldestBeyondCapacity(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), time.Minute)
	c.Set(ctx, "k2", []byte("v2"), time.Minute)
	c.Set(ctx, "k3", []byte("v3"), time.Minute)

	if got, _ := c.Get(ctx, "k1"); got != nil {
		t.Fatalf("expected k1 to be evicted as oldest, got %v", got)
	}
	if got, _ := c.Get(ctx, "k3"); string(got) != "v3" {
		t.Fatalf("expected k3 to remain, got %v", got)
	}
}

func TestLRUCacheDeleteRemovesEntry(t *testing.T) {
	c := NewLRUCache(10)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), time.Minute)
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := c.Get(ctx, "k1"); got != nil {
		t.Fatalf("expected deleted entry to be gone, got %v", got)
	}
}

func TestLRUCacheAccessPromotesToFront(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()
	c.Set(ctx, "k1", []byte("v1"), time.Minute)
	c.Set(ctx, "k2", []byte("v2"), time.Minute)

	// Touch k1 so it is most-recently-used, then insert a third key;
	// k2 should be evicted instead of k1.
	c.Get(ctx, "k1")
	c.Set(ctx, "k3", []byte("v3"), time.Minute)

	if got, _ := c.Get(ctx, "k1"); string(got) != "v1" {
		t.Fatalf("expected k1 to survive after being touched, got %v", got)
	}
	if got, _ := c.Get(ctx, "k2"); got != nil {
		t.Fatalf("expected k2 to be evicted, got %v", got)
	}
}
