package viewcache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	current := time.Now()
	cache := &memoryCache{
		entries:  make(map[string]memoryEntry),
		counters: make(map[string]int64),
		now:      func() time.Time { return current },
	}

	if err := cache.Set(ctx, "k", []byte("v"), 10*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get fresh entry: ok=%v err=%v", ok, err)
	}
	if string(val) != "v" {
		t.Fatalf("value = %q, want %q", val, "v")
	}

	// Beyond the TTL the entry counts as unknown.
	current = current.Add(11 * time.Second)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatal("stale entry served past TTL")
	}
}

func TestMemoryCacheDeleteAndMiss(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	if _, ok, err := cache.Get(ctx, "absent"); ok || err != nil {
		t.Fatalf("missing key should be a miss, ok=%v err=%v", ok, err)
	}

	_ = cache.Set(ctx, "a", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "b", []byte("2"), time.Minute)
	if err := cache.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "a"); ok {
		t.Fatal("deleted key still readable")
	}
}

func TestMemoryCacheCounters(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	if val, err := cache.Counter(ctx, "gen"); err != nil || val != 0 {
		t.Fatalf("absent counter = %d, %v; want 0, nil", val, err)
	}
	if val, err := cache.Incr(ctx, "gen"); err != nil || val != 1 {
		t.Fatalf("first incr = %d, %v; want 1, nil", val, err)
	}
	if val, err := cache.Incr(ctx, "gen"); err != nil || val != 2 {
		t.Fatalf("second incr = %d, %v; want 2, nil", val, err)
	}
	if val, err := cache.Counter(ctx, "gen"); err != nil || val != 2 {
		t.Fatalf("counter read = %d, %v; want 2, nil", val, err)
	}
}
