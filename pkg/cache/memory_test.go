package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type cachedQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestMemoryCacheStructRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	in := cachedQuote{Symbol: "AAPL", Price: 231.50}
	if err := mc.Set(ctx, "quote:AAPL", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out cachedQuote
	if err := mc.Get(ctx, "quote:AAPL", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
}

func TestMemoryCacheStringRoundTrip(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "raw value", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out string
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != "raw value" {
		t.Fatalf("expected raw value, got %q", out)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var out string
	err := mc.Get(context.Background(), "absent", &out)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(10 * time.Millisecond))
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	var out string
	if err := mc.Get(ctx, "k", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "k"); ok {
		t.Fatalf("expired key must not exist")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "2", time.Minute)

	if err := mc.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mc.Exists(ctx, "a", "b"); ok {
		t.Fatalf("deleted keys must not exist")
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	_ = mc.Set(ctx, "old", "1", time.Minute)
	time.Sleep(5 * time.Millisecond)
	_ = mc.Set(ctx, "recent", "2", time.Minute)
	time.Sleep(5 * time.Millisecond)

	// touch "old" so "recent" becomes the eviction candidate
	var out string
	if err := mc.Get(ctx, "old", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	_ = mc.Set(ctx, "new", "3", time.Minute)

	if ok, _ := mc.Exists(ctx, "recent"); ok {
		t.Fatalf("least recently used key must be evicted")
	}
	if ok, _ := mc.Exists(ctx, "old"); !ok {
		t.Fatalf("recently touched key must survive")
	}
	if ok, _ := mc.Exists(ctx, "new"); !ok {
		t.Fatalf("new key must be present")
	}
}
