package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newCacheUnderTest(t *testing.T) (*SnapshotCache, *time.Time) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewSnapshotCache(client).WithClock(func() time.Time { return now })
	return cache, &now
}

func TestSnapshotCacheRoundTripWithinTTL(t *testing.T) {
	cache, _ := newCacheUnderTest(t)
	ctx := context.Background()

	snapshot := json.RawMessage(`{"questions":[{"id":1}],"total":1}`)
	if err := cache.Set(ctx, "question", "list", snapshot); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}

	got, ok := cache.Get(ctx, "question", "list", 10*time.Minute)
	if !ok {
		t.Fatalf("expected cache hit within ttl")
	}
	if string(got) != string(snapshot) {
		t.Fatalf("snapshot mismatch: got %s want %s", got, snapshot)
	}
}

func TestSnapshotCacheExpiresAfterTTL(t *testing.T) {
	cache, now := newCacheUnderTest(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "user", "42", json.RawMessage(`{"nickname":"ghost"}`)); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}

	*now = now.Add(10*time.Minute + time.Second)

	if _, ok := cache.Get(ctx, "user", "42", 10*time.Minute); ok {
		t.Fatalf("expected cache miss after ttl elapsed")
	}

	// The stale entry is dropped, so a fresh write starts a new window.
	if err := cache.Set(ctx, "user", "42", json.RawMessage(`{"nickname":"ghost2"}`)); err != nil {
		t.Fatalf("re-set snapshot: %v", err)
	}
	got, ok := cache.Get(ctx, "user", "42", 10*time.Minute)
	if !ok || string(got) != `{"nickname":"ghost2"}` {
		t.Fatalf("expected fresh hit after rewrite, got ok=%v data=%s", ok, got)
	}
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	cache, _ := newCacheUnderTest(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "user", "7", json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}
	if err := cache.Invalidate(ctx, "user", "7"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := cache.Get(ctx, "user", "7", time.Hour); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestSnapshotCacheNamespacesAreDistinct(t *testing.T) {
	cache, _ := newCacheUnderTest(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "report", "1", json.RawMessage(`{"kind":"report"}`)); err != nil {
		t.Fatalf("set report snapshot: %v", err)
	}
	if _, ok := cache.Get(ctx, "question", "1", time.Hour); ok {
		t.Fatalf("expected namespace isolation")
	}
}
