package cache

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T, ttl time.Duration) (*NameCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	c, err := Open(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), ttl)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNamesRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	if _, ok, err := c.Names(ctx); err != nil || ok {
		t.Fatalf("expected miss on empty cache: ok=%v err=%v", ok, err)
	}
	want := []string{"AlabeSons", "felipetoito"}
	if stored, err := c.SetNames(ctx, 0, want); err != nil || !stored {
		t.Fatalf("SetNames: %v %v", stored, err)
	}
	got, ok, err := c.Names(ctx)
	if err != nil || !ok || !reflect.DeepEqual(got, want) {
		t.Fatalf("Names: %v %v %v", got, ok, err)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := c.Names(ctx); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestNamesExpire(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()
	if _, err := c.SetNames(ctx, 0, nil); err != nil {
		t.Fatalf("SetNames: %v", err)
	}
	got, ok, err := c.Names(ctx)
	if err != nil || !ok || got == nil || len(got) != 0 {
		t.Fatalf("empty list should be cached as []: %v %v %v", got, ok, err)
	}
	mr.FastForward(31 * time.Second)
	if _, ok, _ := c.Names(ctx); ok {
		t.Fatalf("entry outlived its ttl")
	}
}

func TestFillAfterInvalidateIsDropped(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	// an ingest lands between the store read and the cache write
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	stored, err := c.SetNames(ctx, gen, []string{"old"})
	if err != nil {
		t.Fatalf("SetNames: %v", err)
	}
	if stored {
		t.Fatalf("stale list was cached")
	}
	if _, ok, _ := c.Names(ctx); ok {
		t.Fatalf("cache should still be empty")
	}

	next, err := c.Generation(ctx)
	if err != nil || next != gen+1 {
		t.Fatalf("generation: got %d want %d (%v)", next, gen+1, err)
	}
	if stored, err := c.SetNames(ctx, next, []string{"new"}); err != nil || !stored {
		t.Fatalf("fresh fill rejected: %v %v", stored, err)
	}
	if got, ok, _ := c.Names(ctx); !ok || !reflect.DeepEqual(got, []string{"new"}) {
		t.Fatalf("Names: %v %v", got, ok)
	}
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), " ", time.Minute); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
