package cache

import (
	"errors"
	"testing"
	"time"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("k", 42, 10*time.Millisecond)

	if got, ok := c.Get("k"); !ok || got != 42 {
		t.Fatalf("expected fresh hit, got %v ok=%v", got, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestTTLCacheGetOrLoad(t *testing.T) {
	c := NewTTLCache[string, int]()
	calls := 0
	load := func() (int, error) {
		calls++
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrLoad("k", time.Minute, load)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 7 {
			t.Fatalf("expected 7, got %d", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single load, got %d", calls)
	}
}

func TestTTLCacheGetOrLoadErrorNotCached(t *testing.T) {
	c := NewTTLCache[string, int]()
	boom := errors.New("load_failed")
	if _, err := c.GetOrLoad("k", time.Minute, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("failed load must not populate the cache")
	}
}

func TestTTLCacheFlush(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)
	c.Set("b", 2, time.Minute)
	c.Flush()
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected flushed cache to miss")
	}
}

func TestNoopCacheAlwaysLoads(t *testing.T) {
	var c NoopCache[string, int]
	calls := 0
	for i := 0; i < 2; i++ {
		got, err := c.GetOrLoad("k", time.Minute, func() (int, error) {
			calls++
			return 9, nil
		})
		if err != nil || got != 9 {
			t.Fatalf("unexpected result %d, %v", got, err)
		}
	}
	if calls != 2 {
		t.Fatalf("noop cache must load every time, got %d calls", calls)
	}
}
