package cache

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCacheGetSetDelete(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache returned a value")
	}

	c.Set("a", 1)
	c.Set("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v, want 2, true", v, ok)
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted key still cached")
	}
	c.Delete("a") // deleting twice is a no-op
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	if _, ok := c.Get("k0"); !ok {
		t.Fatal("k0 missing before eviction")
	}
	c.Set("k3", 3)

	if _, ok := c.Get("k1"); ok {
		t.Error("k1 survived eviction, want least recently used gone")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s evicted, want kept", key)
		}
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[string](4, 10*time.Millisecond)
	c.Set("a", "x")
	c.Set("b", "y")

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired = %d, want 1 (Get already dropped the other)", removed)
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("second CleanExpired = %d, want 0", removed)
	}
}

type countingCleaner struct {
	sweeps atomic.Int64
}

func (c *countingCleaner) CleanExpired() int {
	c.sweeps.Add(1)
	return 1
}

func TestManagerSweepsRegisteredCaches(t *testing.T) {
	cleaner := &countingCleaner{}
	m := NewManager()
	m.Register(cleaner)
	m.StartCleanup(time.Millisecond)

	deadline := time.After(time.Second)
	for cleaner.sweeps.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("cleaner never invoked")
		case <-time.After(time.Millisecond):
		}
	}

	// Stop returns only once the sweep goroutine exited.
	m.Stop()
	after := cleaner.sweeps.Load()
	time.Sleep(5 * time.Millisecond)
	if got := cleaner.sweeps.Load(); got != after {
		t.Errorf("sweeps after Stop = %d, want %d", got, after)
	}
}
