// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func TestLRU_BasicOperations(t *testing.T) {
	t.Parallel()

	c := NewLRU(3)
	c.Add("a", 1, "v1", time.Minute)
	c.Add("b", 2, "v1", time.Minute)

	if v, ok := c.Get("a", "v1"); !ok || v.(int) != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if _, ok := c.Get("missing", "v1"); ok {
		t.Error("expected miss for unknown key")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	hits, misses, size := c.Stats()
	if hits != 1 || misses != 1 || size != 2 {
		t.Errorf("Stats() = %d, %d, %d", hits, misses, size)
	}
}

func TestLRU_EvictsLeastRecentlyUsedBeforeInsert(t *testing.T) {
	t.Parallel()

	var evictions []string
	c := NewLRU(3)
	c.onEvict = func(reason string) { evictions = append(evictions, reason) }

	c.Add("a", 1, "v", time.Minute)
	c.Add("b", 2, "v", time.Minute)
	c.Add("c", 3, "v", time.Minute)
	c.Get("a", "v") // a becomes most recent; b is LRU
	c.Add("d", 4, "v", time.Minute)

	if _, ok := c.Get("b", "v"); ok {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k, "v"); !ok {
			t.Errorf("expected %s to be present", k)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if len(evictions) != 1 || evictions[0] != EvictCapacity {
		t.Errorf("evictions = %v", evictions)
	}
}

func TestLRU_TTLExpiry(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewLRU(10)
	c.now = clock.Now

	c.Add("k", "value", "v", 60*time.Second)

	clock.Advance(59 * time.Second)
	if _, ok := c.Get("k", "v"); !ok {
		t.Fatal("entry should be valid before expiry")
	}

	clock.Advance(time.Second)
	if _, ok := c.Get("k", "v"); ok {
		t.Fatal("entry should be invalid at expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be removed on access, Len() = %d", c.Len())
	}
}

func TestLRU_VersionMismatchInvalidates(t *testing.T) {
	t.Parallel()

	c := NewLRU(10)
	c.Add("k", "old", "live:1:10", time.Minute)

	if _, ok := c.Get("k", "live:2:10"); ok {
		t.Fatal("entry from an older version must not be returned")
	}
	if c.Len() != 0 {
		t.Errorf("stale entry should be removed, Len() = %d", c.Len())
	}
}

func TestLRU_UpdateExisting(t *testing.T) {
	t.Parallel()

	c := NewLRU(2)
	c.Add("k", 1, "v", time.Minute)
	c.Add("k", 2, "v", time.Minute)

	if v, _ := c.Get("k", "v"); v.(int) != 2 {
		t.Errorf("Get(k) = %v, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	c := NewLRU(10)
	c.now = clock.Now

	c.Add("short", 1, "v2", time.Second)
	c.Add("long", 2, "v2", time.Hour)
	c.Add("stale", 3, "v1", time.Hour)

	clock.Advance(2 * time.Second)
	if removed := c.CleanupExpired("v2"); removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if _, ok := c.Get("long", "v2"); !ok {
		t.Error("long-lived current entry should survive cleanup")
	}
}

func TestLRU_Clear(t *testing.T) {
	t.Parallel()

	c := NewLRU(4)
	c.Add("a", 1, "v", time.Minute)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	c.Add("b", 2, "v", time.Minute)
	if _, ok := c.Get("b", "v"); !ok {
		t.Error("cache should be usable after Clear")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	c := NewLRU(50)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Add(key, i, "v", time.Minute)
				c.Get(key, "v")
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
