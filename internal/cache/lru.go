// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package cache

import (
	"sync"
	"time"
)

// Eviction reasons reported to metrics.
const (
	EvictCapacity     = "capacity"
	EvictExpired      = "expired"
	EvictStaleVersion = "stale_version"
)

// lruEntry is a node in the LRU list.
type lruEntry struct {
	key       string
	value     interface{}
	version   string
	expiresAt time.Time
	prev      *lruEntry
	next      *lruEntry
}

// LRU is a thread-safe least-recently-used map whose entries carry the data
// version they were computed under and an absolute expiry.
//
// An entry is returned only while its version equals the caller's current
// version and the clock is before its expiry. Invalid entries are removed on
// access; capacity is enforced before every insert.
//
// This implementation uses a doubly-linked list for ordering and a hashmap for lookups.
type LRU struct {
	mu sync.Mutex

	capacity int
	items    map[string]*lruEntry

	// head.next is the most recently used, tail.prev is the least recently used
	head *lruEntry
	tail *lruEntry

	now     func() time.Time
	onEvict func(reason string)

	hits   int64
	misses int64
}

// NewLRU creates an LRU bounded to capacity entries.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = 512
	}

	c := &LRU{
		capacity: capacity,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
		now:      time.Now,
		onEvict:  func(string) {},
	}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the value for key if it was stored under version and has not expired.
// Found entries are moved to the front.
func (c *LRU) Get(key, version string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if entry.version != version {
		c.removeEntry(entry)
		c.onEvict(EvictStaleVersion)
		c.misses++
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.removeEntry(entry)
		c.onEvict(EvictExpired)
		c.misses++
		return nil, false
	}

	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Add stores value under key, tagged with version and expiring after ttl.
// When the cache is full the least recently used entry is evicted first.
func (c *LRU) Add(key string, value interface{}, version string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)

	if entry, exists := c.items[key]; exists {
		entry.value = value
		entry.version = version
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	for len(c.items) >= c.capacity {
		c.evictOldest()
	}

	entry := &lruEntry{
		key:       key,
		value:     value,
		version:   version,
		expiresAt: expiresAt,
	}
	c.addToFront(entry)
	c.items[key] = entry
}

// Len returns the current number of entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// CleanupExpired removes expired entries and entries not matching version.
// Returns the number of entries removed.
func (c *LRU) CleanupExpired(version string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0

	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		switch {
		case entry.version != version:
			c.removeEntry(entry)
			c.onEvict(EvictStaleVersion)
			removed++
		case !now.Before(entry.expiresAt):
			c.removeEntry(entry)
			c.onEvict(EvictExpired)
			removed++
		}
		entry = prev
	}

	return removed
}

// Stats returns hit/miss statistics.
func (c *LRU) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// Internal methods (must be called with lock held)

func (c *LRU) addToFront(entry *lruEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRU) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRU) removeEntry(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRU) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
	c.onEvict(EvictCapacity)
}
