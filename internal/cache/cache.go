// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/prodledger/internal/metrics"
)

// VersionFunc returns the current data version. It is called once per lookup.
type VersionFunc func() string

// ComputeFunc produces a value on a cache miss.
type ComputeFunc func(ctx context.Context) (interface{}, error)

// ResultCache memoizes query results keyed by operation, parameters and data version.
//
// Because the version is part of the key, a change to either partition file makes
// every older entry unreachable without explicit invalidation; those entries age
// out through TTL or LRU pressure. Concurrent misses for the same key run compute
// once, on the first caller's context; waiters whose own context is still live
// recompute when that caller cancels. Errors are never cached.
type ResultCache struct {
	lru     *LRU
	version VersionFunc
	group   singleflight.Group
}

// Lookup describes how a value was obtained.
type Lookup struct {
	Hit     bool
	Key     string
	Version string
}

// New creates a ResultCache bounded to capacity entries.
func New(capacity int, version VersionFunc) *ResultCache {
	lru := NewLRU(capacity)
	lru.onEvict = func(reason string) {
		metrics.CacheEvictions.WithLabelValues(reason).Inc()
	}
	return &ResultCache{lru: lru, version: version}
}

// GetOrCompute returns the cached value for (op, params, current version) or runs
// compute and stores its result for ttl.
//
// Example:
//
//	v, lookup, err := rc.GetOrCompute(ctx, "summarize", filter, 5*time.Minute, func(ctx context.Context) (interface{}, error) {
//	    return store.summarizeUncached(ctx, filter)
//	})
func (c *ResultCache) GetOrCompute(ctx context.Context, op string, params interface{}, ttl time.Duration, compute ComputeFunc) (interface{}, Lookup, error) {
	version := c.version()
	key := GenerateKey(op, params, version)
	lookup := Lookup{Key: key, Version: version}

	if v, ok := c.lru.Get(key, version); ok {
		metrics.RecordCacheLookup(op, true)
		lookup.Hit = true
		return v, lookup, nil
	}
	metrics.RecordCacheLookup(op, false)

	for {
		led := false
		ch := c.group.DoChan(key, func() (interface{}, error) {
			led = true
			v, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			c.lru.Add(key, v, version, ttl)
			metrics.CacheEntries.Set(float64(c.lru.Len()))
			return v, nil
		})

		select {
		case <-ctx.Done():
			return nil, lookup, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// Another caller's cancellation is not ours; run the miss again.
				if !led && isContextError(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, lookup, res.Err
			}
			return res.Val, lookup, nil
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Fetch is a typed wrapper over GetOrCompute.
func Fetch[T any](ctx context.Context, c *ResultCache, op string, params interface{}, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, Lookup, error) {
	var zero T
	v, lookup, err := c.GetOrCompute(ctx, op, params, ttl, func(ctx context.Context) (interface{}, error) {
		return compute(ctx)
	})
	if err != nil {
		return zero, lookup, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, lookup, fmt.Errorf("cache entry for %s has type %T", op, v)
	}
	return typed, lookup, nil
}

// Len returns the number of stored entries, including ones not yet found stale.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Purge drops entries that are expired or belong to an older data version.
func (c *ResultCache) Purge() int {
	removed := c.lru.CleanupExpired(c.version())
	metrics.CacheEntries.Set(float64(c.lru.Len()))
	return removed
}

// Stats returns hit/miss statistics.
func (c *ResultCache) Stats() (hits, misses int64, size int) {
	return c.lru.Stats()
}

// GenerateKey builds a compact cache key: op + ":" + hex(sha256(json(params) + version)[:16]).
// Parameters that fail to marshal fall back to their %v form.
func GenerateKey(op string, params interface{}, version string) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", params))
	}

	h := sha256.New()
	h.Write(data)
	h.Write([]byte{0})
	h.Write([]byte(version))
	sum := h.Sum(nil)
	return fmt.Sprintf("%s:%x", op, sum[:16])
}
