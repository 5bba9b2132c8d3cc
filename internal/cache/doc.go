// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package cache provides the version-aware result cache used by the query core.

Components:

  - LRU: doubly-linked list plus map, entries tagged with data version and expiry
  - ResultCache: key generation, singleflight miss collapsing, Prometheus counters

Keys are op + ":" + the first 16 bytes of sha256(json(params) + version), so the
same parameters read at a different data version never share an entry.

Thread Safety:
  - LRU uses a single mutex; all operations are O(1) except CleanupExpired
  - ResultCache adds a singleflight.Group keyed by the cache key
*/
package cache
