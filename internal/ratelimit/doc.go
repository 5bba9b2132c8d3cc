// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package ratelimit provides per-caller sliding-window log limiters.
//
// Two instances are built from config: a strict one for the AI tool path
// (default 10 per minute) and a looser one for data queries (default 120 per
// minute). Keys are spread over 32 murmur3-selected shards so callers rarely
// contend on the same lock.
//
// Pruning is lazy on every call. The optional Janitor service sweeps empty
// windows so idle callers do not accumulate.
package ratelimit
