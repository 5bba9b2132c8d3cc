// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package querylog carries the one structured record emitted after every query.
//
// The store emits to a Sink. The server wires a FanOut of a LogSink, which picks
// WARN or INFO against the slow threshold, and a Publisher, which puts the record
// on the in-process watermill bus under the "query.log" topic. A supervised
// Consumer drains that topic into Prometheus metrics.
package querylog
