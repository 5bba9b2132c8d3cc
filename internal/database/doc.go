// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package database is the data access layer over the two SQLite partition
// files that hold production records.
//
// # Overview
//
// Records dated on or after the cutoff live in the live file, which the
// upstream feed keeps rewriting. Older records live in the archive file,
// which is replaced wholesale at rollover and may not exist yet. Both files
// carry the same table. Callers see one logical table.
//
// # Architecture
//
//   - version.go: VersionTracker derives per-partition and global data
//     versions from file mtime and size. Any change invalidates cached
//     results and stale connections.
//   - target.go: PickTargets routes a date range to live, archive or both.
//   - connection.go: Manager owns a fixed pool of Workers. Each Worker holds
//     one read-only handle per partition, reopened when the global version
//     moves. Opens retry lock errors with exponential backoff behind a
//     per-partition circuit breaker.
//   - cursor.go: opaque keyset cursors over (date, source, row_id).
//   - listing.go: ListRecords, a keyset-paginated UNION ALL listing.
//   - aggregate.go: Summarize and SummarizeByLine, computed as per-partition
//     partials merged in Go.
//   - adhoc.go: ExecuteValidatedQuery runs guarded raw SQL on a dedicated
//     connection with a timeout.
//   - store.go: Store ties the above to the result cache and the query log.
//
// # Degraded Results
//
// When a query spans both partitions and the archive is absent, the live
// partition answers alone and the result is marked Degraded. An absent live
// file, or an archive-only range without an archive, is PartitionUnavailable.
//
// # Concurrency
//
// A Worker is used by one request at a time and its handles allow a single
// connection each, so SQLite connections are never shared across goroutines
// issuing interleaved statements. Store methods are safe for concurrent use.
//
// # Error Handling
//
// Errors returned by Store are *apperr.Error values (see package apperr)
// except bare context cancellation.
package database
