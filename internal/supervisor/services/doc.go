// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package services provides suture.Service wrappers for long-running Prodledger
components.

  - HTTPServerService: ListenAndServe with graceful Shutdown on cancellation
  - ConsumerService: a query log consumer; a closed subscription is restarted
  - SweepService: a periodic purge such as dropping stale result cache entries

The rate limiter janitor (ratelimit.Janitor) already satisfies suture.Service
and is added to the tree directly.
*/
package services
