// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import "time"

// Target is the set of partitions a query must read.
type Target int

// Targets. The zero value is not a valid target.
const (
	TargetLive Target = iota + 1
	TargetArchive
	TargetBoth
)

func (t Target) String() string {
	switch t {
	case TargetLive:
		return "live"
	case TargetArchive:
		return "archive"
	case TargetBoth:
		return "both"
	default:
		return "unknown"
	}
}

// Partitions returns the partitions t reads, live first.
func (t Target) Partitions() []Partition {
	switch t {
	case TargetLive:
		return []Partition{PartitionLive}
	case TargetArchive:
		return []Partition{PartitionArchive}
	default:
		return []Partition{PartitionLive, PartitionArchive}
	}
}

// PickTargets maps an inclusive date range to the partitions that can hold it.
// Dates on or after cutoff live in the live partition; earlier dates are archived.
//
//   - no bounds: Both
//   - from only: Both if from < cutoff, else Live
//   - to only: Both if to >= cutoff, else Archive
//   - both: Live if from >= cutoff, Archive if to < cutoff, else Both
//
// Only the calendar date of each argument is compared. An inverted range is
// answered by the same rules and never yields an empty target.
func PickTargets(from, to *time.Time, cutoff time.Time) Target {
	c := civil(cutoff)

	switch {
	case from == nil && to == nil:
		return TargetBoth
	case to == nil:
		if civil(*from).Before(c) {
			return TargetBoth
		}
		return TargetLive
	case from == nil:
		if !civil(*to).Before(c) {
			return TargetBoth
		}
		return TargetArchive
	}

	f, t := civil(*from), civil(*to)
	switch {
	case !f.Before(c):
		return TargetLive
	case t.Before(c):
		return TargetArchive
	default:
		return TargetBoth
	}
}

// civil truncates t to midnight UTC of its calendar date.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
