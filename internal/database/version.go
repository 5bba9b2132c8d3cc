// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package database

import (
	"fmt"
	"os"
	"strings"

	"github.com/tomtom215/prodledger/internal/metrics"
	"github.com/tomtom215/prodledger/internal/models"
)

// Partition names one physical SQLite file.
type Partition string

// Partitions, in union order.
const (
	PartitionLive    Partition = models.SourceLive
	PartitionArchive Partition = models.SourceArchive
)

// AllPartitions lists every partition in a fixed order.
var AllPartitions = []Partition{PartitionLive, PartitionArchive}

func (p Partition) String() string { return string(p) }

// VersionTracker derives data versions from the partition files' metadata.
//
// The live file is rewritten by the upstream feed and the archive is replaced
// wholesale at rollover; both show up as an mtime or size change. Nothing is
// cached: every call stats the files again.
type VersionTracker struct {
	paths map[Partition]string
	stat  func(string) (os.FileInfo, error)
}

// NewVersionTracker creates a tracker for the two partition files.
func NewVersionTracker(livePath, archivePath string) *VersionTracker {
	return &VersionTracker{
		paths: map[Partition]string{
			PartitionLive:    livePath,
			PartitionArchive: archivePath,
		},
		stat: os.Stat,
	}
}

// Path returns the file path of p.
func (v *VersionTracker) Path(p Partition) string {
	return v.paths[p]
}

// PartitionVersion returns "<partition>:<mtime-ns>:<size>", or
// "<partition>:absent" with present=false when the file cannot be stat'ed.
func (v *VersionTracker) PartitionVersion(p Partition) (version string, present bool) {
	info, err := v.stat(v.paths[p])
	if err != nil || info.IsDir() {
		return fmt.Sprintf("%s:absent", p), false
	}
	return fmt.Sprintf("%s:%d:%d", p, info.ModTime().UnixNano(), info.Size()), true
}

// Available reports whether the partition file exists.
func (v *VersionTracker) Available(p Partition) bool {
	_, ok := v.PartitionVersion(p)
	return ok
}

// CurrentVersion returns the global data version: every partition version
// joined with "|". Any file change yields a different string.
func (v *VersionTracker) CurrentVersion() string {
	parts := make([]string, len(AllPartitions))
	for i, p := range AllPartitions {
		ver, ok := v.PartitionVersion(p)
		metrics.SetPartitionAvailable(p.String(), ok)
		parts[i] = ver
	}
	return strings.Join(parts, "|")
}

// Availability reports presence of each partition, keyed by name.
func (v *VersionTracker) Availability() map[string]bool {
	out := make(map[string]bool, len(AllPartitions))
	for _, p := range AllPartitions {
		out[p.String()] = v.Available(p)
	}
	return out
}
