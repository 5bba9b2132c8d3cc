// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// YAML file and environment variables (in that order of precedence, lowest first).
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Partitions PartitionsConfig `koanf:"partitions"`
	Cache      CacheConfig      `koanf:"cache"`
	Adhoc      AdhocConfig      `koanf:"adhoc"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Sessions   SessionsConfig   `koanf:"sessions"`
	QueryLog   QueryLogConfig   `koanf:"query_log"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// PartitionsConfig describes the two physical data files and how requests reach them.
type PartitionsConfig struct {
	LivePath    string `koanf:"live_path"`    // Current-period SQLite file, mutated by the ERP feed
	ArchivePath string `koanf:"archive_path"` // Frozen historical SQLite file (may not exist until first rollover)

	// CutoffDate splits the partitions: production_date >= cutoff lives in the live file.
	// Format: YYYY-MM-DD
	CutoffDate string `koanf:"cutoff_date"`

	Table string `koanf:"table"` // Record table name, identical in both files

	Workers         int           `koanf:"workers"`          // Connection-owning workers (one handle per partition each)
	OpenRetries     int           `koanf:"open_retries"`     // Retries for transient lock errors on open
	RetryDelay      time.Duration `koanf:"retry_delay"`      // Base backoff between open retries (doubles per attempt)
	BreakerFailures uint32        `koanf:"breaker_failures"` // Consecutive open failures before the partition breaker trips
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`  // How long a tripped breaker stays open
}

// Cutoff parses CutoffDate.
func (p PartitionsConfig) Cutoff() (time.Time, error) {
	t, err := time.Parse(time.DateOnly, p.CutoffDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cutoff_date %q: %w", p.CutoffDate, err)
	}
	return t, nil
}

// CacheConfig bounds the versioned result cache.
type CacheConfig struct {
	Capacity     int           `koanf:"capacity"`      // Maximum entries before LRU eviction
	ListingTTL   time.Duration `koanf:"listing_ttl"`   // Row-level listings (short staleness tolerance)
	AggregateTTL time.Duration `koanf:"aggregate_ttl"` // Summaries (longer staleness tolerance)
}

// AdhocConfig configures the validated raw-SQL path.
type AdhocConfig struct {
	RowCap  int           `koanf:"row_cap"` // LIMIT appended when a statement has none
	Timeout time.Duration `koanf:"timeout"` // Wall-clock budget before the statement is interrupted
}

// RateLimitConfig configures the two sliding-window limiters.
type RateLimitConfig struct {
	AIRequests    int           `koanf:"ai_requests"`    // Strict limiter guarding the AI tool path
	AIWindow      time.Duration `koanf:"ai_window"`      // Trailing window for AIRequests
	DataRequests  int           `koanf:"data_requests"`  // Looser limiter guarding plain data queries
	DataWindow    time.Duration `koanf:"data_window"`    // Trailing window for DataRequests
	SweepInterval time.Duration `koanf:"sweep_interval"` // 0 disables the background janitor (pruning stays lazy)
	Disabled      bool          `koanf:"disabled"`
}

// SessionsConfig bounds the multi-turn conversation store.
type SessionsConfig struct {
	MaxTurns int           `koanf:"max_turns"` // Exchanges kept per session (2 turns each)
	TTL      time.Duration `koanf:"ttl"`       // Idle time before a session is swept
}

// QueryLogConfig configures the per-query structured record.
type QueryLogConfig struct {
	SlowThreshold time.Duration `koanf:"slow_threshold"` // Records above this are logged at WARN
	Publish       bool          `koanf:"publish"`        // Also publish records on the in-process event bus
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSOrigins []string      `koanf:"cors_origins"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig holds pagination limits.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration via LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
