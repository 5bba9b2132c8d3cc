// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package config

import (
	"fmt"
	"regexp"
	"strings"
)

// tableNamePattern restricts the configured table to a plain SQL identifier,
// since it is the one identifier spliced into generated SQL.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validatePartitions(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateAdhoc(); err != nil {
		return err
	}
	if err := c.validateRateLimit(); err != nil {
		return err
	}
	if err := c.validateSessions(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePartitions() error {
	p := c.Partitions
	if p.LivePath == "" {
		return fmt.Errorf("LIVE_DB_PATH is required")
	}
	if p.ArchivePath == "" {
		return fmt.Errorf("ARCHIVE_DB_PATH is required")
	}
	if p.LivePath == p.ArchivePath {
		return fmt.Errorf("live and archive partitions must be different files")
	}
	if _, err := p.Cutoff(); err != nil {
		return err
	}
	if !tableNamePattern.MatchString(p.Table) {
		return fmt.Errorf("RECORDS_TABLE must be a plain identifier, got %q", p.Table)
	}
	if p.Workers < 1 {
		return fmt.Errorf("DB_WORKERS must be at least 1, got %d", p.Workers)
	}
	if p.OpenRetries < 0 {
		return fmt.Errorf("DB_OPEN_RETRIES must be non-negative, got %d", p.OpenRetries)
	}
	if p.BreakerFailures == 0 {
		return fmt.Errorf("DB_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.ListingTTL <= 0 || c.Cache.AggregateTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	return nil
}

func (c *Config) validateAdhoc() error {
	if c.Adhoc.RowCap < 1 {
		return fmt.Errorf("ADHOC_ROW_CAP must be at least 1, got %d", c.Adhoc.RowCap)
	}
	if c.Adhoc.Timeout <= 0 {
		return fmt.Errorf("ADHOC_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateRateLimit() error {
	r := c.RateLimit
	if r.Disabled {
		return nil
	}
	if r.AIRequests < 1 || r.DataRequests < 1 {
		return fmt.Errorf("rate limit request counts must be at least 1 (ai=%d, data=%d)", r.AIRequests, r.DataRequests)
	}
	if r.AIWindow <= 0 || r.DataWindow <= 0 {
		return fmt.Errorf("rate limit windows must be positive")
	}
	if r.SweepInterval < 0 {
		return fmt.Errorf("RATE_LIMIT_SWEEP_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateSessions() error {
	if c.Sessions.MaxTurns < 1 {
		return fmt.Errorf("SESSION_MAX_TURNS must be at least 1, got %d", c.Sessions.MaxTurns)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1")
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must be >= API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
