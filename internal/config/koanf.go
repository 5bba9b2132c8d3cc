// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/prodledger/config.yaml",
	"/etc/prodledger/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Partitions: PartitionsConfig{
			LivePath:        "/data/production_live.db",
			ArchivePath:     "/data/production_archive.db",
			CutoffDate:      "2026-01-01",
			Table:           "production_records",
			Workers:         8,
			OpenRetries:     3,
			RetryDelay:      25 * time.Millisecond,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Cache: CacheConfig{
			Capacity:     512,
			ListingTTL:   60 * time.Second,
			AggregateTTL: 300 * time.Second,
		},
		Adhoc: AdhocConfig{
			RowCap:  1000,
			Timeout: 5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			AIRequests:    10,
			AIWindow:      time.Minute,
			DataRequests:  120,
			DataWindow:    time.Minute,
			SweepInterval: 0, // lazy pruning only
		},
		Sessions: SessionsConfig{
			MaxTurns: 10,
			TTL:      30 * time.Minute,
		},
		QueryLog: QueryLogConfig{
			SlowThreshold: 500 * time.Millisecond,
			Publish:       true,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8420,
			Timeout:     30 * time.Second,
			CORSOrigins: []string{"*"},
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so the process environment cannot pollute config.
var envMappings = map[string]string{
	// Partitions
	"live_db_path":          "partitions.live_path",
	"archive_db_path":       "partitions.archive_path",
	"partition_cutoff_date": "partitions.cutoff_date",
	"records_table":         "partitions.table",
	"db_workers":            "partitions.workers",
	"db_open_retries":       "partitions.open_retries",
	"db_retry_delay":        "partitions.retry_delay",
	"db_breaker_failures":   "partitions.breaker_failures",
	"db_breaker_timeout":    "partitions.breaker_timeout",

	// Cache
	"cache_capacity":      "cache.capacity",
	"cache_listing_ttl":   "cache.listing_ttl",
	"cache_aggregate_ttl": "cache.aggregate_ttl",

	// Ad-hoc SQL
	"adhoc_row_cap": "adhoc.row_cap",
	"adhoc_timeout": "adhoc.timeout",

	// Rate limiting
	"rate_limit_ai_requests":    "rate_limit.ai_requests",
	"rate_limit_ai_window":      "rate_limit.ai_window",
	"rate_limit_data_requests":  "rate_limit.data_requests",
	"rate_limit_data_window":    "rate_limit.data_window",
	"rate_limit_sweep_interval": "rate_limit.sweep_interval",
	"disable_rate_limit":        "rate_limit.disabled",

	// Sessions
	"session_max_turns": "sessions.max_turns",
	"session_ttl":       "sessions.ttl",

	// Query log
	"slow_query_threshold": "query_log.slow_threshold",
	"query_log_publish":    "query_log.publish",

	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"cors_origins": "server.cors_origins",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - LIVE_DB_PATH -> partitions.live_path
//   - RATE_LIMIT_AI_REQUESTS -> rate_limit.ai_requests
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
