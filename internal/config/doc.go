// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package config provides centralized configuration management for Prodledger.

Configuration is loaded with Koanf v2 from three layers, highest priority last:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (CONFIG_PATH, ./config.yaml, /etc/prodledger/config.yaml)
 3. Environment variables mapped explicitly in envMappings

# Sections

  - partitions: live/archive file paths, cutoff date, worker count, open retry and breaker tuning
  - cache: result cache capacity and per-class TTLs
  - adhoc: validated raw-SQL row cap and timeout
  - rate_limit: AI and data sliding-window limiters
  - sessions: conversation turn bound and idle TTL
  - query_log: slow threshold and event bus publishing
  - server, api, logging

# Example

	partitions:
	  live_path: /data/production_live.db
	  archive_path: /data/production_archive.db
	  cutoff_date: "2026-01-01"
	rate_limit:
	  ai_requests: 10
	  ai_window: 1m

Config is validated once at load and is read-only afterwards.
*/
package config
