// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

// Package main is the entry point for the prodledger binary.
//
// Prodledger serves production records split across a live SQLite file, which
// the ERP feed keeps mutating, and a frozen archive file. Requests are routed
// to whichever partitions their date range touches and merged into one answer.
//
// # Commands
//
//	prodledger serve              run the HTTP API under the supervisor tree
//	prodledger check-sql "<sql>"  run the ad-hoc SQL safety validator offline
//	prodledger version            print build information
//
// # Configuration
//
// Configuration is loaded via Koanf v2 (defaults, then a YAML file, then
// environment variables). --config sets CONFIG_PATH for the serve command.
//
//	export LIVE_DB_PATH=/data/production_live.db
//	export ARCHIVE_DB_PATH=/data/production_archive.db
//	export PARTITION_CUTOFF_DATE=2026-01-01
//	prodledger serve
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree: the HTTP server drains
// in-flight requests, the query log consumer stops, then partition handles
// are closed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prodledger",
		Short:         "Partitioned production records query service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newCheckSQLCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "prodledger %s (%s)\n", version, commit)
		},
	}
}
