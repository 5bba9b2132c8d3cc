// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

/*
Package supervisor runs Prodledger's long-lived services under a suture v4 tree.

	prodledger (root)
	├── maintenance-layer   rate limiter janitor, result cache purger
	├── pipeline-layer      query log consumer
	└── api-layer           HTTP server

Each layer restarts its own services with the configured failure threshold
and backoff. Supervisor events are logged through sutureslog, which the
caller feeds with a slog.Logger backed by the zerolog logger
(logging.NewSlogLogger).

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
