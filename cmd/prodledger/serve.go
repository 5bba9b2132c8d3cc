// Prodledger - Partitioned Production Records Query Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/prodledger

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/spf13/cobra"

	"github.com/tomtom215/prodledger/internal/api"
	"github.com/tomtom215/prodledger/internal/cache"
	"github.com/tomtom215/prodledger/internal/chat"
	"github.com/tomtom215/prodledger/internal/config"
	"github.com/tomtom215/prodledger/internal/database"
	"github.com/tomtom215/prodledger/internal/logging"
	"github.com/tomtom215/prodledger/internal/querylog"
	"github.com/tomtom215/prodledger/internal/ratelimit"
	"github.com/tomtom215/prodledger/internal/supervisor"
	"github.com/tomtom215/prodledger/internal/supervisor/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the records API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				if err := os.Setenv(config.ConfigPathEnvVar, configPath); err != nil {
					return fmt.Errorf("set %s: %w", config.ConfigPathEnvVar, err)
				}
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Caller: cfg.Logging.Caller,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (overrides CONFIG_PATH)")
	return cmd
}

//nolint:gocyclo // sequential wiring of every component
func serve(ctx context.Context, cfg *config.Config) error {
	storeCfg, err := database.StoreConfigFromConfig(cfg)
	if err != nil {
		return err
	}

	tracker := database.NewVersionTracker(cfg.Partitions.LivePath, cfg.Partitions.ArchivePath)
	availability := tracker.Availability()
	logging.Info().
		Str("live_path", cfg.Partitions.LivePath).
		Str("archive_path", cfg.Partitions.ArchivePath).
		Str("cutoff", cfg.Partitions.CutoffDate).
		Bool("live_present", availability[string(database.PartitionLive)]).
		Bool("archive_present", availability[string(database.PartitionArchive)]).
		Msg("Starting prodledger")

	mgr := database.NewManager(tracker, database.OptionsFromConfig(cfg.Partitions))
	defer func() {
		if err := mgr.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing partition handles")
		}
	}()

	sinks := querylog.FanOut{querylog.NewLogSink(cfg.QueryLog.SlowThreshold)}
	var consumer *querylog.Consumer
	if cfg.QueryLog.Publish {
		bus := querylog.NewBus(watermill.NewSlogLogger(logging.NewSlogLogger()))
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Warn().Err(err).Msg("Error closing query log bus")
			}
		}()
		sinks = append(sinks, querylog.NewPublisher(bus))
		consumer = querylog.NewConsumer(bus, querylog.MetricsHandler(cfg.QueryLog.SlowThreshold))
	}

	results := cache.New(cfg.Cache.Capacity, tracker.CurrentVersion)
	store := database.NewStore(mgr, results, sinks, storeCfg)
	sessions := chat.NewStore(cfg.Sessions.MaxTurns, cfg.Sessions.TTL)
	limiters := api.Limiters{
		AI:   ratelimit.NewAI(cfg.RateLimit.AIRequests, cfg.RateLimit.AIWindow),
		Data: ratelimit.NewData(cfg.RateLimit.DataRequests, cfg.RateLimit.DataWindow),
	}

	router := api.NewRouter(
		api.NewHandler(store, sessions),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromConfig(cfg)),
		limiters,
	)

	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if cfg.RateLimit.SweepInterval > 0 {
		tree.AddMaintenanceService(ratelimit.NewJanitor(cfg.RateLimit.SweepInterval, limiters.AI, limiters.Data))
	}
	tree.AddMaintenanceService(services.NewSweepService("cache-purger", storeCfg.ListingTTL, results.Purge))
	if consumer != nil {
		tree.AddPipelineService(services.NewConsumerService("querylog-consumer", consumer))
	}
	tree.AddAPIService(services.NewHTTPServerService(srv, addr, shutdownTimeout))

	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	logging.Info().Msg("Prodledger stopped")
	return nil
}
