// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package main is the entry point for the Curata recommendation server.
//
// Curata serves personalized product recommendations for a product discovery
// platform: a hybrid engine blends candidate strategies (trending, new
// arrivals, personalized, collaborative, and more) into diversified pages,
// while interaction ingestion keeps per-user preference profiles current.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Catalog database: embedded DuckDB for products and the interaction log
//  3. Profile store: BadgerDB preference profile documents
//  4. Cache and profile service
//  5. Recommendation engine with its strategy registry
//  6. Event bus and impression writer
//  7. Supervision tree: messaging services and the HTTP API
//
// Shutdown is graceful on SIGINT and SIGTERM: the supervisor drains
// in-flight requests and flushes pending impressions before the stores
// close.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/api"
	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/config"
	"github.com/curata-io/curata/internal/events"
	"github.com/curata-io/curata/internal/logging"
	"github.com/curata-io/curata/internal/profile"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/recommend/strategies"
	"github.com/curata-io/curata/internal/store"
	"github.com/curata-io/curata/internal/supervisor"
	"github.com/curata-io/curata/internal/supervisor/services"
)

// trendingRefreshInterval keeps the hour-bucketed trending snapshot warm.
const trendingRefreshInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger := logging.Logger()

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("profiles_path", cfg.Profiles.Path).
		Msg("Configuration loaded")

	db, err := store.OpenDuckDB(store.DuckDBOptions{
		Path:      cfg.Database.Path,
		Threads:   cfg.Database.Threads,
		MaxMemory: cfg.Database.MaxMemory,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open catalog database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing catalog database")
		}
	}()

	profiles, err := store.OpenBadgerProfileStore(cfg.Profiles.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open profile store")
	}
	defer func() {
		if err := profiles.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing profile store")
		}
	}()

	products := store.NewProductCatalog(db)
	interactions := store.NewInteractionLog(db)
	cacheSvc := cache.NewService(logger)

	profileSvc := profile.NewService(profile.Options{
		Profiles:     profiles,
		Interactions: interactions,
		Products:     products,
		Cache:        cacheSvc,
		Logger:       logger,
	})

	trending := recommend.NewTrendingMetricsProvider(
		interactions, cacheSvc, cfg.Recommend.TrendingDays, logger)

	registry, err := buildRegistry(cfg, products, profiles, cacheSvc, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build strategy registry")
	}

	bus := events.NewBus(cfg.Events, logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	writer := events.NewImpressionWriter(events.ImpressionWriterOptions{
		Bus:          bus,
		Interactions: interactions,
		Config:       cfg.Events,
		Logger:       logger,
	})

	engine := recommend.NewEngine(recommend.EngineOptions{
		Registry:    registry,
		Products:    products,
		Cache:       cacheSvc,
		Contexts:    profileSvc,
		Trending:    trending,
		Impressions: writer,
		Config:      cfg.Recommend,
		Logger:      logger,
	})

	handler := api.NewHandler(api.HandlerOptions{
		Engine:   engine,
		Profiles: profileSvc,
		Products: products,
		Cache:    cacheSvc,
		Logger:   logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(cfg.API, handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})

	tree.AddMessagingService(writer)
	tree.AddMessagingService(services.NewRefreshService(
		func(ctx context.Context, now time.Time) error {
			_, err := trending.Snapshot(ctx, now)
			return err
		},
		trendingRefreshInterval, logger))
	tree.AddAPIService(services.NewHTTPService(server, addr, cfg.Server.ShutdownTimeout, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", addr).Msg("Starting Curata")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervisor tree failed")
	}
	logging.Info().Msg("Curata stopped")
}

// buildRegistry assembles the candidate strategies in blend priority order.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func buildRegistry(
	cfg *config.Config,
	products store.ProductStore,
	profiles store.ProfileStore,
	cacheSvc *cache.Service,
	logger zerolog.Logger,
) (*recommend.Registry, error) {
	deps := strategies.Deps{
		Products: products,
		Cache:    cacheSvc,
		Logger:   logger,
		Rand:     strategies.NewLockedRand(cfg.Recommend.Seed),
	}

	trendingStrat := strategies.NewTrending(deps, cfg.Recommend.TrendingDays)
	discovery := strategies.NewDiscovery(deps)
	serendipity := strategies.NewSerendipity(deps)
	spotlight := strategies.NewCategorySpotlight(deps)

	return recommend.NewRegistry(
		trendingStrat,
		strategies.NewPersonalized(deps),
		strategies.NewInterestExploration(deps),
		strategies.NewNewArrivals(deps, cfg.Recommend.NewDays),
		discovery,
		strategies.NewCollaborative(deps, profiles, discovery, serendipity, spotlight, trendingStrat),
		strategies.NewSimilarToRecent(deps),
		spotlight,
		serendipity,
	)
}
