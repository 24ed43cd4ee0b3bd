// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/store"
)

// TrendingMetricsProvider computes and caches the hour-bucketed trending
// snapshot: per-product upvote counts in the recent window versus the prior
// window of equal length.
//
// Computation is coalesced: concurrent callers on a cold bucket share one
// aggregation instead of stampeding the interaction log.
type TrendingMetricsProvider struct {
	interactions store.InteractionStore
	cache        *cache.Service
	windowDays   int
	logger       zerolog.Logger

	mu sync.Mutex
}

// NewTrendingMetricsProvider wires a provider over the interaction log.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTrendingMetricsProvider(interactions store.InteractionStore, cacheSvc *cache.Service, windowDays int, logger zerolog.Logger) *TrendingMetricsProvider {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &TrendingMetricsProvider{
		interactions: interactions,
		cache:        cacheSvc,
		windowDays:   windowDays,
		logger:       logger.With().Str("component", "trending_metrics").Logger(),
	}
}

// Snapshot returns the trending snapshot for the current hour bucket,
// computing it on a cache miss. Returns nil with an error only when the
// interaction log itself fails.
func (p *TrendingMetricsProvider) Snapshot(ctx context.Context, now time.Time) (*TrendingSnapshot, error) {
	key := cache.TrendingMetricsKey(now)
	if v, ok := p.cache.Get(key); ok {
		if snap, ok := v.(*TrendingSnapshot); ok {
			return snap, nil
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-probe under the lock: a coalesced caller may have filled the bucket.
	if v, ok := p.cache.Get(key); ok {
		if snap, ok := v.(*TrendingSnapshot); ok {
			return snap, nil
		}
	}

	snap, err := p.compute(ctx, now)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, snap, cache.TTLTrendingMetrics)
	return snap, nil
}

func (p *TrendingMetricsProvider) compute(ctx context.Context, now time.Time) (*TrendingSnapshot, error) {
	window := time.Duration(p.windowDays) * 24 * time.Hour
	recentStart := now.Add(-window)
	priorStart := now.Add(-2 * window)

	recent, err := p.interactions.UpvoteCounts(ctx, recentStart, now)
	if err != nil {
		return nil, fmt.Errorf("aggregating recent upvotes: %w", err)
	}
	prior, err := p.interactions.UpvoteCounts(ctx, priorStart, recentStart)
	if err != nil {
		return nil, fmt.Errorf("aggregating prior upvotes: %w", err)
	}

	products := make(map[string]TrendingMetrics, len(recent))
	for id, cnt := range recent {
		pm := TrendingMetrics{RecentUpvotes: cnt, PriorUpvotes: prior[id]}
		base := pm.PriorUpvotes
		if base < 1 {
			base = 1
		}
		pm.PercentIncrease = float64(pm.RecentUpvotes-pm.PriorUpvotes) / float64(base) * 100
		products[id] = pm
	}

	p.logger.Debug().
		Int("products", len(products)).
		Int("window_days", p.windowDays).
		Msg("trending snapshot computed")

	return &TrendingSnapshot{
		Products:    products,
		WindowDays:  p.windowDays,
		GeneratedAt: now,
	}, nil
}
