// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package recommend implements the hybrid recommendation engine: strategy
// fan-out, blend weighting, deduplication, diversity enforcement, and
// emergency fallbacks. Individual candidate strategies live in the
// strategies subpackage; this package defines the contracts they implement
// and assembles their output into served pages.
package recommend

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/config"
	"github.com/curata-io/curata/internal/metrics"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/store"
)

// ContextBuilder assembles the per-user context strategies consume. The
// profile service implements it; the engine only depends on the contract.
type ContextBuilder interface {
	BuildUserContext(ctx context.Context, user *models.User, session SessionContext) (*UserContext, error)
}

// ImpressionRecorder accepts served-page impressions for asynchronous
// persistence. Implementations must not block.
type ImpressionRecorder interface {
	RecordImpressions(userID string, items []Item, session SessionContext)
}

// Engine assembles hybrid recommendation pages from registered strategies.
type Engine struct {
	registry    *Registry
	products    store.ProductStore
	cache       *cache.Service
	contexts    ContextBuilder
	trending    *TrendingMetricsProvider
	impressions ImpressionRecorder
	cfg         config.RecommendConfig
	logger      zerolog.Logger

	// rng backs jittered sampling; guarded because pages assemble
	// concurrently. Seeded from config for reproducible tests.
	rngMu sync.Mutex
	rng   *rand.Rand

	now func() time.Time
}

// EngineOptions carries the engine's collaborators.
type EngineOptions struct {
	Registry    *Registry
	Products    store.ProductStore
	Cache       *cache.Service
	Contexts    ContextBuilder
	Trending    *TrendingMetricsProvider
	Impressions ImpressionRecorder
	Config      config.RecommendConfig
	Logger      zerolog.Logger
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewEngine wires an engine. Impressions may be nil when impression capture
// is disabled.
func NewEngine(opts EngineOptions) *Engine {
	seed := opts.Config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		registry:    opts.Registry,
		products:    opts.Products,
		cache:       opts.Cache,
		contexts:    opts.Contexts,
		trending:    opts.Trending,
		impressions: opts.Impressions,
		cfg:         opts.Config,
		logger:      opts.Logger.With().Str("component", "engine").Logger(),
		rng:         rand.New(rand.NewSource(seed)), //nolint:gosec // jitter, not crypto
		now:         now,
	}
}

// clampPage normalizes limit and offset against configured bounds.
func (e *Engine) clampPage(req *Request) {
	if req.Limit <= 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Limit > e.cfg.MaxLimit {
		req.Limit = e.cfg.MaxLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.SortBy == "" {
		req.SortBy = SortByScore
	}
}

// buildContext assembles the user context, degrading to an anonymous one
// when the profile layer fails. The page must still be served.
func (e *Engine) buildContext(ctx context.Context, req Request) (*UserContext, bool) {
	userCtx, err := e.contexts.BuildUserContext(ctx, req.User, req.Session)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", userID(req.User)).
			Msg("user context assembly failed, serving anonymous context")
		return &UserContext{User: nil, Session: req.Session}, true
	}
	if userCtx == nil {
		userCtx = &UserContext{User: req.User, Session: req.Session}
	}
	return userCtx, false
}

// minSources returns the source-diversity floor for a request, bounded by
// how many strategies can actually run.
func (e *Engine) minSources(authenticated bool, activeStrategies int) int {
	want := e.cfg.MinSourcesAnon
	if authenticated {
		want = e.cfg.MinSourcesAuth
	}
	if activeStrategies < want {
		want = activeStrategies
	}
	if want < 1 {
		want = 1
	}
	return want
}

// jitter returns a multiplicative jitter factor from the engine's seeded rng.
func (e *Engine) jitter(lo, spread float64) float64 {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return lo + e.rng.Float64()*spread
}

// fanOut runs every active strategy concurrently, retrying each failed fetch
// once after the configured delay. Results keep strategy order via a
// per-index slice so merging stays deterministic.
func (e *Engine) fanOut(ctx context.Context, strategies []Strategy, req CandidateRequest) [][]Candidate {
	results := make([][]Candidate, len(strategies))

	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s Strategy) {
			defer wg.Done()

			start := time.Now()
			cands, err := s.Fetch(ctx, req)
			if err != nil {
				metrics.StrategyRetries.WithLabelValues(string(s.Name())).Inc()
				select {
				case <-ctx.Done():
					metrics.RecordStrategyFetch(string(s.Name()), "canceled", 0, time.Since(start))
					return
				case <-time.After(e.cfg.FetchRetryDelay):
				}
				cands, err = s.Fetch(ctx, req)
			}
			if err != nil {
				e.logger.Warn().Err(err).Str("strategy", string(s.Name())).
					Msg("strategy fetch failed after retry")
				metrics.RecordStrategyFetch(string(s.Name()), "error", 0, time.Since(start))
				return
			}

			metrics.RecordStrategyFetch(string(s.Name()), "ok", len(cands), time.Since(start))
			results[i] = cands
		}(i, s)
	}
	wg.Wait()

	return results
}

func userID(u *models.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// Strategies lists the registered candidate sources in priority order, for
// the status endpoint.
func (e *Engine) Strategies() []Reason {
	all := e.registry.All()
	names := make([]Reason, len(all))
	for i, s := range all {
		names[i] = s.Name()
	}
	return names
}
