// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package strategies implements the candidate sources the hybrid engine
// blends: trending, new, personalized, discovery, similar-to-recent,
// category spotlight, serendipity, interest exploration, and collaborative.
//
// Every strategy shares the same fetch contract: only published products,
// per-strategy candidate caching keyed to the hour bucket, and scores
// normalized into [0,1]. Scoring failures never kill a fetch; a panicking
// scorer yields the neutral 0.5.
package strategies

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/store"
)

// overfetchFactor is how much each strategy over-queries relative to the
// requested candidate count, leaving room for post-filtering.
const overfetchFactor = 2

// Deps carries the collaborators every strategy shares.
type Deps struct {
	Products store.ProductStore
	Cache    *cache.Service
	Logger   zerolog.Logger
	Rand     *LockedRand
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// LockedRand is a mutex-guarded rand.Rand shared across concurrent strategy
// fetches. Seeded once at wiring time so tests can fix the sequence.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand seeds a shared random source. Zero means time-seeded.
func NewLockedRand(seed int64) *LockedRand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &LockedRand{r: rand.New(rand.NewSource(seed))} //nolint:gosec // sampling jitter, not crypto
}

// Float64 returns a uniform value in [0,1).
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// Intn returns a uniform int in [0,n).
func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Shuffle permutes n elements via the swap function.
func (l *LockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// cachedFetch wraps a strategy's pool builder with the shared candidate
// cache. User-scoped strategies embed the user id in the key and use the
// shorter personalized TTL.
func cachedFetch(
	ctx context.Context,
	deps Deps,
	name recommend.Reason,
	req recommend.CandidateRequest,
	userScoped bool,
	build func(ctx context.Context) ([]recommend.Candidate, error),
) ([]recommend.Candidate, error) {
	now := deps.now()

	uid := ""
	if userScoped {
		uid = req.UserCtx.UserID()
	}
	filters := strings.Join(req.Tags, ",")
	if len(req.SeedProductIDs) > 0 {
		filters += "|" + strings.Join(req.SeedProductIDs, ",")
	}
	key := cache.CandidateKey(string(name), uid,
		cache.QueryHash(req.Category, filters), "", req.Limit, now)

	if !req.ForceRefresh {
		if v, ok := deps.Cache.Get(key); ok {
			if cands, ok := v.([]recommend.Candidate); ok {
				return cands, nil
			}
		}
	}

	cands, err := build(ctx)
	if err != nil {
		return nil, err
	}

	ttl := cache.TTLCandidate
	if userScoped {
		ttl = cache.TTLPersonalized
	}
	deps.Cache.Set(key, cands, ttl)

	return cands, nil
}

// safeScore runs a scorer, converting a panic into the neutral score so one
// malformed product cannot take down a fetch.
func safeScore(logger zerolog.Logger, name recommend.Reason, fn func() float64) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("strategy", string(name)).
				Msg("scoring panic recovered")
			score = 0.5
		}
	}()
	return fn()
}

// poolQuery applies the shared candidate-pool constraints to a base query:
// published only, request filters, and overfetch headroom.
func poolQuery(base store.ProductQuery, req recommend.CandidateRequest) store.ProductQuery {
	base.Status = models.StatusPublished
	if req.Category != "" {
		base.CategoryID = req.Category
	}
	if len(req.Tags) > 0 {
		base.Tags = req.Tags
	}
	if base.Limit <= 0 {
		base.Limit = req.Limit * overfetchFactor
	}
	return base
}
