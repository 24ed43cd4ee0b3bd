// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

// Trending surfaces products with upvote momentum inside a rolling window.
// An empty window widens twice (double the days, then no date filter) so the
// strategy degrades on quiet catalogs instead of going dark.
type Trending struct {
	deps Deps
	days int
}

// NewTrending builds the trending strategy over a windowDays rolling window.
func NewTrending(deps Deps, windowDays int) *Trending {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &Trending{deps: deps, days: windowDays}
}

var _ recommend.Strategy = (*Trending)(nil)

func (t *Trending) Name() recommend.Reason { return recommend.ReasonTrending }

func (t *Trending) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	return cachedFetch(ctx, t.deps, t.Name(), req, false, func(ctx context.Context) ([]recommend.Candidate, error) {
		now := t.deps.now()

		pool, days, widened, err := t.widenedPool(ctx, req, now)
		if err != nil {
			return nil, fmt.Errorf("trending pool: %w", err)
		}

		// rand.Rand is not goroutine-safe; scoring gets its own instance
		// seeded from the shared source.
		rng := rand.New(rand.NewSource(int64(t.deps.Rand.Intn(1 << 30)))) //nolint:gosec // jitter

		cands := make([]recommend.Candidate, 0, len(pool))
		for i, p := range pool {
			p := p
			base := safeScore(t.deps.Logger, t.Name(), func() float64 {
				return scoring.Trending(&p, now, days, rng)
			})

			// Position decay flattens the upvote-sorted pool slightly, and
			// jitter keeps consecutive pages from being identical.
			decay := 1 - 0.01*float64(i)
			if decay < 0.5 {
				decay = 0.5
			}
			jitter := 0.97 + rng.Float64()*0.06

			score := base * decay * jitter
			if score > 1 {
				score = 1
			}

			cands = append(cands, recommend.Candidate{
				ProductID: p.ID,
				Product:   p,
				Score:     score,
				RawScore:  base,
				Reason:    recommend.ReasonTrending,
				Fallback:  widened,
				ScoreComponents: map[string]float64{
					"trending": base,
					"decay":    decay,
					"jitter":   jitter,
				},
			})
		}
		return cands, nil
	})
}

// widenedPool queries the window, doubling it once and then dropping the
// date filter entirely, but only while the previous window came back empty.
// A thin non-empty window is served as-is so old products never pass as
// trending. The widened flag reports whether the served pool came from a
// widened pass.
func (t *Trending) widenedPool(ctx context.Context, req recommend.CandidateRequest, now time.Time) ([]models.Product, int, bool, error) {
	for _, days := range []int{t.days, t.days * 2, 0} {
		q := poolQuery(store.ProductQuery{Sort: store.SortUpvotes}, req)
		if days > 0 {
			q.CreatedAfter = now.AddDate(0, 0, -days)
		}

		pool, err := t.deps.Products.Query(ctx, q)
		if err != nil {
			return nil, 0, false, err
		}
		if len(pool) > 0 || days == 0 {
			effective := days
			if effective == 0 {
				effective = t.days * 4
			}
			return pool, effective, days != t.days, nil
		}
	}
	return nil, t.days, false, nil
}
