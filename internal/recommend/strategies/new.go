// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

// NewArrivals surfaces recently launched products, freshness-weighted so
// today's launches outrank last week's. The window widens like trending's
// when the catalog is quiet.
type NewArrivals struct {
	deps Deps
	days int
}

// NewNewArrivals builds the new-products strategy over a windowDays window.
func NewNewArrivals(deps Deps, windowDays int) *NewArrivals {
	if windowDays <= 0 {
		windowDays = 14
	}
	return &NewArrivals{deps: deps, days: windowDays}
}

var _ recommend.Strategy = (*NewArrivals)(nil)

func (n *NewArrivals) Name() recommend.Reason { return recommend.ReasonNew }

func (n *NewArrivals) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	return cachedFetch(ctx, n.deps, n.Name(), req, false, func(ctx context.Context) ([]recommend.Candidate, error) {
		now := n.deps.now()

		// Widen only while the window is empty, like trending: a thin
		// non-empty window is served as-is.
		var pool []models.Product
		widened := false
		for _, days := range []int{n.days, n.days * 2, 0} {
			q := poolQuery(store.ProductQuery{Sort: store.SortNewest}, req)
			if days > 0 {
				q.CreatedAfter = now.AddDate(0, 0, -days)
			}
			p, err := n.deps.Products.Query(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("new arrivals pool: %w", err)
			}
			pool = p
			widened = days != n.days
			if len(pool) > 0 || days == 0 {
				break
			}
		}

		cands := make([]recommend.Candidate, 0, len(pool))
		for _, p := range pool {
			p := p
			score := safeScore(n.deps.Logger, n.Name(), func() float64 {
				ageDays := now.Sub(p.CreatedAt).Hours() / 24
				if ageDays < 0 {
					ageDays = 0
				}
				freshness := scoring.Recency(p.CreatedAt, now, float64(n.days)) * math.Exp(-0.15*ageDays)
				s := 0.7*freshness + 0.3*scoring.Engagement(&p)
				if s < scoring.MinScore {
					s = scoring.MinScore
				}
				return s
			})

			cands = append(cands, recommend.Candidate{
				ProductID: p.ID,
				Product:   p,
				Score:     score,
				RawScore:  score,
				Reason:    recommend.ReasonNew,
				Fallback:  widened,
			})
		}
		return cands, nil
	})
}
