// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

// Discovery sub-strategy pool shares, in fixed order.
const (
	discoveryTrendingNewShare = 0.4
	discoveryHighlyRatedShare = 0.3
	discoveryTrendingNewDays  = 30
)

// Discovery mixes three sub-pools under one source: new products gaining
// traction, highly rated products, and a random serendipity sample. Each
// candidate carries its sub-pool in SubReason.
type Discovery struct {
	deps Deps
}

func NewDiscovery(deps Deps) *Discovery {
	return &Discovery{deps: deps}
}

var _ recommend.Strategy = (*Discovery)(nil)

func (s *Discovery) Name() recommend.Reason { return recommend.ReasonDiscovery }

func (s *Discovery) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	return cachedFetch(ctx, s.deps, s.Name(), req, false, func(ctx context.Context) ([]recommend.Candidate, error) {
		now := s.deps.now()

		trendingNewN := int(float64(req.Limit) * discoveryTrendingNewShare)
		highlyRatedN := int(float64(req.Limit) * discoveryHighlyRatedShare)
		serendipityN := req.Limit - trendingNewN - highlyRatedN

		seen := make(map[string]bool)
		cands := make([]recommend.Candidate, 0, req.Limit)

		appendPool := func(pool []models.Product, n int, sub string, score func(p *models.Product) float64) {
			added := 0
			for _, p := range pool {
				if added >= n {
					break
				}
				if seen[p.ID] {
					continue
				}
				seen[p.ID] = true
				p := p
				sc := safeScore(s.deps.Logger, s.Name(), func() float64 { return score(&p) })
				cands = append(cands, recommend.Candidate{
					ProductID: p.ID,
					Product:   p,
					Score:     sc,
					RawScore:  sc,
					Reason:    recommend.ReasonDiscovery,
					SubReason: sub,
				})
				added++
			}
		}

		trendingNew, err := s.deps.Products.Query(ctx, poolQuery(store.ProductQuery{
			CreatedAfter:  now.AddDate(0, 0, -discoveryTrendingNewDays),
			HasEngagement: true,
			Sort:          store.SortUpvotes,
		}, req))
		if err != nil {
			return nil, fmt.Errorf("discovery trending-new pool: %w", err)
		}
		appendPool(trendingNew, trendingNewN, "trending_new", func(p *models.Product) float64 {
			return 0.6*scoring.Recency(p.CreatedAt, now, discoveryTrendingNewDays) + 0.4*scoring.Engagement(p)
		})

		highlyRated, err := s.deps.Products.Query(ctx, poolQuery(store.ProductQuery{
			MinUpvotes: scoring.MinUpvotesHighlyRated,
			Sort:       store.SortUpvotes,
		}, req))
		if err != nil {
			return nil, fmt.Errorf("discovery highly-rated pool: %w", err)
		}
		appendPool(highlyRated, highlyRatedN, "highly_rated", func(p *models.Product) float64 {
			return scoring.Engagement(p)
		})

		sample, err := s.deps.Products.Query(ctx, poolQuery(store.ProductQuery{
			Sort: store.SortRandom,
		}, req))
		if err != nil {
			return nil, fmt.Errorf("discovery sample pool: %w", err)
		}
		appendPool(sample, serendipityN, "serendipity", func(p *models.Product) float64 {
			// Mostly random, lightly engagement-anchored.
			return scoring.Normalize(0.3*scoring.Engagement(p) + s.deps.Rand.Float64())
		})

		return cands, nil
	})
}
