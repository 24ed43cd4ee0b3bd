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

// maxSeedProducts is how many recently viewed products seed the similarity
// search.
const maxSeedProducts = 5

// SimilarToRecent recommends products resembling what the user viewed most
// recently. Viewed and upvoted products are excluded so the strategy extends
// a browsing session instead of replaying it.
type SimilarToRecent struct {
	deps Deps
}

func NewSimilarToRecent(deps Deps) *SimilarToRecent {
	return &SimilarToRecent{deps: deps}
}

var _ recommend.Strategy = (*SimilarToRecent)(nil)

func (s *SimilarToRecent) Name() recommend.Reason { return recommend.ReasonSimilar }

func (s *SimilarToRecent) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	uc := req.UserCtx
	if len(req.SeedProductIDs) == 0 && (uc.IsAnonymous() || len(uc.ViewedProductIDs) == 0) {
		return nil, nil
	}

	return cachedFetch(ctx, s.deps, s.Name(), req, true, func(ctx context.Context) ([]recommend.Candidate, error) {
		seedIDs := req.SeedProductIDs
		if len(seedIDs) == 0 {
			seedIDs = uc.ViewedProductIDs
		}
		if len(seedIDs) > maxSeedProducts {
			seedIDs = seedIDs[:maxSeedProducts]
		}

		seeds, err := s.deps.Products.GetByIDs(ctx, seedIDs)
		if err != nil {
			return nil, fmt.Errorf("similar seeds: %w", err)
		}
		if len(seeds) == 0 {
			return nil, nil
		}

		categories := make([]string, 0, len(seeds))
		tags := make([]string, 0)
		catSeen := make(map[string]bool)
		tagSeen := make(map[string]bool)
		for _, seed := range seeds {
			if seed.CategoryID != "" && !catSeen[seed.CategoryID] {
				catSeen[seed.CategoryID] = true
				categories = append(categories, seed.CategoryID)
			}
			for _, t := range seed.Tags {
				if !tagSeen[t] {
					tagSeen[t] = true
					tags = append(tags, t)
				}
			}
		}

		exclude := make([]string, 0, len(seedIDs)+len(uc.ViewedProductIDs)+len(uc.UpvotedProductIDs)+len(uc.Dismissed))
		exclude = append(exclude, seedIDs...)
		exclude = append(exclude, uc.ViewedProductIDs...)
		exclude = append(exclude, uc.UpvotedProductIDs...)
		exclude = append(exclude, uc.Dismissed...)

		q := poolQuery(store.ProductQuery{
			CategoryIDs: categories,
			ExcludeIDs:  exclude,
			Sort:        store.SortUpvotes,
		}, req)
		if len(req.Tags) == 0 && len(categories) == 0 {
			q.Tags = tags
		}

		pool, err := s.deps.Products.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("similar pool: %w", err)
		}

		cands := make([]recommend.Candidate, 0, len(pool))
		for _, p := range pool {
			p := p
			score := safeScore(s.deps.Logger, s.Name(), func() float64 {
				return bestSimilarity(&p, seeds)
			})
			// Similarity floors at MinScore; exactly the floor means no
			// real overlap with any seed.
			if score <= scoring.MinScore {
				continue
			}
			cands = append(cands, recommend.Candidate{
				ProductID: p.ID,
				Product:   p,
				Score:     score,
				RawScore:  score,
				Reason:    recommend.ReasonSimilar,
			})
		}
		return cands, nil
	})
}

// bestSimilarity scores a product against every seed and keeps the maximum,
// so one strong match beats several weak ones.
func bestSimilarity(p *models.Product, seeds []models.Product) float64 {
	best := 0.0
	for i := range seeds {
		if s := scoring.Similarity(p, &seeds[i]); s > best {
			best = s
		}
	}
	return best
}
