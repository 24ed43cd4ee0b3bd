// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

// InterestExploration pushes into the user's declared and learned interest
// areas with community-validated products: interest match plus a minimum
// upvote bar, so exploration never serves junk.
type InterestExploration struct {
	deps Deps
}

func NewInterestExploration(deps Deps) *InterestExploration {
	return &InterestExploration{deps: deps}
}

var _ recommend.Strategy = (*InterestExploration)(nil)

func (s *InterestExploration) Name() recommend.Reason { return recommend.ReasonInterests }

func (s *InterestExploration) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	uc := req.UserCtx
	if uc.IsAnonymous() || (len(uc.CategoryScores) == 0 && len(uc.TagScores) == 0) {
		return nil, nil
	}

	return cachedFetch(ctx, s.deps, s.Name(), req, true, func(ctx context.Context) ([]recommend.Candidate, error) {
		now := s.deps.now()

		q := poolQuery(store.ProductQuery{
			CategoryIDs: topKeys(uc.CategoryScores, maxPreferenceKeys),
			ExcludeIDs:  uc.Dismissed,
			MinUpvotes:  scoring.MinUpvotesHighlyRated,
			Sort:        store.SortUpvotes,
		}, req)

		pool, err := s.deps.Products.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("interest pool: %w", err)
		}

		cands := make([]recommend.Candidate, 0, len(pool))
		for _, p := range pool {
			p := p
			score := safeScore(s.deps.Logger, s.Name(), func() float64 {
				affinity := 0.0
				if a, ok := uc.CategoryScores[p.CategoryID]; ok {
					affinity = scoring.Normalize(a)
				}
				for _, t := range p.Tags {
					if a, ok := uc.TagScores[strings.ToLower(t)]; ok {
						if n := scoring.Normalize(a); n > affinity {
							affinity = n
						}
					}
				}
				return 0.6*affinity + 0.3*scoring.Engagement(&p) + 0.1*scoring.Recency(p.CreatedAt, now, 30)
			})
			cands = append(cands, recommend.Candidate{
				ProductID: p.ID,
				Product:   p,
				Score:     score,
				RawScore:  score,
				Reason:    recommend.ReasonInterests,
			})
		}
		return cands, nil
	})
}
