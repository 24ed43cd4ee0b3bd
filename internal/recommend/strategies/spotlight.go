// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"

	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

const (
	// spotlightMinProducts is the floor for a category to qualify.
	spotlightMinProducts = 3
	// spotlightTopCategories is the pool of best-engaged categories sampled.
	spotlightTopCategories = 10
	// spotlightSampleSize is how many categories one fetch spotlights.
	spotlightSampleSize = 5
	// spotlightUserTopExcluded keeps the user's most-engaged categories out
	// so the spotlight shows somewhere new.
	spotlightUserTopExcluded = 3
)

// CategorySpotlight showcases well-engaged categories the user has not
// already worn out, sampling a few per fetch so the spotlight rotates.
type CategorySpotlight struct {
	deps Deps
}

func NewCategorySpotlight(deps Deps) *CategorySpotlight {
	return &CategorySpotlight{deps: deps}
}

var _ recommend.Strategy = (*CategorySpotlight)(nil)

func (s *CategorySpotlight) Name() recommend.Reason { return recommend.ReasonSpotlight }

func (s *CategorySpotlight) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	// Sampling rotates per fetch, so the candidate cache is skipped; the
	// underlying engagement aggregate is cheap.
	engaged, err := s.deps.Products.CategoryEngagement(ctx, spotlightMinProducts)
	if err != nil {
		return nil, fmt.Errorf("category engagement: %w", err)
	}
	if len(engaged) == 0 {
		return nil, nil
	}

	userTop := make(map[string]bool, spotlightUserTopExcluded)
	if req.UserCtx != nil {
		for _, c := range topKeys(req.UserCtx.CategoryScores, spotlightUserTopExcluded) {
			userTop[c] = true
		}
	}

	eligible := make([]store.CategoryEngagement, 0, len(engaged))
	for _, ce := range engaged {
		if req.Category != "" && ce.CategoryID != req.Category {
			continue
		}
		if !userTop[ce.CategoryID] {
			eligible = append(eligible, ce)
		}
	}
	if len(eligible) > spotlightTopCategories {
		eligible = eligible[:spotlightTopCategories]
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	s.deps.Rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > spotlightSampleSize {
		eligible = eligible[:spotlightSampleSize]
	}

	perCategory := req.Limit / len(eligible)
	if perCategory < 1 {
		perCategory = 1
	}

	now := s.deps.now()
	cands := make([]recommend.Candidate, 0, req.Limit)
	for _, ce := range eligible {
		q := poolQuery(store.ProductQuery{
			CategoryID: ce.CategoryID,
			Sort:       store.SortUpvotes,
			Limit:      perCategory,
		}, req)
		q.CategoryID = ce.CategoryID

		pool, err := s.deps.Products.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("spotlight pool for %s: %w", ce.CategoryID, err)
		}
		for _, p := range pool {
			p := p
			score := safeScore(s.deps.Logger, s.Name(), func() float64 {
				return 0.7*scoring.Engagement(&p) + 0.3*scoring.Recency(p.CreatedAt, now, 30)
			})
			cands = append(cands, recommend.Candidate{
				ProductID: p.ID,
				Product:   p,
				Score:     score,
				RawScore:  score,
				Reason:    recommend.ReasonSpotlight,
				SubReason: ce.CategoryID,
			})
		}
	}
	return cands, nil
}
