// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

// Serendipity serves a nearly random sample of minimally viable products.
// Scores are dominated by randomness; the engagement threshold only keeps
// dead listings out of the wildcard slot.
type Serendipity struct {
	deps Deps
}

func NewSerendipity(deps Deps) *Serendipity {
	return &Serendipity{deps: deps}
}

var _ recommend.Strategy = (*Serendipity)(nil)

func (s *Serendipity) Name() recommend.Reason { return recommend.ReasonSerendipity }

func (s *Serendipity) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	// Random sampling on every fetch is the point; no candidate cache.
	pool, err := s.deps.Products.Query(ctx, poolQuery(store.ProductQuery{
		Sort: store.SortRandom,
	}, req))
	if err != nil {
		return nil, fmt.Errorf("serendipity pool: %w", err)
	}

	mult := scoring.PsychologicalMultiplier(s.deps.now())

	var dismissed map[string]bool
	if req.UserCtx != nil && len(req.UserCtx.Dismissed) > 0 {
		dismissed = make(map[string]bool, len(req.UserCtx.Dismissed))
		for _, id := range req.UserCtx.Dismissed {
			dismissed[id] = true
		}
	}

	cands := make([]recommend.Candidate, 0, req.Limit)
	for _, p := range pool {
		if len(cands) >= req.Limit {
			break
		}
		if dismissed[p.ID] {
			continue
		}
		p := p
		// Engagement() floors at MinScore, so the viability threshold works
		// on the unclamped curve.
		raw := scoring.WeightUpvotes*float64(p.UpvoteCount) +
			scoring.WeightViews*float64(p.ViewCount) +
			scoring.WeightBookmarks*float64(p.BookmarkCount) +
			scoring.WeightComments*float64(p.CommentCount)
		unclamped := math.Log1p(raw) / math.Log1p(scoring.EngagementSaturation*2)
		if unclamped < scoring.SerendipityEngagementThreshold {
			continue
		}
		engagement := safeScore(s.deps.Logger, s.Name(), func() float64 {
			return scoring.Engagement(&p)
		})

		score := scoring.Normalize(engagement+s.deps.Rand.Float64()*2) * mult
		if score > 1 {
			score = 1
		}
		cands = append(cands, recommend.Candidate{
			ProductID: p.ID,
			Product:   p,
			Score:     score,
			RawScore:  engagement,
			Reason:    recommend.ReasonSerendipity,
		})
	}
	return cands, nil
}
