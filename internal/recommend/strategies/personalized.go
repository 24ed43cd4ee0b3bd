// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"
	"sort"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

// maxPreferenceKeys bounds how many preference categories and tags feed the
// candidate query.
const maxPreferenceKeys = 10

// Personalized matches products against the user's learned preference
// scores. Anonymous users and cold-start profiles yield no candidates; the
// blend covers those cases with other sources.
type Personalized struct {
	deps Deps
}

func NewPersonalized(deps Deps) *Personalized {
	return &Personalized{deps: deps}
}

var _ recommend.Strategy = (*Personalized)(nil)

func (s *Personalized) Name() recommend.Reason { return recommend.ReasonPersonalized }

func (s *Personalized) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	uc := req.UserCtx
	if uc.IsAnonymous() || (len(uc.CategoryScores) == 0 && len(uc.TagScores) == 0) {
		return nil, nil
	}

	return cachedFetch(ctx, s.deps, s.Name(), req, true, func(ctx context.Context) ([]recommend.Candidate, error) {
		now := s.deps.now()

		// Category and tag affinities query separately and union, so a
		// product only needs to match one preference axis.
		pool := make([]models.Product, 0, req.Limit*overfetchFactor)
		seen := make(map[string]bool)

		if cats := topKeys(uc.CategoryScores, maxPreferenceKeys); len(cats) > 0 {
			q := poolQuery(store.ProductQuery{
				CategoryIDs: cats,
				ExcludeIDs:  uc.Dismissed,
				Sort:        store.SortUpvotes,
			}, req)
			byCat, err := s.deps.Products.Query(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("personalized category pool: %w", err)
			}
			for _, p := range byCat {
				if !seen[p.ID] {
					seen[p.ID] = true
					pool = append(pool, p)
				}
			}
		}

		if tags := topKeys(uc.TagScores, maxPreferenceKeys); len(tags) > 0 && len(req.Tags) == 0 {
			q := poolQuery(store.ProductQuery{
				ExcludeIDs: uc.Dismissed,
				Sort:       store.SortUpvotes,
			}, req)
			q.Tags = tags
			byTag, err := s.deps.Products.Query(ctx, q)
			if err != nil {
				return nil, fmt.Errorf("personalized tag pool: %w", err)
			}
			for _, p := range byTag {
				if !seen[p.ID] {
					seen[p.ID] = true
					pool = append(pool, p)
				}
			}
		}

		prefs := scoring.Preferences{Categories: uc.CategoryScores, Tags: uc.TagScores}
		// Time-of-day factor shared by the whole pool; clamped back into
		// [0, 1] after scaling.
		mult := scoring.PsychologicalMultiplier(now)

		cands := make([]recommend.Candidate, 0, len(pool))
		for _, p := range pool {
			p := p
			score := safeScore(s.deps.Logger, s.Name(), func() float64 {
				v := scoring.Personalized(&p, prefs, now) * mult
				if v > 1 {
					v = 1
				}
				return v
			})
			cands = append(cands, recommend.Candidate{
				ProductID: p.ID,
				Product:   p,
				Score:     score,
				RawScore:  score,
				Reason:    recommend.ReasonPersonalized,
			})
		}
		return cands, nil
	})
}

// topKeys returns up to n keys ordered by descending score with a
// lexicographic tiebreak, so candidate queries stay deterministic.
func topKeys(scores map[string]float64, n int) []string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if scores[keys[i]] == scores[keys[j]] {
			return keys[i] < keys[j]
		}
		return scores[keys[i]] > scores[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
