// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/store"
)

const (
	// collabMaxNeighborProfiles bounds how many other profiles one fetch
	// compares against.
	collabMaxNeighborProfiles = 100
	// collabMinSimilarity is the floor for a profile to count as a neighbor.
	collabMinSimilarity = 0.3
	// collabMaxNeighbors is how many of the most similar profiles
	// contribute products.
	collabMaxNeighbors = 10
)

// Collaborative recommends products that similar users engaged with.
// Similarity is preference-overlap based, not interaction-matrix based, so
// it works at small scale without a factorization step. When no neighbors
// clear the similarity floor, the fetch falls through a chain of
// profile-free strategies.
type Collaborative struct {
	deps     Deps
	profiles store.ProfileStore
	fallback []recommend.Strategy
}

// NewCollaborative wires the strategy. fallback is tried in order when no
// usable neighbors exist; discovery, serendipity, spotlight, trending is the
// conventional chain.
func NewCollaborative(deps Deps, profiles store.ProfileStore, fallback ...recommend.Strategy) *Collaborative {
	return &Collaborative{deps: deps, profiles: profiles, fallback: fallback}
}

var _ recommend.Strategy = (*Collaborative)(nil)

func (s *Collaborative) Name() recommend.Reason { return recommend.ReasonCollaborative }

func (s *Collaborative) Fetch(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	uc := req.UserCtx
	if uc.IsAnonymous() || uc.Profile == nil {
		return nil, nil
	}

	cands, err := s.fromNeighbors(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(cands) > 0 {
		return cands, nil
	}

	for _, fb := range s.fallback {
		fbCands, err := fb.Fetch(ctx, req)
		if err != nil {
			s.deps.Logger.Warn().Err(err).
				Str("fallback", string(fb.Name())).
				Msg("collaborative fallback failed, trying next")
			continue
		}
		if len(fbCands) == 0 {
			continue
		}
		// Re-tag so blending attributes the items to this source.
		out := make([]recommend.Candidate, len(fbCands))
		for i, c := range fbCands {
			c.SubReason = string(c.Reason)
			c.Reason = recommend.ReasonCollaborative
			out[i] = c
		}
		return out, nil
	}
	return nil, nil
}

func (s *Collaborative) fromNeighbors(ctx context.Context, req recommend.CandidateRequest) ([]recommend.Candidate, error) {
	uc := req.UserCtx

	others, err := s.profiles.List(ctx, collabMaxNeighborProfiles, uc.UserID())
	if err != nil {
		return nil, fmt.Errorf("listing neighbor profiles: %w", err)
	}

	userCats, userTags := preferenceSets(uc.Profile)
	if len(userCats)+len(userTags) == 0 {
		return nil, nil
	}

	type neighbor struct {
		profile    *models.PreferenceProfile
		similarity float64
	}
	neighbors := make([]neighbor, 0, len(others))
	for _, other := range others {
		sim := profileSimilarity(userCats, userTags, other)
		if sim >= collabMinSimilarity {
			neighbors = append(neighbors, neighbor{profile: other, similarity: sim})
		}
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].similarity == neighbors[j].similarity {
			return neighbors[i].profile.UserID < neighbors[j].profile.UserID
		}
		return neighbors[i].similarity > neighbors[j].similarity
	})
	if len(neighbors) > collabMaxNeighbors {
		neighbors = neighbors[:collabMaxNeighbors]
	}

	// Vote products by neighbor similarity times interaction weight;
	// negative interactions subtract.
	exclude := make(map[string]bool, len(uc.ViewedProductIDs)+len(uc.Dismissed))
	for _, id := range uc.ViewedProductIDs {
		exclude[id] = true
	}
	for _, id := range uc.UpvotedProductIDs {
		exclude[id] = true
	}
	for _, id := range uc.Dismissed {
		exclude[id] = true
	}

	votes := make(map[string]float64)
	for _, n := range neighbors {
		for _, ri := range n.profile.RecentInteractions {
			if exclude[ri.ProductID] {
				continue
			}
			votes[ri.ProductID] += n.similarity * ri.Type.Weight()
		}
	}
	if len(votes) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(votes))
	for id, v := range votes {
		if v > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if votes[ids[i]] == votes[ids[j]] {
			return ids[i] < ids[j]
		}
		return votes[ids[i]] > votes[ids[j]]
	})
	if len(ids) > req.Limit {
		ids = ids[:req.Limit]
	}

	products, err := s.deps.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading voted products: %w", err)
	}

	cands := make([]recommend.Candidate, 0, len(products))
	for _, p := range products {
		if p.Status != models.StatusPublished {
			continue
		}
		if req.Category != "" && p.CategoryID != req.Category {
			continue
		}
		score := normalizeVote(votes[p.ID])
		cands = append(cands, recommend.Candidate{
			ProductID: p.ID,
			Product:   p,
			Score:     score,
			RawScore:  votes[p.ID],
			Reason:    recommend.ReasonCollaborative,
		})
	}
	return cands, nil
}

// preferenceSets extracts the non-zero category and lowercased tag sets from
// a profile.
func preferenceSets(p *models.PreferenceProfile) (map[string]bool, map[string]bool) {
	cats := make(map[string]bool, len(p.Categories))
	for c, s := range p.Categories {
		if s.Score > 0 {
			cats[c] = true
		}
	}
	tags := make(map[string]bool, len(p.Tags))
	for t, s := range p.Tags {
		if s.Score > 0 {
			tags[strings.ToLower(t)] = true
		}
	}
	return cats, tags
}

// profileSimilarity is shared-interest overlap relative to the requesting
// user's interest count: (|cat overlap| + |tag overlap|) / (|cats| + |tags|).
func profileSimilarity(userCats, userTags map[string]bool, other *models.PreferenceProfile) float64 {
	total := len(userCats) + len(userTags)
	if total == 0 || other == nil {
		return 0
	}

	overlap := 0
	for c, s := range other.Categories {
		if s.Score > 0 && userCats[c] {
			overlap++
		}
	}
	for t, s := range other.Tags {
		if s.Score > 0 && userTags[strings.ToLower(t)] {
			overlap++
		}
	}
	return float64(overlap) / float64(total)
}

// normalizeVote maps an unbounded similarity-weighted vote into (0,1).
func normalizeVote(v float64) float64 {
	if v <= 0 {
		return 0
	}
	n := v / (v + 1)
	if n < 0.1 {
		n = 0.1
	}
	return n
}
