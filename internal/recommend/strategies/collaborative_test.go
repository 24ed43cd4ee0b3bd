// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/store"
)

func profileWith(userID string, cats, tags []string, interactions []models.RecentInteraction) *models.PreferenceProfile {
	p := models.NewPreferenceProfile(userID, testNow)
	for _, c := range cats {
		p.Categories[c] = models.PreferenceScore{Score: 1.0, InteractionCount: 3}
	}
	for _, tg := range tags {
		p.Tags[tg] = models.PreferenceScore{Score: 1.0, InteractionCount: 3}
	}
	p.RecentInteractions = interactions
	return p
}

func TestProfileSimilarity(t *testing.T) {
	t.Parallel()

	userCats := map[string]bool{"design": true, "devtools": true}
	userTags := map[string]bool{"ai": true, "figma": true}

	tests := []struct {
		name  string
		other *models.PreferenceProfile
		want  float64
	}{
		{
			"full overlap",
			profileWith("o1", []string{"design", "devtools"}, []string{"ai", "figma"}, nil),
			1.0,
		},
		{
			"half overlap",
			profileWith("o2", []string{"design"}, []string{"ai"}, nil),
			0.5,
		},
		{
			"no overlap",
			profileWith("o3", []string{"finance"}, []string{"tax"}, nil),
			0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := profileSimilarity(userCats, userTags, tt.other)
			if got != tt.want {
				t.Errorf("profileSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollaborative_NeighborVotes(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	profiles := store.NewMemoryProfileStore()

	seedProduct(t, products, models.Product{ID: "voted", CategoryID: "design", UpvoteCount: 6, CreatedAt: testNow.AddDate(0, 0, -3)})
	seedProduct(t, products, models.Product{ID: "draft-voted", CategoryID: "design", Status: models.StatusDraft, CreatedAt: testNow})

	neighbor := profileWith("n1", []string{"design"}, []string{"ai"}, []models.RecentInteraction{
		{ProductID: "voted", Type: models.InteractionUpvote, Timestamp: testNow.Add(-time.Hour)},
		{ProductID: "draft-voted", Type: models.InteractionUpvote, Timestamp: testNow.Add(-time.Hour)},
	})
	if err := profiles.Upsert(context.Background(), neighbor); err != nil {
		t.Fatalf("seeding neighbor: %v", err)
	}

	me := profileWith("u1", []string{"design"}, []string{"ai"}, nil)
	uc := &recommend.UserContext{User: &models.User{ID: "u1"}, Profile: me}

	s := NewCollaborative(deps, profiles)
	cands, err := s.Fetch(context.Background(), recommend.CandidateRequest{Limit: 10, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(cands) != 1 || cands[0].ProductID != "voted" {
		t.Fatalf("candidates = %+v, want exactly the published voted product", cands)
	}
	if cands[0].Reason != recommend.ReasonCollaborative {
		t.Errorf("reason = %s, want collaborative", cands[0].Reason)
	}
	if cands[0].Score <= 0 || cands[0].Score > 1 {
		t.Errorf("score %v out of range", cands[0].Score)
	}
}

func TestCollaborative_DissimilarNeighborsIgnored(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	profiles := store.NewMemoryProfileStore()

	seedProduct(t, products, models.Product{ID: "p1", CategoryID: "finance", UpvoteCount: 5, CreatedAt: testNow})

	stranger := profileWith("n1", []string{"finance", "crypto", "tax"}, nil, []models.RecentInteraction{
		{ProductID: "p1", Type: models.InteractionUpvote, Timestamp: testNow},
	})
	if err := profiles.Upsert(context.Background(), stranger); err != nil {
		t.Fatalf("seeding stranger: %v", err)
	}

	me := profileWith("u1", []string{"design", "devtools"}, []string{"ai", "figma"}, nil)
	uc := &recommend.UserContext{User: &models.User{ID: "u1"}, Profile: me}

	cands, err := NewCollaborative(deps, profiles).Fetch(context.Background(), recommend.CandidateRequest{Limit: 10, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("dissimilar neighbor contributed %d candidates", len(cands))
	}
}

func TestCollaborative_FallbackChain(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	profiles := store.NewMemoryProfileStore()

	for i := 0; i < 5; i++ {
		seedProduct(t, products, models.Product{
			ID: "p" + string(rune('a'+i)), UpvoteCount: 10 + i, ViewCount: 100,
			CreatedAt: testNow.AddDate(0, 0, -2),
		})
	}

	me := profileWith("u1", []string{"design"}, nil, nil)
	uc := &recommend.UserContext{User: &models.User{ID: "u1"}, Profile: me}

	fallback := NewTrending(deps, 7)
	s := NewCollaborative(deps, profiles, fallback)

	cands, err := s.Fetch(context.Background(), recommend.CandidateRequest{Limit: 5, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) == 0 {
		t.Fatal("fallback chain produced nothing")
	}
	for _, c := range cands {
		if c.Reason != recommend.ReasonCollaborative {
			t.Errorf("fallback candidate reason = %s, want re-tagged collaborative", c.Reason)
		}
		if c.SubReason != string(recommend.ReasonTrending) {
			t.Errorf("fallback sub-reason = %s, want trending", c.SubReason)
		}
	}
}

func TestCollaborative_AnonymousNoop(t *testing.T) {
	t.Parallel()

	deps, _ := testDeps(t)
	profiles := store.NewMemoryProfileStore()

	cands, err := NewCollaborative(deps, profiles).Fetch(context.Background(), anonRequest(10))
	if err != nil || len(cands) != 0 {
		t.Errorf("anonymous fetch = %d, %v; want 0, nil", len(cands), err)
	}
}
