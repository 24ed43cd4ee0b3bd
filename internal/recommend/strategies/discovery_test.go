// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"fmt"
	"testing"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
)

func TestDiscovery_MixesSubPools(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	for i := 0; i < 10; i++ {
		seedProduct(t, products, models.Product{
			ID:          fmt.Sprintf("fresh%d", i),
			UpvoteCount: 5 + i,
			ViewCount:   50,
			CreatedAt:   testNow.AddDate(0, 0, -(i + 1)),
		})
	}
	for i := 0; i < 10; i++ {
		seedProduct(t, products, models.Product{
			ID:          fmt.Sprintf("classic%d", i),
			UpvoteCount: 30 + i,
			CreatedAt:   testNow.AddDate(0, 0, -200),
		})
	}

	cands, err := NewDiscovery(deps).Fetch(context.Background(), anonRequest(10))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) == 0 {
		t.Fatal("discovery returned nothing on a healthy catalog")
	}

	subs := make(map[string]int)
	seen := make(map[string]bool)
	for _, c := range cands {
		if c.Reason != recommend.ReasonDiscovery {
			t.Errorf("reason = %s, want discovery", c.Reason)
		}
		if seen[c.ProductID] {
			t.Errorf("product %s duplicated across sub-pools", c.ProductID)
		}
		seen[c.ProductID] = true
		subs[c.SubReason]++
	}
	if len(subs) < 2 {
		t.Errorf("sub-pools = %v, want at least two represented", subs)
	}
	for sub := range subs {
		switch sub {
		case "trending_new", "highly_rated", "serendipity":
		default:
			t.Errorf("unknown sub-reason %q", sub)
		}
	}
}

func TestSerendipity_EngagementFloor(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	seedProduct(t, products, models.Product{ID: "alive", UpvoteCount: 3, ViewCount: 20, CreatedAt: testNow.AddDate(0, 0, -10)})
	seedProduct(t, products, models.Product{ID: "dead", CreatedAt: testNow.AddDate(0, 0, -10)})

	cands, err := NewSerendipity(deps).Fetch(context.Background(), anonRequest(10))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	for _, c := range cands {
		if c.ProductID == "dead" {
			t.Error("zero-engagement product in serendipity pool")
		}
		if c.Score <= 0 || c.Score > 1 {
			t.Errorf("score %v out of range", c.Score)
		}
	}
}

func TestSerendipity_ScoresCarryTimeOfDayFactor(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	p := models.Product{ID: "only", UpvoteCount: 5, ViewCount: 50, CreatedAt: testNow.AddDate(0, 0, -10)}
	seedProduct(t, products, p)

	cands, err := NewSerendipity(deps).Fetch(context.Background(), anonRequest(10))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}

	// Replay the seeded random draw to reconstruct the expected score.
	replay := NewLockedRand(42)
	want := scoring.Normalize(scoring.Engagement(&p)+replay.Float64()*2) * scoring.PsychologicalMultiplier(testNow)
	if want > 1 {
		want = 1
	}
	if diff := cands[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v (randomized base scaled by the time-of-day factor)", cands[0].Score, want)
	}
}

func TestSerendipity_SkipsDismissed(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	seedProduct(t, products, models.Product{ID: "nope", UpvoteCount: 10, CreatedAt: testNow})

	uc := &recommend.UserContext{User: &models.User{ID: "u1"}, Dismissed: []string{"nope"}}
	cands, err := NewSerendipity(deps).Fetch(context.Background(), recommend.CandidateRequest{Limit: 10, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("dismissed-only catalog yielded %d candidates", len(cands))
	}
}

func TestCategorySpotlight_SkipsUserTopCategories(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	for _, cat := range []string{"design", "devtools", "finance"} {
		for i := 0; i < 4; i++ {
			seedProduct(t, products, models.Product{
				ID:          fmt.Sprintf("%s-%d", cat, i),
				CategoryID:  cat,
				UpvoteCount: 10 + i,
				CreatedAt:   testNow.AddDate(0, 0, -5),
			})
		}
	}

	uc := prefUserCtx("u1", map[string]float64{"design": 5.0}, nil)
	cands, err := NewCategorySpotlight(deps).Fetch(context.Background(), recommend.CandidateRequest{Limit: 9, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) == 0 {
		t.Fatal("spotlight returned nothing")
	}

	for _, c := range cands {
		if c.Product.CategoryID == "design" {
			t.Error("user's top category spotlighted")
		}
		if c.Reason != recommend.ReasonSpotlight {
			t.Errorf("reason = %s, want category_spotlight", c.Reason)
		}
		if c.SubReason == "" {
			t.Error("spotlight candidate missing category sub-reason")
		}
	}
}

func TestCategorySpotlight_RequiresMinimumCatalog(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	// Two products per category, below the three-product floor.
	seedProduct(t, products, models.Product{ID: "a1", CategoryID: "a", UpvoteCount: 5, CreatedAt: testNow})
	seedProduct(t, products, models.Product{ID: "a2", CategoryID: "a", UpvoteCount: 5, CreatedAt: testNow})

	cands, err := NewCategorySpotlight(deps).Fetch(context.Background(), anonRequest(10))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("thin categories spotlighted: %d candidates", len(cands))
	}
}
