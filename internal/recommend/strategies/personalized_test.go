// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package strategies

import (
	"context"
	"testing"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
)

func prefUserCtx(userID string, catScores, tagScores map[string]float64) *recommend.UserContext {
	return &recommend.UserContext{
		User:           &models.User{ID: userID},
		CategoryScores: catScores,
		TagScores:      tagScores,
	}
}

func TestPersonalized_ColdStartYieldsNothing(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	seedProduct(t, products, models.Product{ID: "p1", CategoryID: "design", UpvoteCount: 10, CreatedAt: testNow})

	s := NewPersonalized(deps)

	// Anonymous.
	cands, err := s.Fetch(context.Background(), anonRequest(10))
	if err != nil || len(cands) != 0 {
		t.Errorf("anonymous fetch = %d candidates, %v; want 0, nil", len(cands), err)
	}

	// Authenticated but no preferences yet.
	req := recommend.CandidateRequest{Limit: 10, UserCtx: prefUserCtx("u1", nil, nil)}
	cands, err = s.Fetch(context.Background(), req)
	if err != nil || len(cands) != 0 {
		t.Errorf("cold-start fetch = %d candidates, %v; want 0, nil", len(cands), err)
	}
}

func TestPersonalized_MatchesEitherAxis(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	seedProduct(t, products, models.Product{ID: "by-cat", CategoryID: "design", UpvoteCount: 10, CreatedAt: testNow.AddDate(0, 0, -3)})
	seedProduct(t, products, models.Product{ID: "by-tag", CategoryID: "devtools", Tags: []string{"AI"}, UpvoteCount: 8, CreatedAt: testNow.AddDate(0, 0, -3)})
	seedProduct(t, products, models.Product{ID: "neither", CategoryID: "finance", UpvoteCount: 50, CreatedAt: testNow.AddDate(0, 0, -3)})

	req := recommend.CandidateRequest{
		Limit:   10,
		UserCtx: prefUserCtx("u1", map[string]float64{"design": 2.0}, map[string]float64{"ai": 1.5}),
	}
	cands, err := NewPersonalized(deps).Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got := make(map[string]bool, len(cands))
	for _, c := range cands {
		got[c.ProductID] = true
	}
	if !got["by-cat"] || !got["by-tag"] {
		t.Errorf("pool = %v, want both preference axes represented", got)
	}
	if got["neither"] {
		t.Error("product matching no preference served")
	}
}

func TestPersonalized_ScoresCarryTimeOfDayFactor(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	p := models.Product{ID: "p1", CategoryID: "design", UpvoteCount: 10, CreatedAt: testNow.AddDate(0, 0, -3)}
	seedProduct(t, products, p)

	uc := prefUserCtx("u1", map[string]float64{"design": 2.0}, nil)
	cands, err := NewPersonalized(deps).Fetch(context.Background(), recommend.CandidateRequest{Limit: 10, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates = %d, want 1", len(cands))
	}

	prefs := scoring.Preferences{Categories: uc.CategoryScores, Tags: uc.TagScores}
	want := scoring.Personalized(&p, prefs, testNow) * scoring.PsychologicalMultiplier(testNow)
	if want > 1 {
		want = 1
	}
	if diff := cands[0].Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v (base scaled by the time-of-day factor)", cands[0].Score, want)
	}
}

func TestPersonalized_ExcludesDismissed(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	seedProduct(t, products, models.Product{ID: "keep", CategoryID: "design", UpvoteCount: 5, CreatedAt: testNow})
	seedProduct(t, products, models.Product{ID: "dismissed", CategoryID: "design", UpvoteCount: 9, CreatedAt: testNow})

	uc := prefUserCtx("u1", map[string]float64{"design": 2.0}, nil)
	uc.Dismissed = []string{"dismissed"}

	cands, err := NewPersonalized(deps).Fetch(context.Background(), recommend.CandidateRequest{Limit: 10, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, c := range cands {
		if c.ProductID == "dismissed" {
			t.Error("dismissed product in personalized pool")
		}
	}
}

func TestInterestExploration_RequiresCommunityValidation(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	seedProduct(t, products, models.Product{ID: "validated", CategoryID: "design", UpvoteCount: 5, CreatedAt: testNow.AddDate(0, 0, -2)})
	seedProduct(t, products, models.Product{ID: "unproven", CategoryID: "design", UpvoteCount: 1, CreatedAt: testNow.AddDate(0, 0, -2)})

	req := recommend.CandidateRequest{
		Limit:   10,
		UserCtx: prefUserCtx("u1", map[string]float64{"design": 3.0}, nil),
	}
	cands, err := NewInterestExploration(deps).Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got := make(map[string]bool, len(cands))
	for _, c := range cands {
		got[c.ProductID] = true
		if c.Reason != recommend.ReasonInterests {
			t.Errorf("reason = %s, want interests", c.Reason)
		}
	}
	if !got["validated"] {
		t.Error("upvoted interest match missing")
	}
	if got["unproven"] {
		t.Error("product under the upvote bar served")
	}
}

func TestSimilarToRecent_ExtendsSession(t *testing.T) {
	t.Parallel()

	deps, products := testDeps(t)
	seedProduct(t, products, models.Product{ID: "seed", CategoryID: "design", Tags: []string{"figma", "ui"}, CreatedAt: testNow.AddDate(0, 0, -5)})
	seedProduct(t, products, models.Product{ID: "lookalike", CategoryID: "design", Tags: []string{"figma"}, UpvoteCount: 4, CreatedAt: testNow.AddDate(0, 0, -4)})
	seedProduct(t, products, models.Product{ID: "upvoted", CategoryID: "design", Tags: []string{"ui"}, CreatedAt: testNow.AddDate(0, 0, -4)})
	seedProduct(t, products, models.Product{ID: "unrelated", CategoryID: "finance", Tags: []string{"tax"}, CreatedAt: testNow.AddDate(0, 0, -4)})

	uc := &recommend.UserContext{
		User:              &models.User{ID: "u1"},
		ViewedProductIDs:  []string{"seed"},
		UpvotedProductIDs: []string{"upvoted"},
	}

	cands, err := NewSimilarToRecent(deps).Fetch(context.Background(), recommend.CandidateRequest{Limit: 10, UserCtx: uc})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	got := make(map[string]bool, len(cands))
	for _, c := range cands {
		got[c.ProductID] = true
	}
	if !got["lookalike"] {
		t.Error("similar product missing from pool")
	}
	for _, banned := range []string{"seed", "upvoted", "unrelated"} {
		if got[banned] {
			t.Errorf("%s should not be served", banned)
		}
	}
}

func TestSimilarToRecent_AnonymousOrNoHistory(t *testing.T) {
	t.Parallel()

	deps, _ := testDeps(t)
	s := NewSimilarToRecent(deps)

	if cands, err := s.Fetch(context.Background(), anonRequest(10)); err != nil || len(cands) != 0 {
		t.Errorf("anonymous fetch = %d, %v; want 0, nil", len(cands), err)
	}

	uc := &recommend.UserContext{User: &models.User{ID: "u1"}}
	if cands, err := s.Fetch(context.Background(), recommend.CandidateRequest{Limit: 10, UserCtx: uc}); err != nil || len(cands) != 0 {
		t.Errorf("no-history fetch = %d, %v; want 0, nil", len(cands), err)
	}
}
