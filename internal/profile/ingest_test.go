// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package profile

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecordInteraction_UpdatesProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1", CategoryID: "design", Tags: []string{"Figma", "UI"}})

	user := &models.User{ID: "u1"}
	prof, err := f.service.RecordInteraction(context.Background(), InteractionInput{
		User: user, ProductID: "p1", Type: models.InteractionUpvote,
	})
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	if got := prof.Categories["design"].Score; !almostEqual(got, 0.8) {
		t.Errorf("design score = %v, want 0.8", got)
	}
	if got := prof.Tags["figma"].Score; !almostEqual(got, 0.8) {
		t.Errorf("figma score = %v, want 0.8 (lowercased key)", got)
	}
	if prof.Counters.Upvotes != 1 {
		t.Errorf("upvote counter = %d, want 1", prof.Counters.Upvotes)
	}
	if len(prof.RecentInteractions) != 1 || prof.RecentInteractions[0].ProductID != "p1" {
		t.Errorf("recent window = %+v, want one p1 entry", prof.RecentInteractions)
	}
	if events := f.interactions.Events(); len(events) != 1 || events[0].Type != models.InteractionUpvote {
		t.Errorf("event log = %+v, want one upvote", events)
	}
}

func TestRecordInteraction_DuplicateWithinMinute(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1", CategoryID: "design"})
	user := &models.User{ID: "u1"}
	ctx := context.Background()
	in := InteractionInput{User: user, ProductID: "p1", Type: models.InteractionUpvote}

	if _, err := f.service.RecordInteraction(ctx, in); err != nil {
		t.Fatalf("first RecordInteraction: %v", err)
	}
	f.advance(30 * time.Second)
	prof, err := f.service.RecordInteraction(ctx, in)
	if err != nil {
		t.Fatalf("duplicate RecordInteraction: %v", err)
	}

	if len(f.interactions.Events()) != 1 {
		t.Error("duplicate interaction appended a second event")
	}
	if prof.Counters.Upvotes != 1 {
		t.Errorf("upvote counter = %d, duplicate must not double-apply", prof.Counters.Upvotes)
	}

	// Past the minute boundary the same interaction counts again.
	f.advance(time.Minute)
	prof, err = f.service.RecordInteraction(ctx, in)
	if err != nil {
		t.Fatalf("third RecordInteraction: %v", err)
	}
	if prof.Counters.Upvotes != 2 {
		t.Errorf("upvote counter = %d, want 2 after the window passed", prof.Counters.Upvotes)
	}
}

func TestRecordInteraction_InvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1"})

	tests := []struct {
		name string
		in   InteractionInput
	}{
		{"anonymous user", InteractionInput{ProductID: "p1", Type: models.InteractionView}},
		{"unknown type", InteractionInput{User: &models.User{ID: "u1"}, ProductID: "p1", Type: "teleport"}},
		{"missing product", InteractionInput{User: &models.User{ID: "u1"}, ProductID: "ghost", Type: models.InteractionView}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := f.service.RecordInteraction(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestDismiss(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1", CategoryID: "design"})
	user := &models.User{ID: "u1"}

	prof, err := f.service.Dismiss(context.Background(), user, "p1")
	if err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if !prof.IsDismissed("p1") {
		t.Error("product not in dismissed set")
	}
	// A dismissal on a fresh profile leaves the affinity clamped at zero.
	if got := prof.Categories["design"].Score; got != 0 {
		t.Errorf("design score = %v, want 0", got)
	}

	f.advance(2 * time.Minute)
	prof, err = f.service.Dismiss(context.Background(), user, "p1")
	if err != nil {
		t.Fatalf("second Dismiss: %v", err)
	}
	if got := len(prof.Dismissed); got != 1 {
		t.Errorf("dismissed set size = %d, repeat dismissal must not duplicate", got)
	}
}

func TestRecordInteraction_NegativeClampsAtZero(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1", CategoryID: "design"})
	user := &models.User{ID: "u1"}
	ctx := context.Background()

	if _, err := f.service.RecordInteraction(ctx, InteractionInput{User: user, ProductID: "p1", Type: models.InteractionView}); err != nil {
		t.Fatalf("view: %v", err)
	}
	f.advance(2 * time.Minute)
	prof, err := f.service.RecordInteraction(ctx, InteractionInput{User: user, ProductID: "p1", Type: models.InteractionRemoveUpvote})
	if err != nil {
		t.Fatalf("remove_upvote: %v", err)
	}

	if got := prof.Categories["design"].Score; got != 0 {
		t.Errorf("design score = %v, negative signal must clamp at zero", got)
	}
	if prof.Counters.Upvotes != 0 {
		t.Errorf("upvote counter = %d, removal must not go negative", prof.Counters.Upvotes)
	}
}

func TestProcessFeedback(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1", CategoryID: "design"})
	ctx := context.Background()

	t.Run("like maps to upvote", func(t *testing.T) {
		prof, err := f.service.ProcessFeedback(ctx, &models.User{ID: "liker"}, "p1", models.FeedbackLike)
		if err != nil {
			t.Fatalf("ProcessFeedback: %v", err)
		}
		if prof.Counters.Upvotes != 1 {
			t.Errorf("upvote counter = %d, want 1", prof.Counters.Upvotes)
		}
	})

	t.Run("not_interested dismisses", func(t *testing.T) {
		prof, err := f.service.ProcessFeedback(ctx, &models.User{ID: "skipper"}, "p1", models.FeedbackNotInterested)
		if err != nil {
			t.Fatalf("ProcessFeedback: %v", err)
		}
		if !prof.IsDismissed("p1") {
			t.Error("not_interested did not dismiss the product")
		}
	})

	t.Run("dislike lowers without hiding", func(t *testing.T) {
		user := &models.User{ID: "critic"}
		if _, err := f.service.RecordInteraction(ctx, InteractionInput{User: user, ProductID: "p1", Type: models.InteractionUpvote}); err != nil {
			t.Fatalf("seeding upvote: %v", err)
		}
		prof, err := f.service.ProcessFeedback(ctx, user, "p1", models.FeedbackDislike)
		if err != nil {
			t.Fatalf("ProcessFeedback: %v", err)
		}
		if got := prof.Categories["design"].Score; !almostEqual(got, 0.3) {
			t.Errorf("design score = %v, want 0.8 - 0.5 = 0.3", got)
		}
		if prof.IsDismissed("p1") {
			t.Error("dislike must not hide the product")
		}
	})

	t.Run("unknown action rejected", func(t *testing.T) {
		_, err := f.service.ProcessFeedback(ctx, &models.User{ID: "u1"}, "p1", "meh")
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestAdjustScore_NewEntryFloors(t *testing.T) {
	t.Parallel()

	now := testNow
	got := adjustScore(models.PreferenceScore{}, 0.05, now)
	if got.Score != minCreatedScore {
		t.Errorf("score = %v, want floor %v for a weak first signal", got.Score, minCreatedScore)
	}
	if got.InteractionCount != 1 {
		t.Errorf("count = %d, want 1", got.InteractionCount)
	}

	// Existing entries are not floored on the way down.
	got = adjustScore(models.PreferenceScore{Score: 0.3, InteractionCount: 2}, -0.25, now)
	if !almostEqual(got.Score, 0.05) {
		t.Errorf("score = %v, want 0.05", got.Score)
	}
}

func TestTrimInteractions(t *testing.T) {
	t.Parallel()

	var list []models.RecentInteraction
	for i := 0; i < models.MaxRecentInteractions+20; i++ {
		list = append(list, models.RecentInteraction{
			ProductID: "p",
			Type:      models.InteractionView,
			Timestamp: testNow.Add(-time.Duration(i) * time.Hour),
		})
	}
	trimmed := trimInteractions(list, testNow)
	if len(trimmed) != models.MaxRecentInteractions {
		t.Errorf("len = %d, want cap %d", len(trimmed), models.MaxRecentInteractions)
	}

	stale := []models.RecentInteraction{
		{ProductID: "fresh", Timestamp: testNow.Add(-time.Hour)},
		{ProductID: "old", Timestamp: testNow.Add(-models.RecentInteractionRetention - time.Hour)},
	}
	trimmed = trimInteractions(stale, testNow)
	if len(trimmed) != 1 || trimmed[0].ProductID != "fresh" {
		t.Errorf("trimmed = %+v, want only the fresh entry", trimmed)
	}
}

func TestStoreRecommendations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	recs := make([]models.StoredRecommendation, models.MaxStoredRecommendations+10)
	for i := range recs {
		recs[i] = models.StoredRecommendation{ProductID: "p", Score: 0.5, Reason: "trending", GeneratedAt: testNow}
	}
	if err := f.service.StoreRecommendations(ctx, "u1", recs); err != nil {
		t.Fatalf("StoreRecommendations: %v", err)
	}

	prof, err := f.profiles.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("loading profile: %v", err)
	}
	if len(prof.Recommended) != models.MaxStoredRecommendations {
		t.Errorf("stored = %d, want truncation at %d", len(prof.Recommended), models.MaxStoredRecommendations)
	}

	if err := f.service.StoreRecommendations(ctx, "", nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty user err = %v, want ErrInvalidInput", err)
	}
}

func TestRecordInteraction_InvalidatesCachedContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1", CategoryID: "design"})
	user := &models.User{ID: "u1"}
	ctx := context.Background()

	before, err := f.service.BuildUserContext(ctx, user, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("BuildUserContext: %v", err)
	}
	if len(before.CategoryScores) != 0 {
		t.Fatal("expected empty starting context")
	}

	if _, err := f.service.RecordInteraction(ctx, InteractionInput{User: user, ProductID: "p1", Type: models.InteractionUpvote}); err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	after, err := f.service.BuildUserContext(ctx, user, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("BuildUserContext after upvote: %v", err)
	}
	if after.CategoryScores["design"] <= 0 {
		t.Error("upvote did not invalidate the cached user context")
	}
}
