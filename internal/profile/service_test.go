// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package profile

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/store"
)

var testNow = time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)

type fixture struct {
	service      *Service
	products     *store.MemoryProductStore
	interactions *store.MemoryInteractionStore
	profiles     *store.MemoryProfileStore
	cache        *cache.Service
	clock        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := store.NewMemoryProductStore()
	interactions := store.NewMemoryInteractionStore(products)
	profiles := store.NewMemoryProfileStore()
	cacheSvc := cache.NewService(zerolog.Nop())
	t.Cleanup(cacheSvc.Close)

	f := &fixture{
		products:     products,
		interactions: interactions,
		profiles:     profiles,
		cache:        cacheSvc,
		clock:        testNow,
	}
	f.service = NewService(Options{
		Profiles:     profiles,
		Interactions: interactions,
		Products:     products,
		Cache:        cacheSvc,
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return f.clock },
	})
	return f
}

// advance steps the fixture clock, moving subsequent writes past the
// minute-granularity dedup window.
func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) seedProduct(t *testing.T, p models.Product) {
	t.Helper()
	if p.Status == "" {
		p.Status = models.StatusPublished
	}
	if err := f.products.Upsert(context.Background(), p); err != nil {
		t.Fatalf("seeding product: %v", err)
	}
}

func TestBuildUserContext_Anonymous(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	uc, err := f.service.BuildUserContext(context.Background(), nil, recommend.SessionContext{SessionID: "s1"})
	if err != nil {
		t.Fatalf("BuildUserContext: %v", err)
	}
	if !uc.IsAnonymous() {
		t.Error("nil user should produce an anonymous context")
	}
	if uc.Session.SessionID != "s1" {
		t.Errorf("session = %q, want s1", uc.Session.SessionID)
	}
	if len(uc.CategoryScores) != 0 || len(uc.Dismissed) != 0 {
		t.Error("anonymous context should carry no preferences")
	}
}

func TestBuildUserContext_NoProfileYet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := &models.User{ID: "newcomer"}

	uc, err := f.service.BuildUserContext(context.Background(), user, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("BuildUserContext: %v", err)
	}
	if uc.IsAnonymous() {
		t.Error("authenticated user mapped to anonymous context")
	}
	if uc.Profile == nil || !uc.Profile.IsColdStart() {
		t.Error("missing profile should yield an empty cold-start profile")
	}
}

func TestBuildUserContext_MergesDeclaredInterests(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := &models.User{
		ID: "u1",
		Interests: []models.Interest{
			{Name: "AI", Strength: 8},
			{Name: "productivity", Strength: 3},
		},
	}

	uc, err := f.service.BuildUserContext(context.Background(), user, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("BuildUserContext: %v", err)
	}

	if got := uc.TagScores["ai"]; got != 0.8 {
		t.Errorf("tag score for ai = %v, want 0.8", got)
	}
	if got := uc.TagScores["productivity"]; got != 0.3 {
		t.Errorf("tag score for productivity = %v, want 0.3", got)
	}
}

func TestBuildUserContext_LearnedScoreBeatsWeakInterest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	prof := models.NewPreferenceProfile("u1", testNow)
	prof.Tags["ai"] = models.PreferenceScore{Score: 2.4, LastInteraction: testNow, InteractionCount: 6}
	if err := f.profiles.Upsert(context.Background(), prof); err != nil {
		t.Fatalf("seeding profile: %v", err)
	}

	user := &models.User{ID: "u1", Interests: []models.Interest{{Name: "AI", Strength: 5}}}
	uc, err := f.service.BuildUserContext(context.Background(), user, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("BuildUserContext: %v", err)
	}
	if got := uc.TagScores["ai"]; got != 2.4 {
		t.Errorf("tag score for ai = %v, want learned 2.4 to win over 0.5", got)
	}
}

func TestBuildUserContext_HistoryAggregates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedProduct(t, models.Product{ID: "p1", CategoryID: "design", Tags: []string{"figma"}})
	f.seedProduct(t, models.Product{ID: "p2", CategoryID: "design", Tags: []string{"ui"}})

	ctx := context.Background()
	for i, pid := range []string{"p1", "p2", "p1"} {
		ev := models.InteractionEvent{
			ID: string(rune('a' + i)), UserID: "u1", ProductID: pid,
			Type: models.InteractionView, CreatedAt: testNow.Add(-time.Duration(i+1) * time.Hour),
		}
		if err := f.interactions.Append(ctx, ev); err != nil {
			t.Fatalf("seeding event: %v", err)
		}
	}

	uc, err := f.service.BuildUserContext(ctx, &models.User{ID: "u1"}, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("BuildUserContext: %v", err)
	}

	if len(uc.ViewedProductIDs) == 0 {
		t.Fatal("viewed products missing from context")
	}
	if uc.ViewedProductIDs[0] != "p1" {
		t.Errorf("newest viewed = %s, want p1", uc.ViewedProductIDs[0])
	}
	if uc.CategoryScores["design"] <= 0 {
		t.Error("implicit category affinity missing from view history")
	}
}

func TestBuildUserContext_CachedAcrossCalls(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := &models.User{ID: "u1"}
	ctx := context.Background()

	first, err := f.service.BuildUserContext(ctx, user, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("first BuildUserContext: %v", err)
	}

	// A direct profile write without invalidation must not be visible; the
	// context comes from cache until an interaction invalidates it.
	prof := models.NewPreferenceProfile("u1", testNow)
	prof.Tags["ai"] = models.PreferenceScore{Score: 9, InteractionCount: 1}
	if err := f.profiles.Upsert(ctx, prof); err != nil {
		t.Fatalf("profile upsert: %v", err)
	}

	second, err := f.service.BuildUserContext(ctx, user, recommend.SessionContext{})
	if err != nil {
		t.Fatalf("second BuildUserContext: %v", err)
	}
	if len(second.TagScores) != len(first.TagScores) {
		t.Error("context not served from cache")
	}
}

func TestUpdateFromInterests(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := &models.User{ID: "u1", Interests: []models.Interest{{Name: "DevTools", Strength: 7}}}

	prof, err := f.service.UpdateFromInterests(context.Background(), user)
	if err != nil {
		t.Fatalf("UpdateFromInterests: %v", err)
	}
	if got := prof.Tags["devtools"].Score; got != 0.7 {
		t.Errorf("devtools score = %v, want 0.7", got)
	}

	if _, err := f.service.UpdateFromInterests(context.Background(), nil); err == nil {
		t.Error("anonymous UpdateFromInterests should fail")
	}
}
