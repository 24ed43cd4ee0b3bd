// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/curata-io/curata/internal/models"
)

func seedEvents(t *testing.T, log *InteractionLog, evs []models.InteractionEvent) {
	t.Helper()
	if err := log.BulkAppend(context.Background(), evs); err != nil {
		t.Fatalf("failed to seed events: %v", err)
	}
}

func event(id, userID, productID string, typ models.InteractionType, at time.Time) models.InteractionEvent {
	return models.InteractionEvent{
		ID:        id,
		UserID:    userID,
		ProductID: productID,
		Type:      typ,
		CreatedAt: at,
	}
}

func TestInteractionLog_AppendAndRecent(t *testing.T) {
	db := setupTestDB(t)
	log := NewInteractionLog(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	ev := event("e1", "u1", "p1", models.InteractionView, now)
	ev.RecommendationType = "trending"
	ev.Position = 3
	ev.Metadata = models.InteractionMetadata{Source: "homepage", DeviceType: "mobile"}
	if err := log.Append(ctx, ev); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	seedEvents(t, log, []models.InteractionEvent{
		event("e2", "u1", "p2", models.InteractionUpvote, now.Add(-time.Hour)),
		event("e3", "u2", "p1", models.InteractionView, now),
		event("e4", "u1", "p3", models.InteractionView, now.Add(-40*24*time.Hour)),
	})

	got, err := log.RecentByUser(ctx, "u1", now.Add(-30*24*time.Hour), nil, 0)
	if err != nil {
		t.Fatalf("RecentByUser() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentByUser() returned %d events, want 2", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e2" {
		t.Errorf("events not newest first: [%s, %s]", got[0].ID, got[1].ID)
	}
	if got[0].Metadata.Source != "homepage" {
		t.Errorf("metadata did not round-trip: %+v", got[0].Metadata)
	}

	views, err := log.RecentByUser(ctx, "u1", now.Add(-30*24*time.Hour),
		[]models.InteractionType{models.InteractionView}, 0)
	if err != nil {
		t.Fatalf("RecentByUser(views) error: %v", err)
	}
	if len(views) != 1 || views[0].ID != "e1" {
		t.Errorf("type filter returned %v, want only e1", views)
	}
}

func TestInteractionLog_History(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewProductCatalog(db)
	log := NewInteractionLog(db)
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 20, 0, 0, 0, time.UTC) // a Wednesday evening

	seedCatalog(t, catalog, []models.Product{
		{ID: "p1", Name: "A", Status: models.StatusPublished, CategoryID: "design",
			Tags: []string{"ai", "collab"}, CreatedAt: now.Add(-time.Hour)},
		{ID: "p2", Name: "B", Status: models.StatusPublished, CategoryID: "devtools",
			Tags: []string{"ai"}, CreatedAt: now.Add(-time.Hour)},
	})

	seedEvents(t, log, []models.InteractionEvent{
		event("e1", "u1", "p1", models.InteractionView, now),
		event("e2", "u1", "p1", models.InteractionView, now.Add(-2*time.Hour)),
		event("e3", "u1", "p2", models.InteractionClick, now.Add(-time.Hour)),
		event("e4", "u1", "p1", models.InteractionUpvote, now),
		event("e5", "u2", "p1", models.InteractionView, now),
	})

	h, err := log.History(ctx, "u1", now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}

	if len(h.ViewedProducts) != 2 {
		t.Fatalf("ViewedProducts = %d, want 2", len(h.ViewedProducts))
	}
	if h.ViewedProducts[0].ProductID != "p1" || h.ViewedProducts[0].ViewCount != 2 {
		t.Errorf("top viewed = %+v, want p1 with 2 views", h.ViewedProducts[0])
	}

	if h.CategoryViews["design"] != 2 || h.CategoryViews["devtools"] != 1 {
		t.Errorf("CategoryViews = %v", h.CategoryViews)
	}
	if h.TagViews["ai"] != 3 || h.TagViews["collab"] != 2 {
		t.Errorf("TagViews = %v", h.TagViews)
	}

	if h.TotalEvents != 4 {
		t.Errorf("TotalEvents = %d, want 4", h.TotalEvents)
	}
	if h.HourlyByWeekday[time.Wednesday][20] != 2 {
		t.Errorf("hour matrix = %v, want 2 events at Wed 20h", h.HourlyByWeekday)
	}
}

func TestInteractionLog_UpvoteCounts(t *testing.T) {
	db := setupTestDB(t)
	log := NewInteractionLog(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	seedEvents(t, log, []models.InteractionEvent{
		event("e1", "u1", "p1", models.InteractionUpvote, now.Add(-time.Hour)),
		event("e2", "u2", "p1", models.InteractionUpvote, now.Add(-time.Hour)),
		event("e3", "u3", "p2", models.InteractionUpvote, now.Add(-time.Hour)),
		event("e4", "u3", "p2", models.InteractionRemoveUpvote, now.Add(-30*time.Minute)),
		event("e5", "u4", "p3", models.InteractionUpvote, now.Add(-48*time.Hour)),
	})

	got, err := log.UpvoteCounts(ctx, now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatalf("UpvoteCounts() error: %v", err)
	}
	if got["p1"] != 2 {
		t.Errorf("p1 upvotes = %d, want 2", got["p1"])
	}
	if _, ok := got["p2"]; ok {
		t.Error("p2 net upvotes should be zero and omitted")
	}
	if _, ok := got["p3"]; ok {
		t.Error("p3 is outside the window and should be omitted")
	}
}

func TestInteractionLog_ExistsAtMinute(t *testing.T) {
	db := setupTestDB(t)
	log := NewInteractionLog(db)
	ctx := context.Background()
	at := time.Date(2026, 8, 26, 12, 30, 15, 0, time.UTC)

	seedEvents(t, log, []models.InteractionEvent{
		event("e1", "u1", "p1", models.InteractionView, at),
	})

	tests := []struct {
		name string
		at   time.Time
		typ  models.InteractionType
		want bool
	}{
		{"same minute duplicate", at.Add(20 * time.Second), models.InteractionView, true},
		{"next minute is fresh", at.Add(time.Minute), models.InteractionView, false},
		{"different type is fresh", at, models.InteractionUpvote, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.ExistsAtMinute(ctx, "u1", "p1", tt.typ, tt.at)
			if err != nil {
				t.Fatalf("ExistsAtMinute() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExistsAtMinute() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInteractionLog_BulkAppendLarge(t *testing.T) {
	db := setupTestDB(t)
	log := NewInteractionLog(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	evs := make([]models.InteractionEvent, 250)
	for i := range evs {
		evs[i] = event(
			fmt.Sprintf("bulk-%d", i), "u1", "p1",
			models.InteractionImpression, now.Add(-time.Duration(i)*time.Minute))
	}
	if err := log.BulkAppend(ctx, evs); err != nil {
		t.Fatalf("BulkAppend() error: %v", err)
	}

	got, err := log.RecentByUser(ctx, "u1", now.Add(-30*24*time.Hour), nil, 0)
	if err != nil {
		t.Fatalf("RecentByUser() error: %v", err)
	}
	if len(got) != 250 {
		t.Errorf("stored %d events, want 250", len(got))
	}
}
