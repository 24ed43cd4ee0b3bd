// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/curata-io/curata/internal/models"
)

// MemoryProductStore is an in-memory ProductStore for tests.
type MemoryProductStore struct {
	mu         sync.RWMutex
	products   map[string]models.Product
	categories map[string]models.Category
}

var _ ProductStore = (*MemoryProductStore)(nil)

// NewMemoryProductStore creates an empty in-memory catalog.
func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		products:   make(map[string]models.Product),
		categories: make(map[string]models.Category),
	}
}

// Upsert writes a product projection.
func (m *MemoryProductStore) Upsert(_ context.Context, p models.Product) error {
	m.mu.Lock()
	m.products[p.ID] = p
	m.mu.Unlock()
	return nil
}

// UpsertCategory writes a category projection.
func (m *MemoryProductStore) UpsertCategory(_ context.Context, cat models.Category) error {
	m.mu.Lock()
	m.categories[cat.ID] = cat
	m.mu.Unlock()
	return nil
}

// Query runs a filtered catalog read with the same semantics as the DuckDB
// implementation.
func (m *MemoryProductStore) Query(_ context.Context, q ProductQuery) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exclude := make(map[string]struct{}, len(q.ExcludeIDs))
	for _, id := range q.ExcludeIDs {
		exclude[id] = struct{}{}
	}

	wantCategories := make(map[string]struct{}, len(q.CategoryIDs))
	for _, id := range q.CategoryIDs {
		wantCategories[id] = struct{}{}
	}

	var out []models.Product
	for _, p := range m.products {
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.CategoryID != "" && p.CategoryID != q.CategoryID {
			continue
		}
		if len(wantCategories) > 0 {
			if _, ok := wantCategories[p.CategoryID]; !ok {
				continue
			}
		}
		if q.MakerID != "" && p.MakerID != q.MakerID {
			continue
		}
		if _, excluded := exclude[p.ID]; excluded {
			continue
		}
		if !q.CreatedAfter.IsZero() && p.CreatedAt.Before(q.CreatedAfter) {
			continue
		}
		if q.MinUpvotes > 0 && p.UpvoteCount < q.MinUpvotes {
			continue
		}
		if q.HasEngagement && p.UpvoteCount == 0 && p.BookmarkCount == 0 && p.ViewCount == 0 {
			continue
		}
		if len(q.Tags) > 0 && !matchesAnyTag(p.Tags, q.Tags) {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, q.Sort)

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// GetByID fetches one product or ErrProductNotFound.
func (m *MemoryProductStore) GetByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return &p, nil
}

// GetByIDs fetches products preserving the input order.
func (m *MemoryProductStore) GetByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// GetCategory fetches one category or ErrCategoryNotFound.
func (m *MemoryProductStore) GetCategory(_ context.Context, id string) (*models.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cat, ok := m.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
	}
	return &cat, nil
}

// CategoryEngagement aggregates published inventory per category.
func (m *MemoryProductStore) CategoryEngagement(_ context.Context, minProducts int) ([]CategoryEngagement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	upvotes := make(map[string]int)
	for _, p := range m.products {
		if p.Status != models.StatusPublished || p.CategoryID == "" {
			continue
		}
		counts[p.CategoryID]++
		upvotes[p.CategoryID] += p.UpvoteCount
	}

	var out []CategoryEngagement
	for id, count := range counts {
		if count < minProducts {
			continue
		}
		out = append(out, CategoryEngagement{
			CategoryID:   id,
			ProductCount: count,
			AvgUpvotes:   float64(upvotes[id]) / float64(count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgUpvotes != out[j].AvgUpvotes {
			return out[i].AvgUpvotes > out[j].AvgUpvotes
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func matchesAnyTag(have, want []string) bool {
	for _, w := range want {
		lw := strings.ToLower(w)
		for _, h := range have {
			if strings.ToLower(h) == lw {
				return true
			}
		}
	}
	return false
}

func sortProducts(ps []models.Product, s ProductSort) {
	switch s {
	case SortUpvotes:
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].UpvoteCount != ps[j].UpvoteCount {
				return ps[i].UpvoteCount > ps[j].UpvoteCount
			}
			if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
				return ps[i].CreatedAt.After(ps[j].CreatedAt)
			}
			return ps[i].ID < ps[j].ID
		})
	case SortViews:
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].ViewCount != ps[j].ViewCount {
				return ps[i].ViewCount > ps[j].ViewCount
			}
			if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
				return ps[i].CreatedAt.After(ps[j].CreatedAt)
			}
			return ps[i].ID < ps[j].ID
		})
	case SortRandom:
		// Map iteration already randomized the order.
	default:
		sort.Slice(ps, func(i, j int) bool {
			if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
				return ps[i].CreatedAt.After(ps[j].CreatedAt)
			}
			return ps[i].ID < ps[j].ID
		})
	}
}

// MemoryInteractionStore is an in-memory InteractionStore for tests. Category
// and tag aggregation joins against an optional catalog.
type MemoryInteractionStore struct {
	mu      sync.RWMutex
	events  []models.InteractionEvent
	catalog *MemoryProductStore
}

var _ InteractionStore = (*MemoryInteractionStore)(nil)

// NewMemoryInteractionStore creates an empty event log. The catalog may be
// nil, in which case History returns no category or tag tallies.
func NewMemoryInteractionStore(catalog *MemoryProductStore) *MemoryInteractionStore {
	return &MemoryInteractionStore{catalog: catalog}
}

// Append records one event.
func (m *MemoryInteractionStore) Append(_ context.Context, ev models.InteractionEvent) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

// BulkAppend records a batch of events.
func (m *MemoryInteractionStore) BulkAppend(_ context.Context, evs []models.InteractionEvent) error {
	m.mu.Lock()
	m.events = append(m.events, evs...)
	m.mu.Unlock()
	return nil
}

// Events returns a copy of every recorded event, for assertions.
func (m *MemoryInteractionStore) Events() []models.InteractionEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.InteractionEvent, len(m.events))
	copy(out, m.events)
	return out
}

// RecentByUser returns a user's events newest first.
func (m *MemoryInteractionStore) RecentByUser(_ context.Context, userID string, since time.Time, types []models.InteractionType, limit int) ([]models.InteractionEvent, error) {
	wantTypes := make(map[models.InteractionType]struct{}, len(types))
	for _, t := range types {
		wantTypes[t] = struct{}{}
	}

	m.mu.RLock()
	var out []models.InteractionEvent
	for _, ev := range m.events {
		if ev.UserID != userID || ev.CreatedAt.Before(since) {
			continue
		}
		if len(wantTypes) > 0 {
			if _, ok := wantTypes[ev.Type]; !ok {
				continue
			}
		}
		out = append(out, ev)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// History aggregates a user's events since the given time.
func (m *MemoryInteractionStore) History(ctx context.Context, userID string, since time.Time) (*UserHistory, error) {
	h := &UserHistory{
		CategoryViews:   make(map[string]int),
		TagViews:        make(map[string]int),
		HourlyByWeekday: make(map[time.Weekday]map[int]int),
	}

	viewCounts := make(map[string]int)
	lastViewed := make(map[string]time.Time)

	m.mu.RLock()
	events := make([]models.InteractionEvent, 0, len(m.events))
	for _, ev := range m.events {
		if ev.UserID == userID && !ev.CreatedAt.Before(since) {
			events = append(events, ev)
		}
	}
	m.mu.RUnlock()

	for _, ev := range events {
		wd := ev.CreatedAt.UTC().Weekday()
		if h.HourlyByWeekday[wd] == nil {
			h.HourlyByWeekday[wd] = make(map[int]int)
		}
		h.HourlyByWeekday[wd][ev.CreatedAt.UTC().Hour()]++
		h.TotalEvents++

		if ev.Type != models.InteractionView && ev.Type != models.InteractionClick {
			continue
		}

		viewCounts[ev.ProductID]++
		if ev.CreatedAt.After(lastViewed[ev.ProductID]) {
			lastViewed[ev.ProductID] = ev.CreatedAt
		}

		if m.catalog != nil {
			if p, err := m.catalog.GetByID(ctx, ev.ProductID); err == nil {
				if p.CategoryID != "" {
					h.CategoryViews[p.CategoryID]++
				}
				for _, tag := range p.Tags {
					h.TagViews[strings.ToLower(tag)]++
				}
			}
		}
	}

	for id, count := range viewCounts {
		h.ViewedProducts = append(h.ViewedProducts, ProductViewStat{
			ProductID:  id,
			ViewCount:  count,
			LastViewed: lastViewed[id],
		})
	}
	sort.Slice(h.ViewedProducts, func(i, j int) bool {
		return h.ViewedProducts[i].LastViewed.After(h.ViewedProducts[j].LastViewed)
	})
	return h, nil
}

// UpvoteCounts returns net per-product upvotes within [since, until).
func (m *MemoryInteractionStore) UpvoteCounts(_ context.Context, since, until time.Time) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int)
	for _, ev := range m.events {
		if ev.CreatedAt.Before(since) || !ev.CreatedAt.Before(until) {
			continue
		}
		switch ev.Type {
		case models.InteractionUpvote:
			out[ev.ProductID]++
		case models.InteractionRemoveUpvote:
			out[ev.ProductID]--
		}
	}
	for id, count := range out {
		if count <= 0 {
			delete(out, id)
		}
	}
	return out, nil
}

// ExistsAtMinute reports whether an equivalent event landed in the same minute.
func (m *MemoryInteractionStore) ExistsAtMinute(_ context.Context, userID, productID string, t models.InteractionType, at time.Time) (bool, error) {
	minute := at.UTC().Truncate(time.Minute)

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ev := range m.events {
		if ev.UserID != userID || ev.ProductID != productID || ev.Type != t {
			continue
		}
		if ev.CreatedAt.UTC().Truncate(time.Minute).Equal(minute) {
			return true, nil
		}
	}
	return false, nil
}

// MemoryProfileStore is an in-memory ProfileStore for tests.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.PreferenceProfile
}

var _ ProfileStore = (*MemoryProfileStore)(nil)

// NewMemoryProfileStore creates an empty profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]*models.PreferenceProfile)}
}

func cloneProfile(p *models.PreferenceProfile) *models.PreferenceProfile {
	clone := *p
	clone.Categories = make(map[string]models.PreferenceScore, len(p.Categories))
	for k, v := range p.Categories {
		clone.Categories[k] = v
	}
	clone.Tags = make(map[string]models.PreferenceScore, len(p.Tags))
	for k, v := range p.Tags {
		clone.Tags[k] = v
	}
	clone.Dismissed = append([]string(nil), p.Dismissed...)
	clone.RecentInteractions = append([]models.RecentInteraction(nil), p.RecentInteractions...)
	clone.Recommended = append([]models.StoredRecommendation(nil), p.Recommended...)
	return &clone
}

// Get loads a user's profile or returns ErrProfileNotFound.
func (m *MemoryProfileStore) Get(_ context.Context, userID string) (*models.PreferenceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	return cloneProfile(p), nil
}

// Upsert replaces the user's profile document.
func (m *MemoryProfileStore) Upsert(_ context.Context, profile *models.PreferenceProfile) error {
	if profile == nil || profile.UserID == "" {
		return fmt.Errorf("profile requires a user id")
	}
	m.mu.Lock()
	m.profiles[profile.UserID] = cloneProfile(profile)
	m.mu.Unlock()
	return nil
}

// Apply runs a read-modify-write of the user's profile under the store lock.
func (m *MemoryProfileStore) Apply(_ context.Context, userID string, fn func(*models.PreferenceProfile) error) (*models.PreferenceProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("apply requires a user id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[userID]
	if !ok {
		profile = models.NewPreferenceProfile(userID, time.Now().UTC())
	} else {
		profile = cloneProfile(profile)
	}

	if err := fn(profile); err != nil {
		return nil, err
	}
	profile.LastUpdated = time.Now().UTC()

	m.profiles[userID] = profile
	return cloneProfile(profile), nil
}

// List returns up to limit profiles, excluding the given user.
func (m *MemoryProfileStore) List(_ context.Context, limit int, excludeUserID string) ([]*models.PreferenceProfile, error) {
	if limit <= 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.profiles))
	for id := range m.profiles {
		if id != excludeUserID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*models.PreferenceProfile, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneProfile(m.profiles[id]))
	}
	return out, nil
}

// Delete removes a user's profile.
func (m *MemoryProfileStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.profiles, userID)
	m.mu.Unlock()
	return nil
}
