// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package models

import (
	"strings"
	"time"
)

// Bounds on the per-user preference document.
const (
	// MaxRecentInteractions caps the embedded interaction window.
	MaxRecentInteractions = 100
	// RecentInteractionRetention is the maximum age of embedded interactions.
	RecentInteractionRetention = 30 * 24 * time.Hour
	// MaxStoredRecommendations caps the cached recommendedProducts list.
	MaxStoredRecommendations = 50
)

// PreferenceScore is a single category or tag affinity entry.
type PreferenceScore struct {
	Score            float64   `json:"score"`
	LastInteraction  time.Time `json:"last_interaction"`
	InteractionCount int       `json:"interaction_count"`
}

// RecentInteraction is one entry of the profile's bounded interaction window,
// newest first.
type RecentInteraction struct {
	ProductID string              `json:"product_id"`
	Type      InteractionType     `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Metadata  InteractionMetadata `json:"metadata,omitempty"`
}

// StoredRecommendation is one entry of the profile's cached recommendation
// list, reseeded by regenerate.
type StoredRecommendation struct {
	ProductID   string    `json:"product_id"`
	Score       float64   `json:"score"`
	Reason      string    `json:"reason"`
	Explanation string    `json:"explanation,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// InteractionCounters tallies a user's lifetime positive interactions.
// Removal events decrement, never below zero.
type InteractionCounters struct {
	Views     int `json:"views"`
	Upvotes   int `json:"upvotes"`
	Bookmarks int `json:"bookmarks"`
	Comments  int `json:"comments"`
	Shares    int `json:"shares"`
}

// PreferenceProfile is the per-user preference document: the single writable
// entity in request scope. It owns category/tag scores, the dismissed set,
// and the bounded interaction window, holding only ids back to User and
// Product.
type PreferenceProfile struct {
	UserID string `json:"user_id"`

	// Categories maps category id to affinity; Tags maps lowercased tag to
	// affinity. Scores are always non-negative.
	Categories map[string]PreferenceScore `json:"categories"`
	Tags       map[string]PreferenceScore `json:"tags"`

	Dismissed          []string               `json:"dismissed,omitempty"`
	RecentInteractions []RecentInteraction    `json:"recent_interactions,omitempty"`
	Counters           InteractionCounters    `json:"counters"`
	Recommended        []StoredRecommendation `json:"recommended,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewPreferenceProfile creates an empty profile for a user.
func NewPreferenceProfile(userID string, now time.Time) *PreferenceProfile {
	return &PreferenceProfile{
		UserID:      userID,
		Categories:  make(map[string]PreferenceScore),
		Tags:        make(map[string]PreferenceScore),
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// EnsureMaps initializes nil score maps after deserialization.
func (p *PreferenceProfile) EnsureMaps() {
	if p.Categories == nil {
		p.Categories = make(map[string]PreferenceScore)
	}
	if p.Tags == nil {
		p.Tags = make(map[string]PreferenceScore)
	}
}

// IsDismissed reports whether the user has dismissed the product.
func (p *PreferenceProfile) IsDismissed(productID string) bool {
	for _, id := range p.Dismissed {
		if id == productID {
			return true
		}
	}
	return false
}

// Dismiss adds a product to the dismissed set. Idempotent.
func (p *PreferenceProfile) Dismiss(productID string) bool {
	if p.IsDismissed(productID) {
		return false
	}
	p.Dismissed = append(p.Dismissed, productID)
	return true
}

// IsColdStart reports whether the profile carries no preference signal.
func (p *PreferenceProfile) IsColdStart() bool {
	return len(p.Categories) == 0 && len(p.Tags) == 0
}

// HasStrongPreferences reports whether the profile carries enough signal for
// preference-heavy blends: several distinct affinities or one well-reinforced
// one.
func (p *PreferenceProfile) HasStrongPreferences() bool {
	if len(p.Categories)+len(p.Tags) >= 5 {
		return true
	}
	for _, s := range p.Categories {
		if s.Score >= 2 {
			return true
		}
	}
	for _, s := range p.Tags {
		if s.Score >= 2 {
			return true
		}
	}
	return false
}

// HasRecentActivity reports whether the user interacted within the window.
func (p *PreferenceProfile) HasRecentActivity(now time.Time, window time.Duration) bool {
	if len(p.RecentInteractions) == 0 {
		return false
	}
	// RecentInteractions is newest-first.
	return now.Sub(p.RecentInteractions[0].Timestamp) <= window
}

// TopCategories returns up to n category ids ordered by descending score,
// ties broken lexicographically for stable output.
func (p *PreferenceProfile) TopCategories(n int) []string {
	return topKeys(p.Categories, n)
}

// TopTags returns up to n tags ordered by descending score.
func (p *PreferenceProfile) TopTags(n int) []string {
	return topKeys(p.Tags, n)
}

// ScoreMaps flattens the profile into plain score maps for the scorer.
func (p *PreferenceProfile) ScoreMaps() (categories, tags map[string]float64) {
	categories = make(map[string]float64, len(p.Categories))
	for id, s := range p.Categories {
		categories[id] = s.Score
	}
	tags = make(map[string]float64, len(p.Tags))
	for tag, s := range p.Tags {
		tags[strings.ToLower(tag)] = s.Score
	}
	return categories, tags
}

func topKeys(m map[string]PreferenceScore, n int) []string {
	if n <= 0 || len(m) == 0 {
		return nil
	}

	type kv struct {
		key   string
		score float64
	}
	entries := make([]kv, 0, len(m))
	for k, s := range m {
		entries = append(entries, kv{k, s.Score})
	}

	// Insertion sort; preference maps are small.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := entries[j-1], entries[j]
			if b.score > a.score || (b.score == a.score && b.key < a.key) {
				entries[j-1], entries[j] = b, a
			} else {
				break
			}
		}
	}

	if n > len(entries) {
		n = len(entries)
	}
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = entries[i].key
	}
	return keys
}
