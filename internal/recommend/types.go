// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"time"

	"github.com/curata-io/curata/internal/models"
)

// Reason is the strategy tag attached to every candidate and served item.
// It drives blending weights, diversity accounting, and explanations.
type Reason string

const (
	ReasonTrending      Reason = "trending"
	ReasonNew           Reason = "new"
	ReasonPersonalized  Reason = "personalized"
	ReasonCollaborative Reason = "collaborative"
	ReasonInterests     Reason = "interests"
	ReasonSimilar       Reason = "similar"
	ReasonDiscovery     Reason = "discovery"
	ReasonSpotlight     Reason = "category_spotlight"
	ReasonSerendipity   Reason = "serendipity"
)

// priorityOrder is the explicit source order used by the diversifier's first
// pass and by candidate merging. Ordering here is load-bearing; nothing may
// rely on map iteration where ordering matters.
var priorityOrder = []Reason{
	ReasonTrending,
	ReasonPersonalized,
	ReasonInterests,
	ReasonNew,
	ReasonDiscovery,
	ReasonCollaborative,
	ReasonSimilar,
	ReasonSpotlight,
	ReasonSerendipity,
}

// Blend selects a preset weight distribution across sources.
type Blend string

const (
	BlendStandard     Blend = "standard"
	BlendDiscovery    Blend = "discovery"
	BlendTrending     Blend = "trending"
	BlendPersonalized Blend = "personalized"
	BlendNew          Blend = "new"
)

// ValidBlend reports whether the name is a known preset. Empty selects the
// standard blend.
func ValidBlend(name string) bool {
	switch Blend(name) {
	case "", BlendStandard, BlendDiscovery, BlendTrending, BlendPersonalized, BlendNew:
		return true
	}
	return false
}

// SortBy selects the final ordering of a served page.
type SortBy string

const (
	SortByScore    SortBy = "score"
	SortByCreated  SortBy = "created"
	SortByUpvotes  SortBy = "upvotes"
	SortByTrending SortBy = "trending"
)

// SessionContext carries request-scoped client info into impression events.
type SessionContext struct {
	SessionID  string `json:"session_id,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// Request is a hybrid recommendation request with validated inputs.
type Request struct {
	User     *models.User
	Limit    int
	Offset   int
	Blend    Blend
	Category string
	Tags     []string
	// SeedProductIDs pins the similar strategy to explicit seed products,
	// for the similar-to-product endpoint.
	SeedProductIDs []string
	SortBy         SortBy
	ForceRefresh   bool
	Session        SessionContext
}

// Candidate is a scored product proposed by one strategy before merging.
type Candidate struct {
	ProductID string
	Product   models.Product
	// Score is the strategy's normalized score in [0,1]; RawScore keeps the
	// pre-normalization value for debugging.
	Score     float64
	RawScore  float64
	Reason    Reason
	SubReason string
	// Fallback marks a candidate found only after the strategy widened or
	// dropped its date window; serving one reports has_fallback.
	Fallback bool
	// ScoreComponents optionally breaks the score down for debug output.
	ScoreComponents map[string]float64
}

// ItemMetadata annotates a served item with provenance.
type ItemMetadata struct {
	Source        Reason    `json:"source"`
	SubSource     string    `json:"sub_source,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
	IsTopTrending bool      `json:"is_top_trending,omitempty"`
	TrendingSince string    `json:"trending_since,omitempty"`
	TimeWindow    string    `json:"time_window,omitempty"`
	Placeholder   bool      `json:"placeholder,omitempty"`
}

// Item is one served recommendation.
type Item struct {
	ProductID    string                 `json:"product_id"`
	Score        float64                `json:"score"`
	Reason       Reason                 `json:"reason"`
	Explanation  string                 `json:"explanation,omitempty"`
	ScoreContext map[string]interface{} `json:"score_context,omitempty"`
	Metadata     ItemMetadata           `json:"metadata"`
	Product      models.Product         `json:"product"`
}

// ScoreStats summarizes the score distribution of a served page.
type ScoreStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// ResponseMetadata describes how a page was assembled, including any
// degradation the caller should know about.
type ResponseMetadata struct {
	ScoreStats           ScoreStats     `json:"score_stats"`
	SourceDistribution   map[Reason]int `json:"source_distribution"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	NextOffset           int            `json:"next_offset"`
	HasMore              bool           `json:"has_more"`
	CacheStatus          string         `json:"cache_status"` // hit, miss, bypass
	HasFallback          bool           `json:"has_fallback,omitempty"`
	Degraded             bool           `json:"degraded,omitempty"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	Blend                Blend          `json:"blend"`
	GeneratedAt          time.Time      `json:"generated_at"`
	QueryTimeMS          int64          `json:"query_time_ms"`
}

// Response is a served recommendation page.
type Response struct {
	Items    []Item           `json:"items"`
	Metadata ResponseMetadata `json:"metadata"`
}

// UserContext aggregates everything the strategies need about the requesting
// user. Anonymous requests carry a nil-profile context with safe defaults.
type UserContext struct {
	User    *models.User
	Profile *models.PreferenceProfile

	// Preference score maps merged from the profile and declared interests.
	CategoryScores map[string]float64
	TagScores      map[string]float64

	Dismissed []string
	// ViewedProductIDs is newest-first, from the 30-day history aggregate.
	ViewedProductIDs  []string
	UpvotedProductIDs []string

	Session SessionContext
}

// IsAnonymous reports whether the context belongs to an anonymous session.
func (c *UserContext) IsAnonymous() bool {
	return c == nil || c.User.IsAnonymous()
}

// UserID returns the context's user id, or "" for anonymous sessions.
func (c *UserContext) UserID() string {
	if c == nil || c.User == nil {
		return ""
	}
	return c.User.ID
}

// IsDismissed reports whether the user dismissed the product.
func (c *UserContext) IsDismissed(productID string) bool {
	if c == nil {
		return false
	}
	for _, id := range c.Dismissed {
		if id == productID {
			return true
		}
	}
	return false
}

// HasStrongPreferences mirrors the profile signal with an anonymous default.
func (c *UserContext) HasStrongPreferences() bool {
	return c != nil && c.Profile != nil && c.Profile.HasStrongPreferences()
}

// HasRecentActivity reports interactions within the last 72 hours.
func (c *UserContext) HasRecentActivity(now time.Time) bool {
	return c != nil && c.Profile != nil && c.Profile.HasRecentActivity(now, 72*time.Hour)
}

// TrendingMetrics is one product's entry in the trending snapshot.
type TrendingMetrics struct {
	RecentUpvotes   int     `json:"recent_upvotes"`
	PriorUpvotes    int     `json:"prior_upvotes"`
	PercentIncrease float64 `json:"percent_increase"`
}

// TrendingSnapshot is the hour-bucketed aggregate of per-product upvote
// momentum used for explanations and secondary scoring.
type TrendingSnapshot struct {
	Products    map[string]TrendingMetrics `json:"products"`
	WindowDays  int                        `json:"window_days"`
	GeneratedAt time.Time                  `json:"generated_at"`
}

// IsRising reports whether the product's recent upvotes beat its prior
// window.
func (s *TrendingSnapshot) IsRising(productID string) bool {
	if s == nil {
		return false
	}
	m, ok := s.Products[productID]
	return ok && m.RecentUpvotes > m.PriorUpvotes && m.RecentUpvotes > 0
}
