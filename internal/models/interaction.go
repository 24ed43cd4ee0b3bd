// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package models

import "time"

// InteractionType classifies user-product interaction events.
type InteractionType string

const (
	InteractionView           InteractionType = "view"
	InteractionClick          InteractionType = "click"
	InteractionUpvote         InteractionType = "upvote"
	InteractionBookmark       InteractionType = "bookmark"
	InteractionComment        InteractionType = "comment"
	InteractionShare          InteractionType = "share"
	InteractionDismiss        InteractionType = "dismiss"
	InteractionImpression     InteractionType = "impression"
	InteractionRemoveUpvote   InteractionType = "remove_upvote"
	InteractionRemoveBookmark InteractionType = "remove_bookmark"
	InteractionFeedback       InteractionType = "feedback"
)

// defaultInteractionWeight is applied to interaction types without an
// explicit preference weight.
const defaultInteractionWeight = 0.3

// interactionWeights maps each interaction type to the preference weight it
// contributes to a user's category and tag scores. Negative weights remove
// signal; stored scores are clamped non-negative by the profile service.
var interactionWeights = map[InteractionType]float64{
	InteractionView:           0.2,
	InteractionClick:          0.3,
	InteractionComment:        0.5,
	InteractionShare:          0.6,
	InteractionBookmark:       0.7,
	InteractionUpvote:         0.8,
	InteractionDismiss:        -0.5,
	InteractionRemoveUpvote:   -0.8,
	InteractionRemoveBookmark: -0.7,
}

// Weight returns the preference weight for this interaction type.
// Unknown types default to a mild positive weight.
func (t InteractionType) Weight() float64 {
	if w, ok := interactionWeights[t]; ok {
		return w
	}
	return defaultInteractionWeight
}

// IsRemoval reports whether this interaction undoes a prior positive signal.
func (t InteractionType) IsRemoval() bool {
	return t == InteractionRemoveUpvote || t == InteractionRemoveBookmark
}

// Valid reports whether t is a recognized interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionClick, InteractionUpvote, InteractionBookmark,
		InteractionComment, InteractionShare, InteractionDismiss, InteractionImpression,
		InteractionRemoveUpvote, InteractionRemoveBookmark, InteractionFeedback:
		return true
	default:
		return false
	}
}

// FeedbackAction is the coarse feedback signal mapped onto interactions.
type FeedbackAction string

const (
	FeedbackLike          FeedbackAction = "like"
	FeedbackDislike       FeedbackAction = "dislike"
	FeedbackNotInterested FeedbackAction = "not_interested"
)

// Valid reports whether a is a recognized feedback action.
func (a FeedbackAction) Valid() bool {
	switch a {
	case FeedbackLike, FeedbackDislike, FeedbackNotInterested:
		return true
	default:
		return false
	}
}

// InteractionMetadata carries request-scoped context recorded with each event.
type InteractionMetadata struct {
	SessionID           string   `json:"session_id,omitempty"`
	DeviceType          string   `json:"device_type,omitempty"`
	UserAgent           string   `json:"user_agent,omitempty"`
	EngagementQuality   float64  `json:"engagement_quality,omitempty"`
	CategoryMatch       bool     `json:"category_match,omitempty"`
	TagMatches          []string `json:"tag_matches,omitempty"`
	UserPreferenceScore float64  `json:"user_preference_score,omitempty"`
	ResponseTimeMS      int64    `json:"response_time_ms,omitempty"`
	CacheHit            bool     `json:"cache_hit,omitempty"`
	Source              string   `json:"source,omitempty"`
	Reason              string   `json:"reason,omitempty"`
}

// InteractionEvent is an immutable, append-only record of a single
// user-product interaction. Impression batches are bulk-inserted.
type InteractionEvent struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Type      InteractionType `json:"type"`

	// RecommendationType is the strategy tag of the recommendation that led
	// to this interaction, when known.
	RecommendationType string `json:"recommendation_type,omitempty"`

	// Position is the zero-based impression index within a served page.
	Position int `json:"position,omitempty"`

	// Score is the recommendation score at serving time.
	Score float64 `json:"score,omitempty"`

	Metadata  InteractionMetadata `json:"metadata,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}
