// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package cache

import (
	"strings"

	"github.com/curata-io/curata/internal/models"
)

// InvalidateUser purges every key tagged to the given user. When all is
// false, profile-derived keys are kept and only recommendation pages and
// candidate caches are purged; when true, everything user-scoped goes.
// Returns the number of keys removed.
func (s *Service) InvalidateUser(userID string, all bool) int {
	if s == nil || userID == "" {
		return 0
	}

	s.mu.Lock()
	removed := 0
	for key, e := range s.entries {
		if e.userID != userID {
			continue
		}
		if !all && strings.HasPrefix(key, prefixProfile) {
			continue
		}
		delete(s.entries, key)
		removed++
	}
	s.mu.Unlock()

	if removed > 0 {
		s.recordInvalidations(removed)
		s.logger.Debug().
			Str("user_id", userID).
			Bool("all", all).
			Int("removed", removed).
			Msg("user cache invalidated")
	}
	return removed
}

// SmartInvalidate purges exactly the keyspaces whose freshness is affected
// by the given interaction type. Strong signals (upvotes, bookmarks) also
// age out the trending snapshot; dismissals only affect the user's own
// pages. Returns the number of keys removed.
func (s *Service) SmartInvalidate(t models.InteractionType, userID, productID string) int {
	if s == nil {
		return 0
	}

	removed := 0

	switch t {
	case models.InteractionUpvote, models.InteractionRemoveUpvote,
		models.InteractionBookmark, models.InteractionRemoveBookmark:
		// Engagement counters moved; trending aggregates are stale.
		removed += s.DeletePrefix(prefixTrendingMetrics)
		removed += s.InvalidateUser(userID, true)

	case models.InteractionDismiss:
		// Only this user's pages can contain the dismissed product.
		removed += s.InvalidateUser(userID, true)

	case models.InteractionComment, models.InteractionShare:
		removed += s.InvalidateUser(userID, true)

	case models.InteractionView, models.InteractionClick:
		// Views shift preferences but not rankings; refresh profile-derived
		// keys and the user's personalized pages only.
		removed += s.InvalidateUser(userID, false)

	case models.InteractionFeedback:
		removed += s.InvalidateUser(userID, true)

	case models.InteractionImpression:
		// Impressions never invalidate; they are recorded, not acted on.

	default:
		removed += s.InvalidateUser(userID, false)
	}

	if removed > 0 {
		s.logger.Debug().
			Str("interaction", string(t)).
			Str("user_id", userID).
			Str("product_id", productID).
			Int("removed", removed).
			Msg("smart invalidation complete")
	}
	return removed
}
