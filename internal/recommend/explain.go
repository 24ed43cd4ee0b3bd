// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"fmt"
	"strings"
)

// explain produces the human-readable explanation and score context for a
// served item. Explanations never expose raw scores; the score context does,
// for clients that render a "why am I seeing this" panel.
func explain(c Candidate, userCtx *UserContext, snap *TrendingSnapshot) (string, map[string]interface{}) {
	text := explanationText(c, userCtx, snap)

	scoreCtx := map[string]interface{}{
		"source":    string(c.Reason),
		"raw_score": c.RawScore,
	}
	if c.SubReason != "" {
		scoreCtx["sub_source"] = c.SubReason
	}
	if len(c.ScoreComponents) > 0 {
		scoreCtx["components"] = c.ScoreComponents
	}
	if m, ok := snapshotMetrics(snap, c.ProductID); ok {
		scoreCtx["recent_upvotes"] = m.RecentUpvotes
		scoreCtx["percent_increase"] = m.PercentIncrease
	}

	return text, scoreCtx
}

func explanationText(c Candidate, userCtx *UserContext, snap *TrendingSnapshot) string {
	switch c.Reason {
	case ReasonTrending:
		if m, ok := snapshotMetrics(snap, c.ProductID); ok && m.RecentUpvotes > m.PriorUpvotes {
			return fmt.Sprintf("Trending now with %d recent upvotes", m.RecentUpvotes)
		}
		return "Trending in the community this week"

	case ReasonNew:
		return "Recently launched"

	case ReasonPersonalized:
		if match := bestPreferenceMatch(c, userCtx); match != "" {
			return fmt.Sprintf("Because you engage with %s", match)
		}
		return "Picked for you based on your activity"

	case ReasonCollaborative:
		return "Popular with people who share your interests"

	case ReasonInterests:
		if match := bestPreferenceMatch(c, userCtx); match != "" {
			return fmt.Sprintf("Matches your interest in %s", match)
		}
		return "Matches your declared interests"

	case ReasonSimilar:
		return "Similar to products you viewed recently"

	case ReasonDiscovery:
		switch c.SubReason {
		case "trending_new":
			return "New and gaining traction"
		case "highly_rated":
			return "Highly rated by the community"
		default:
			return "Something different to explore"
		}

	case ReasonSpotlight:
		if c.Product.CategoryID != "" {
			return "Spotlight on a category you have not explored"
		}
		return "Category spotlight"

	case ReasonSerendipity:
		return "A wildcard pick outside your usual lanes"

	default:
		return "Recommended for you"
	}
}

// bestPreferenceMatch names the strongest category or tag affinity the
// product shares with the user, for explanation text.
func bestPreferenceMatch(c Candidate, userCtx *UserContext) string {
	if userCtx == nil {
		return ""
	}

	best := ""
	bestScore := 0.0
	if c.Product.CategoryID != "" {
		if s, ok := userCtx.CategoryScores[c.Product.CategoryID]; ok && s > bestScore {
			best = c.Product.CategoryID
			bestScore = s
		}
	}
	for _, tag := range c.Product.Tags {
		if s, ok := userCtx.TagScores[strings.ToLower(tag)]; ok && s > bestScore {
			best = tag
			bestScore = s
		}
	}
	return best
}

func snapshotMetrics(snap *TrendingSnapshot, productID string) (TrendingMetrics, bool) {
	if snap == nil {
		return TrendingMetrics{}, false
	}
	m, ok := snap.Products[productID]
	return m, ok
}
