// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package scoring

// Scoring constants. These are the only tunable weights and thresholds the
// scoring functions consume; strategies and the hybrid engine read them from
// here so a single module controls scoring behavior.
const (
	// Engagement counter weights.
	WeightUpvotes   = 0.40
	WeightViews     = 0.15
	WeightBookmarks = 0.25
	WeightComments  = 0.20

	// EngagementSaturation is the half-saturation constant for the
	// logarithmic engagement curve: a product with this much weighted
	// engagement scores 0.5 before clamping.
	EngagementSaturation = 50.0

	// Recency decay. DecayRatePerDay is k in exp(-k * ageDays) when
	// maxAgeDays is 30; the effective rate scales inversely with maxAgeDays.
	DecayRatePerDay = 0.12

	// RecencyFloor is the minimum recency score for arbitrarily old products.
	RecencyFloor = 0.05

	// RecentDaysBoostWindow is the window, in days, inside which products
	// receive the freshness bonus.
	RecentDaysBoostWindow = 3.0

	// RecentDaysBoost is the bonus added to products inside the window.
	RecentDaysBoost = 0.15

	// Trending blend: recent engagement dominates absolute counters.
	TrendingRecentWeight  = 0.65
	TrendingOverallWeight = 0.35

	// Recent view estimation bounds when per-window counters are missing:
	// recent views are estimated as 30-50% of total views.
	RecentViewEstimateMin = 0.30
	RecentViewEstimateMax = 0.50

	// Similarity weights: tag overlap versus category equality.
	SimilarityTagWeight      = 0.7
	SimilarityCategoryWeight = 0.3

	// Personalized score components.
	PersonalCategoryWeight   = 0.45
	PersonalTagWeight        = 0.35
	PersonalRecencyWeight    = 0.10
	PersonalEngagementWeight = 0.10

	// MinScore is the floor applied to every computed score so a valid
	// candidate never drops out of ranking entirely.
	MinScore = 0.1

	// NormalizationConstant is c in the saturating map x/(x+c).
	NormalizationConstant = 1.0

	// MinUpvotesHighlyRated is the floor for the highly-rated discovery
	// sub-strategy and interest exploration.
	MinUpvotesHighlyRated = 3

	// SerendipityEngagementThreshold filters products with too little
	// engagement from the serendipity pool.
	SerendipityEngagementThreshold = 0.05
)
