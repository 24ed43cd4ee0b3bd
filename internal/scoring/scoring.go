// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package scoring implements the pure scoring functions used by all
// candidate strategies and the hybrid engine.
//
// Every function here is deterministic for a fixed clock and random source;
// randomness is never drawn from package-level state. Scores are clamped to
// a minimum of MinScore so a valid candidate can never drop out of ranking,
// and Normalize maps any non-negative raw score into [0, 1].
package scoring

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/curata-io/curata/internal/models"
)

// Engagement computes a saturating engagement score in [MinScore, 1] from a
// product's counters. Small counts behave linearly; large counts saturate
// logarithmically so a single viral product cannot dominate every list.
func Engagement(p *models.Product) float64 {
	if p == nil {
		return MinScore
	}

	raw := WeightUpvotes*float64(p.UpvoteCount) +
		WeightViews*float64(p.ViewCount) +
		WeightBookmarks*float64(p.BookmarkCount) +
		WeightComments*float64(p.CommentCount)

	// log1p keeps the curve linear near zero and logarithmic for large counts.
	score := math.Log1p(raw) / math.Log1p(EngagementSaturation*2)

	return clamp(score)
}

// Recency computes an exponential time-decay score in [MinScore, 1] for the
// given creation time. maxAgeDays scales the decay rate: larger windows decay
// more slowly. Products inside the recent-days window receive a fixed bonus.
func Recency(createdAt, now time.Time, maxAgeDays float64) float64 {
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}

	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}

	rate := DecayRatePerDay * (30 / maxAgeDays)
	score := math.Exp(-rate * ageDays)
	if score < RecencyFloor {
		score = RecencyFloor
	}

	if ageDays <= RecentDaysBoostWindow {
		score += RecentDaysBoost
	}

	return clamp(score)
}

// Trending combines engagement and recency over a rolling window, weighting
// recent engagement proxies above absolute counters. When per-window counters
// are unavailable, recent views are estimated as 30-50% of total views using
// the supplied random source; rng may be nil for a fixed midpoint estimate.
func Trending(p *models.Product, now time.Time, days int, rng *rand.Rand) float64 {
	if p == nil {
		return MinScore
	}
	if days <= 0 {
		days = 7
	}

	estimate := (RecentViewEstimateMin + RecentViewEstimateMax) / 2
	if rng != nil {
		estimate = RecentViewEstimateMin + rng.Float64()*(RecentViewEstimateMax-RecentViewEstimateMin)
	}
	recentViews := float64(p.ViewCount) * estimate

	recentRaw := WeightUpvotes*float64(p.UpvoteCount) + WeightViews*recentViews
	recent := math.Log1p(recentRaw) / math.Log1p(EngagementSaturation)

	overall := Engagement(p)
	recency := Recency(p.CreatedAt, now, float64(days)*2)

	score := (TrendingRecentWeight*recent + TrendingOverallWeight*overall) * recency

	return clamp(score)
}

// Similarity computes a weighted similarity between two products from their
// tag overlap (Jaccard) and category equality.
func Similarity(a, b *models.Product) float64 {
	if a == nil || b == nil {
		return MinScore
	}

	tagSim := jaccard(a.Tags, b.Tags)

	catSim := 0.0
	if a.CategoryID != "" && a.CategoryID == b.CategoryID {
		catSim = 1.0
	}

	return clamp(SimilarityTagWeight*tagSim + SimilarityCategoryWeight*catSim)
}

// Preferences is the minimal view of a user's preference scores the
// personalized scorer needs: category and lowercased-tag score maps.
type Preferences struct {
	Categories map[string]float64
	Tags       map[string]float64
}

// Personalized computes the match between a product and a user's preference
// scores: an inner product over category and tag affinities plus recency and
// engagement boosts.
func Personalized(p *models.Product, prefs Preferences, now time.Time) float64 {
	if p == nil {
		return MinScore
	}

	catScore := 0.0
	if s, ok := prefs.Categories[p.CategoryID]; ok {
		catScore = Normalize(s)
	}

	tagScore := 0.0
	if len(p.Tags) > 0 && len(prefs.Tags) > 0 {
		sum := 0.0
		for _, tag := range p.Tags {
			if s, ok := prefs.Tags[strings.ToLower(tag)]; ok {
				sum += Normalize(s)
			}
		}
		tagScore = sum / float64(len(p.Tags))
		if tagScore > 1 {
			tagScore = 1
		}
	}

	score := PersonalCategoryWeight*catScore +
		PersonalTagWeight*tagScore +
		PersonalRecencyWeight*Recency(p.CreatedAt, now, 30) +
		PersonalEngagementWeight*Engagement(p)

	return clamp(score)
}

// PsychologicalMultiplier derives a bounded multiplier in [0.1, ~1.3] from
// the current time: time of day, weekday/weekend, business hours, and season
// each nudge the factor. It is never zero, so it can safely scale any score.
func PsychologicalMultiplier(now time.Time) float64 {
	m := 1.0

	hour := now.Hour()
	switch {
	case hour >= 19 && hour <= 23: // evening browsing peak
		m += 0.15
	case hour >= 7 && hour <= 9: // morning commute
		m += 0.08
	case hour >= 0 && hour <= 5:
		m -= 0.20
	}

	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		m += 0.05
	default:
		if hour >= 9 && hour <= 17 {
			m -= 0.05
		}
	}

	switch now.Month() {
	case time.December, time.January: // launch-quiet season
		m -= 0.05
	case time.September, time.October: // launch-heavy season
		m += 0.05
	}

	if m < MinScore {
		m = MinScore
	}
	if m > 1.3 {
		m = 1.3
	}
	return m
}

// Normalize maps any non-negative raw score into [0, 1] via the saturating
// function x / (x + c). Negative inputs normalize to zero.
func Normalize(x float64) float64 {
	if x <= 0 {
		return 0
	}
	v := x / (x + NormalizationConstant)
	if v > 1 {
		v = 1
	}
	return v
}

// IsEveningHours reports whether the given time falls in the evening window
// used for blend-weight adjustments.
func IsEveningHours(now time.Time) bool {
	hour := now.Hour()
	return hour >= 18 && hour <= 23
}

// clamp bounds a score to [MinScore, 1].
func clamp(score float64) float64 {
	if score < MinScore {
		return MinScore
	}
	if score > 1 {
		return 1
	}
	return score
}

// jaccard computes Jaccard overlap between two tag lists, case-insensitive.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[strings.ToLower(t)] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[strings.ToLower(t)] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
