// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/metrics"
	"github.com/curata-io/curata/internal/scoring"
)

// minCacheItems is the floor on cached-page size before a short page cache
// entry is acceptable or writable; pages smaller than min(5, limit) never
// come from or go to the cache.
const minCacheItems = 5

// minCacheSources is the source-diversity floor for accepting a cached page.
const minCacheSources = 2

// cacheFillRatio is the fraction of the requested limit a page must reach
// before it is cached.
const cacheFillRatio = 0.8

// GetHybrid assembles one hybrid recommendation page. It never returns an
// error for pipeline failures; the response metadata reports degradation
// instead. An error means the request itself could not be served at all.
func (e *Engine) GetHybrid(ctx context.Context, req Request) (*Response, error) {
	start := e.now()
	e.clampPage(&req)

	authenticated := !req.User.IsAnonymous()
	req.Blend = CoerceBlend(req.Blend, authenticated)

	cacheKey := cache.HybridKey(userID(req.User), req.Limit, req.Offset,
		string(req.Blend), req.Category, req.Tags, string(req.SortBy))

	if !req.ForceRefresh {
		if resp := e.probeHybridCache(cacheKey, req.Limit); resp != nil {
			metrics.RecordHybridRequest(string(req.Blend), authenticated, true, 0)
			return resp, nil
		}
	}

	resp := e.assemble(ctx, req, false)

	elapsed := e.now().Sub(start)
	resp.Metadata.QueryTimeMS = elapsed.Milliseconds()
	metrics.RecordHybridRequest(string(req.Blend), authenticated, false, elapsed)

	e.writeHybridCache(cacheKey, req, resp, authenticated)

	if authenticated && e.impressions != nil {
		e.impressions.RecordImpressions(userID(req.User), resp.Items, req.Session)
	}

	return resp, nil
}

// probeHybridCache returns a cached page only when it meets the acceptance
// criteria: enough items and at least two contributing sources. Thin cached
// pages are treated as misses so the pipeline can do better.
func (e *Engine) probeHybridCache(key string, limit int) *Response {
	v, ok := e.cache.Get(key)
	if !ok {
		metrics.CacheMisses.WithLabelValues("hybrid").Inc()
		return nil
	}
	resp, ok := v.(*Response)
	if !ok || resp == nil {
		metrics.CacheMisses.WithLabelValues("hybrid").Inc()
		return nil
	}

	if len(resp.Items) < minInt(minCacheItems, limit) || countSources(resp.Items) < minCacheSources {
		metrics.CacheMisses.WithLabelValues("hybrid").Inc()
		return nil
	}

	metrics.CacheHits.WithLabelValues("hybrid").Inc()
	out := *resp
	out.Metadata.CacheStatus = "hit"
	return &out
}

// assemble runs the full pipeline once. refreshed guards the single
// forced-refresh recursion used to repair poor source diversity.
func (e *Engine) assemble(ctx context.Context, req Request, refreshed bool) *Response {
	now := e.now()
	authenticated := !req.User.IsAnonymous()

	userCtx, degraded := e.buildContext(ctx, req)

	signals := BlendSignals{
		Authenticated:        authenticated,
		HasStrongPreferences: userCtx.HasStrongPreferences(),
		HasRecentActivity:    userCtx.HasRecentActivity(now),
		IsEveningHours:       scoring.IsEveningHours(now),
	}
	weights := BlendWeights(req.Blend, signals)
	active := e.registry.ForBlend(weights)

	fetchReq := CandidateRequest{
		Limit:        req.Limit * e.cfg.FetchMultiplier,
		Category:     req.Category,
		Tags:         req.Tags,
		ForceRefresh: req.ForceRefresh || refreshed,
		UserCtx:      userCtx,
	}
	results := e.fanOut(ctx, active, fetchReq)

	merged := e.mergeCandidates(results, weights, userCtx, req)

	// Poor source diversity gets one forced-refresh retry; per-strategy
	// caches may simply hold stale thin results.
	observed := countCandidateSources(merged)
	if observed < e.minSources(authenticated, len(active)) && !refreshed && !req.ForceRefresh {
		e.logger.Debug().Int("sources", observed).Msg("thin source diversity, refreshing once")
		return e.assemble(ctx, req, true)
	}

	picked := diversify(merged, req.Offset+req.Limit, e.cfg.CategoryCap)
	e.applySort(picked, req.SortBy)

	var page []Candidate
	if req.Offset < len(picked) {
		page = picked[req.Offset:]
	}
	if len(page) > req.Limit {
		page = page[:req.Limit]
	}
	hasMore := req.Offset+len(page) < len(picked) || len(merged) > len(picked)

	snap := e.trendingSnapshot(ctx, now)
	items := e.buildItems(page, userCtx, snap, now)

	// Shortfall repair keeps the page full even when strategies collapse.
	fallback := false
	if len(items) < req.Limit {
		exclude := make(map[string]bool, len(picked))
		for _, c := range picked {
			exclude[c.ProductID] = true
		}
		for _, id := range userCtx.Dismissed {
			exclude[id] = true
		}
		fill := emergencyFill(ctx, e.products, req.Limit-len(items), exclude, now)
		if len(fill) > 0 {
			fallback = true
			reason := "shortfall"
			if len(items) == 0 {
				reason = "empty"
			}
			if fill[len(fill)-1].Metadata.Placeholder {
				reason = "placeholder"
			}
			metrics.EmergencyFillsTotal.WithLabelValues(reason).Inc()
			items = append(items, fill...)
		}
	}

	audience := "anon"
	if authenticated {
		audience = "auth"
	}
	metrics.HybridSourceCount.WithLabelValues(audience).Observe(float64(countSources(items)))

	meta := buildMetadata(items, req, now)
	meta.HasFallback = fallback
	meta.Degraded = degraded
	meta.HasMore = hasMore
	meta.CacheStatus = "miss"
	if req.ForceRefresh {
		meta.CacheStatus = "bypass"
	}

	return &Response{Items: items, Metadata: meta}
}

// mergeCandidates flattens fan-out results into one deduplicated slice with
// blend-weighted stable scores. Results arrive in strategy priority order, and
// a product proposed by several strategies keeps the first one's score and
// attribution. Dismissed products and products outside the request filters
// are dropped.
func (e *Engine) mergeCandidates(results [][]Candidate, weights Weights, userCtx *UserContext, req Request) []Candidate {
	seen := make(map[string]bool)
	var merged []Candidate

	for _, cands := range results {
		for _, c := range cands {
			if c.ProductID == "" || seen[c.ProductID] || userCtx.IsDismissed(c.ProductID) {
				continue
			}
			if !matchesFilters(c, req) {
				continue
			}
			seen[c.ProductID] = true

			c.RawScore = c.Score
			c.Score = c.Score * weights[c.Reason] * TypeMultiplier(c.Reason)
			merged = append(merged, c)
		}
	}

	sortCandidates(merged)
	return merged
}

// matchesFilters re-checks the request's category and tag filters. Strategies
// receive the filters too, but a strategy's cached pool may predate them.
func matchesFilters(c Candidate, req Request) bool {
	if req.Category != "" && c.Product.CategoryID != req.Category {
		return false
	}
	if len(req.Tags) == 0 {
		return true
	}
	for _, want := range req.Tags {
		for _, have := range c.Product.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// applySort orders the final selection. Score is the default; trending puts
// trending-sourced items first, then score.
func (e *Engine) applySort(cands []Candidate, sortBy SortBy) {
	switch sortBy {
	case SortByCreated:
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].Product.CreatedAt.After(cands[j].Product.CreatedAt)
		})
	case SortByUpvotes:
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].Product.UpvoteCount > cands[j].Product.UpvoteCount
		})
	case SortByTrending:
		sort.SliceStable(cands, func(i, j int) bool {
			it, jt := cands[i].Reason == ReasonTrending, cands[j].Reason == ReasonTrending
			if it != jt {
				return it
			}
			return cands[i].Score > cands[j].Score
		})
	default:
		sortCandidates(cands)
	}
}

// trendingSnapshot fetches the metrics snapshot for explanations; failures
// degrade to generic explanation text.
func (e *Engine) trendingSnapshot(ctx context.Context, now time.Time) *TrendingSnapshot {
	if e.trending == nil {
		return nil
	}
	snap, err := e.trending.Snapshot(ctx, now)
	if err != nil {
		e.logger.Warn().Err(err).Msg("trending snapshot unavailable")
		return nil
	}
	return snap
}

// buildItems converts picked candidates into served items with explanations.
func (e *Engine) buildItems(cands []Candidate, userCtx *UserContext, snap *TrendingSnapshot, now time.Time) []Item {
	items := make([]Item, 0, len(cands))
	for i, c := range cands {
		explanation, scoreCtx := explain(c, userCtx, snap)
		items = append(items, Item{
			ProductID:    c.ProductID,
			Score:        c.Score,
			Reason:       c.Reason,
			Explanation:  explanation,
			ScoreContext: scoreCtx,
			Metadata: ItemMetadata{
				Source:        c.Reason,
				SubSource:     c.SubReason,
				GeneratedAt:   now,
				IsTopTrending: i == 0 && c.Reason == ReasonTrending && snap.IsRising(c.ProductID),
			},
			Product: c.Product,
		})
	}
	return items
}

// writeHybridCache stores a page when it is healthy enough to reuse: full
// enough, diverse enough, and not degraded. A full first page also writes a
// longer-lived head subset at limit five.
func (e *Engine) writeHybridCache(key string, req Request, resp *Response, authenticated bool) {
	if resp.Metadata.Degraded || resp.Metadata.HasFallback {
		return
	}
	if len(resp.Items) < minInt(minCacheItems, req.Limit) {
		return
	}
	if countSources(resp.Items) < minCacheSources {
		return
	}
	if float64(len(resp.Items)) < float64(req.Limit)*cacheFillRatio {
		return
	}

	ttl := cache.TTLHybridAnon
	headTTL := cache.TTLHybridHeadAnon
	if authenticated {
		ttl = cache.TTLHybridAuth
		headTTL = cache.TTLHybridHeadAuth
	}
	e.cache.Set(key, resp, ttl)

	// Head subset: the first five items serve the common landing request
	// with a longer TTL.
	if req.Offset == 0 && req.Limit > minCacheItems {
		head := *resp
		head.Items = resp.Items[:minCacheItems]
		head.Metadata.HasMore = true
		head.Metadata.NextOffset = minCacheItems
		headKey := cache.HybridKey(userID(req.User), minCacheItems, 0,
			string(req.Blend), req.Category, req.Tags, string(req.SortBy))
		e.cache.Set(headKey, &head, headTTL)
	}
}

func buildMetadata(items []Item, req Request, now time.Time) ResponseMetadata {
	meta := ResponseMetadata{
		SourceDistribution:   make(map[Reason]int),
		CategoryDistribution: make(map[string]int),
		NextOffset:           req.Offset + len(items),
		Blend:                req.Blend,
		GeneratedAt:          now,
	}

	if len(items) == 0 {
		return meta
	}

	minScore, maxScore, sum := items[0].Score, items[0].Score, 0.0
	for _, it := range items {
		if it.Score < minScore {
			minScore = it.Score
		}
		if it.Score > maxScore {
			maxScore = it.Score
		}
		sum += it.Score
		meta.SourceDistribution[it.Reason]++
		if it.Product.CategoryID != "" {
			meta.CategoryDistribution[it.Product.CategoryID]++
		}
	}
	meta.ScoreStats = ScoreStats{
		Min:  minScore,
		Max:  maxScore,
		Mean: sum / float64(len(items)),
	}
	return meta
}

func countSources(items []Item) int {
	seen := make(map[Reason]bool, len(items))
	for _, it := range items {
		seen[it.Metadata.Source] = true
	}
	return len(seen)
}

func countCandidateSources(cands []Candidate) int {
	seen := make(map[Reason]bool, len(cands))
	for _, c := range cands {
		seen[c.Reason] = true
	}
	return len(seen)
}
