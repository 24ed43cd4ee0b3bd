// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"context"
	"fmt"
	"time"
)

// GetSingle serves a page from one named strategy, for the per-strategy API
// endpoints. The page skips blending and diversity but keeps explanations,
// pagination, and the emergency fallback.
func (e *Engine) GetSingle(ctx context.Context, name Reason, req Request) (*Response, error) {
	start := e.now()
	e.clampPage(&req)

	req.Blend = CoerceBlend(req.Blend, !req.User.IsAnonymous())

	strategy := e.registry.Get(name)
	if strategy == nil {
		return nil, fmt.Errorf("unknown strategy %q", name)
	}

	userCtx, degraded := e.buildContext(ctx, req)

	fetchReq := CandidateRequest{
		Limit:          (req.Offset + req.Limit) * 2,
		Category:       req.Category,
		Tags:           req.Tags,
		SeedProductIDs: req.SeedProductIDs,
		ForceRefresh:   req.ForceRefresh,
		UserCtx:        userCtx,
	}

	cands, err := strategy.Fetch(ctx, fetchReq)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.cfg.FetchRetryDelay):
		}
		cands, err = strategy.Fetch(ctx, fetchReq)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("strategy", string(name)).Msg("single strategy fetch failed")
		cands = nil
	}

	filtered := cands[:0:0]
	for _, c := range cands {
		if userCtx.IsDismissed(c.ProductID) || !matchesFilters(c, req) {
			continue
		}
		filtered = append(filtered, c)
	}
	e.applySort(filtered, req.SortBy)

	var page []Candidate
	if req.Offset < len(filtered) {
		page = filtered[req.Offset:]
	}
	if len(page) > req.Limit {
		page = page[:req.Limit]
	}

	now := e.now()
	snap := e.trendingSnapshot(ctx, now)
	items := e.buildItems(page, userCtx, snap, now)

	// A widened strategy window is a fallback the caller should see, same
	// as an emergency fill.
	fallback := false
	for _, c := range page {
		if c.Fallback {
			fallback = true
			break
		}
	}
	if len(items) == 0 && req.Offset == 0 {
		exclude := make(map[string]bool)
		for _, id := range userCtx.Dismissed {
			exclude[id] = true
		}
		items = emergencyFill(ctx, e.products, req.Limit, exclude, now)
		fallback = len(items) > 0
	}

	meta := buildMetadata(items, req, now)
	meta.HasFallback = fallback
	meta.Degraded = degraded || err != nil
	meta.HasMore = req.Offset+len(page) < len(filtered)
	meta.CacheStatus = "bypass"
	meta.QueryTimeMS = e.now().Sub(start).Milliseconds()

	return &Response{Items: items, Metadata: meta}, nil
}
