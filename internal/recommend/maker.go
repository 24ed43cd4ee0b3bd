// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"context"
	"fmt"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

// GetMaker serves a maker's published catalog as a recommendation page,
// scored by engagement. Dismissals still apply.
func (e *Engine) GetMaker(ctx context.Context, makerID string, req Request) (*Response, error) {
	start := e.now()
	e.clampPage(&req)

	userCtx, degraded := e.buildContext(ctx, req)

	pool, err := e.products.Query(ctx, store.ProductQuery{
		Status:     models.StatusPublished,
		MakerID:    makerID,
		CategoryID: req.Category,
		Sort:       store.SortNewest,
		Limit:      (req.Offset + req.Limit) * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("maker catalog for %s: %w", makerID, err)
	}

	cands := make([]Candidate, 0, len(pool))
	for _, p := range pool {
		if userCtx.IsDismissed(p.ID) {
			continue
		}
		p := p
		score := scoring.Engagement(&p)
		cands = append(cands, Candidate{
			ProductID: p.ID,
			Product:   p,
			Score:     score,
			RawScore:  score,
			Reason:    ReasonSimilar,
			SubReason: "maker",
		})
	}
	e.applySort(cands, req.SortBy)

	var page []Candidate
	if req.Offset < len(cands) {
		page = cands[req.Offset:]
	}
	if len(page) > req.Limit {
		page = page[:req.Limit]
	}

	now := e.now()
	items := e.buildItems(page, userCtx, nil, now)
	for i := range items {
		items[i].Explanation = "More from this maker"
	}

	meta := buildMetadata(items, req, now)
	meta.Degraded = degraded
	meta.HasMore = req.Offset+len(page) < len(cands)
	meta.CacheStatus = "bypass"
	meta.QueryTimeMS = now.Sub(start).Milliseconds()

	return &Response{Items: items, Metadata: meta}, nil
}
