// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/store"
)

// syntheticReasons is the round-robin assignment for emergency items so a
// fallback page still looks like a blended one.
var syntheticReasons = []Reason{
	ReasonTrending,
	ReasonNew,
	ReasonDiscovery,
	ReasonPersonalized,
	ReasonInterests,
}

// emergencyFill produces up to need items when the normal pipeline cannot
// fill a page. It degrades in three steps:
//
//  1. a random sample of published products with any engagement;
//  2. any published products at all;
//  3. synthetic placeholder items, so the response shape never collapses.
//
// The returned items carry descending synthetic scores below the normal
// scoring range so they sort after genuine recommendations.
func emergencyFill(ctx context.Context, products store.ProductStore, need int, exclude map[string]bool, now time.Time) []Item {
	if need <= 0 {
		return nil
	}

	excludeIDs := make([]string, 0, len(exclude))
	for id := range exclude {
		excludeIDs = append(excludeIDs, id)
	}

	pool, err := products.Query(ctx, store.ProductQuery{
		Status:        models.StatusPublished,
		HasEngagement: true,
		ExcludeIDs:    excludeIDs,
		Sort:          store.SortRandom,
		Limit:         need,
	})
	if err != nil || len(pool) == 0 {
		pool, _ = products.Query(ctx, store.ProductQuery{
			Status:     models.StatusPublished,
			ExcludeIDs: excludeIDs,
			Sort:       store.SortRandom,
			Limit:      need,
		})
	}

	items := make([]Item, 0, need)
	for i, p := range pool {
		if len(items) >= need {
			break
		}
		items = append(items, emergencyItem(p, i, now, false))
	}

	// Step 3: placeholders keep the page shape intact even with an empty
	// catalog. Clients render them as skeleton cards.
	for i := len(items); i < need; i++ {
		items = append(items, emergencyItem(placeholderProduct(i, now), i, now, true))
	}

	return items
}

func emergencyItem(p models.Product, position int, now time.Time, placeholder bool) Item {
	score := 0.35 - float64(position)*0.01
	if score < 0.1 {
		score = 0.1
	}
	reason := syntheticReasons[position%len(syntheticReasons)]

	return Item{
		ProductID:   p.ID,
		Score:       score,
		Reason:      reason,
		Explanation: "Popular on the platform",
		Metadata: ItemMetadata{
			Source:      reason,
			SubSource:   "emergency",
			GeneratedAt: now,
			Placeholder: placeholder,
		},
		Product: p,
	}
}

func placeholderProduct(i int, now time.Time) models.Product {
	return models.Product{
		ID:        fmt.Sprintf("placeholder-%d", i+1),
		Slug:      fmt.Sprintf("placeholder-%d", i+1),
		Name:      "Coming soon",
		Tagline:   "New products are on the way",
		Status:    models.StatusPublished,
		CreatedAt: now.Add(-time.Duration(i) * time.Minute),
	}
}
