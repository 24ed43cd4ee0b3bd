// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package store provides persistence for the recommendation engine: a
// DuckDB-backed catalog of product projections and append-only interaction
// events, and a Badger-backed store of per-user preference profiles.
//
// The engine depends only on the interfaces in this file; the DuckDB and
// Badger implementations live alongside, and in-memory implementations are
// exported for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/curata-io/curata/internal/models"
)

// Sentinel errors returned by store implementations.
var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrProfileNotFound  = errors.New("preference profile not found")
	ErrStoreClosed      = errors.New("store is closed")
)

// ProductSort selects the ordering of a product query.
type ProductSort string

const (
	SortNone    ProductSort = ""
	SortUpvotes ProductSort = "upvotes"
	SortNewest  ProductSort = "newest"
	SortViews   ProductSort = "views"
	SortRandom  ProductSort = "random"
)

// ProductQuery describes a filtered catalog read. Zero values mean "no
// constraint". Tags match any (OR semantics); ExcludeIDs always apply.
type ProductQuery struct {
	Status        models.ProductStatus
	CategoryID    string
	CategoryIDs   []string
	Tags          []string
	MakerID       string
	ExcludeIDs    []string
	CreatedAfter  time.Time
	MinUpvotes    int
	HasEngagement bool
	Sort          ProductSort
	Limit         int
	Offset        int
}

// CategoryEngagement summarizes one category's published inventory for the
// category-spotlight strategy.
type CategoryEngagement struct {
	CategoryID   string
	ProductCount int
	AvgUpvotes   float64
}

// ProductStore reads the product catalog projection.
type ProductStore interface {
	Query(ctx context.Context, q ProductQuery) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	// CategoryEngagement returns per-category inventory stats for categories
	// with at least minProducts published products.
	CategoryEngagement(ctx context.Context, minProducts int) ([]CategoryEngagement, error)
}

// ProductViewStat is one viewed product in a user's aggregated history.
type ProductViewStat struct {
	ProductID  string
	ViewCount  int
	LastViewed time.Time
}

// UserHistory aggregates a user's interaction events over a window, joined
// against the catalog so category and tag tallies are available without a
// second pass.
type UserHistory struct {
	ViewedProducts  []ProductViewStat
	CategoryViews   map[string]int
	TagViews        map[string]int
	HourlyByWeekday map[time.Weekday]map[int]int
	TotalEvents     int
}

// InteractionStore appends and aggregates interaction events.
type InteractionStore interface {
	Append(ctx context.Context, ev models.InteractionEvent) error
	BulkAppend(ctx context.Context, evs []models.InteractionEvent) error

	// RecentByUser returns a user's events newest first, optionally filtered
	// by type.
	RecentByUser(ctx context.Context, userID string, since time.Time, types []models.InteractionType, limit int) ([]models.InteractionEvent, error)

	// History aggregates a user's events since the given time.
	History(ctx context.Context, userID string, since time.Time) (*UserHistory, error)

	// UpvoteCounts returns per-product upvote tallies within [since, until).
	UpvoteCounts(ctx context.Context, since, until time.Time) (map[string]int, error)

	// ExistsAtMinute reports whether an equivalent event was already recorded
	// in the same minute, for idempotent ingestion.
	ExistsAtMinute(ctx context.Context, userID, productID string, t models.InteractionType, at time.Time) (bool, error)
}

// ProfileStore persists per-user preference profiles as single documents.
// Writes are atomic at document granularity.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.PreferenceProfile, error)

	// Upsert replaces the user's profile document.
	Upsert(ctx context.Context, profile *models.PreferenceProfile) error

	// Apply runs a read-modify-write of the user's profile inside a single
	// transaction, creating an empty profile when none exists. The mutated
	// profile is returned.
	Apply(ctx context.Context, userID string, fn func(*models.PreferenceProfile) error) (*models.PreferenceProfile, error)

	// List returns up to limit profiles, excluding the given user. Used by
	// the collaborative strategy to find similar users.
	List(ctx context.Context, limit int, excludeUserID string) ([]*models.PreferenceProfile, error)

	Delete(ctx context.Context, userID string) error
}
