// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/curata-io/curata/internal/metrics"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/store"
)

// ErrInvalidInput marks ingestion failures callers should map to a 4xx.
var ErrInvalidInput = errors.New("invalid interaction input")

// applyRetries bounds optimistic-write retries on profile document conflicts.
const applyRetries = 3

// dislikeWeight is the preference adjustment for explicit dislike feedback.
const dislikeWeight = -0.5

// minCreatedScore floors a newly created preference entry so a single weak
// positive signal still registers.
const minCreatedScore = 0.1

// InteractionInput is one interaction to ingest.
type InteractionInput struct {
	User               *models.User
	ProductID          string
	Type               models.InteractionType
	RecommendationType string
	Position           int
	Score              float64
	Metadata           models.InteractionMetadata
}

// RecordInteraction validates, deduplicates, persists, and folds one
// interaction into the user's preference profile. Ingestion is idempotent at
// {user, product, type, minute} granularity: an equivalent event inside the
// same minute is acknowledged without a second write.
func (s *Service) RecordInteraction(ctx context.Context, in InteractionInput) (*models.PreferenceProfile, error) {
	if in.User.IsAnonymous() {
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "invalid").Inc()
		return nil, fmt.Errorf("%w: authenticated user required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "invalid").Inc()
		return nil, fmt.Errorf("%w: unknown interaction type %q", ErrInvalidInput, in.Type)
	}

	product, err := s.products.GetByID(ctx, in.ProductID)
	if errors.Is(err, store.ErrProductNotFound) {
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "invalid").Inc()
		return nil, fmt.Errorf("%w: product %s not found", ErrInvalidInput, in.ProductID)
	}
	if err != nil {
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "error").Inc()
		return nil, fmt.Errorf("loading product %s: %w", in.ProductID, err)
	}

	now := s.now()

	dup, err := s.interactions.ExistsAtMinute(ctx, in.User.ID, in.ProductID, in.Type, now)
	if err != nil {
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "error").Inc()
		return nil, fmt.Errorf("deduplicating interaction: %w", err)
	}
	if dup {
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "duplicate").Inc()
		return s.GetProfile(ctx, in.User.ID)
	}

	event := models.InteractionEvent{
		ID:                 uuid.NewString(),
		UserID:             in.User.ID,
		ProductID:          in.ProductID,
		Type:               in.Type,
		RecommendationType: in.RecommendationType,
		Position:           in.Position,
		Score:              in.Score,
		Metadata:           in.Metadata,
		CreatedAt:          now,
	}
	if err := s.interactions.Append(ctx, event); err != nil {
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "error").Inc()
		return nil, fmt.Errorf("appending interaction event: %w", err)
	}

	prof, err := s.applyWithRetry(ctx, in.User.ID, func(p *models.PreferenceProfile) error {
		s.applyInteraction(p, product, in.Type, in.Type.Weight(), now, in.Metadata)
		return nil
	})
	if err != nil {
		metrics.ProfileWriteFailures.Inc()
		metrics.InteractionsTotal.WithLabelValues(string(in.Type), "error").Inc()
		return nil, fmt.Errorf("updating profile for %s: %w", in.User.ID, err)
	}

	s.cache.SmartInvalidate(in.Type, in.User.ID, in.ProductID)
	metrics.CacheInvalidations.WithLabelValues(string(in.Type)).Inc()
	metrics.InteractionsTotal.WithLabelValues(string(in.Type), "ok").Inc()

	return prof, nil
}

// Dismiss hides a product from the user's recommendations and applies the
// negative preference signal. Idempotent at the profile level.
func (s *Service) Dismiss(ctx context.Context, user *models.User, productID string) (*models.PreferenceProfile, error) {
	return s.RecordInteraction(ctx, InteractionInput{
		User:      user,
		ProductID: productID,
		Type:      models.InteractionDismiss,
	})
}

// ProcessFeedback maps coarse feedback onto the interaction pipeline: a like
// is an upvote, not-interested is a dismissal, and a dislike applies a
// negative preference adjustment without hiding the product.
func (s *Service) ProcessFeedback(ctx context.Context, user *models.User, productID string, action models.FeedbackAction) (*models.PreferenceProfile, error) {
	switch action {
	case models.FeedbackLike:
		return s.RecordInteraction(ctx, InteractionInput{User: user, ProductID: productID, Type: models.InteractionUpvote})
	case models.FeedbackNotInterested:
		return s.Dismiss(ctx, user, productID)
	case models.FeedbackDislike:
		return s.recordWeighted(ctx, user, productID, dislikeWeight)
	default:
		return nil, fmt.Errorf("%w: unknown feedback action %q", ErrInvalidInput, action)
	}
}

// recordWeighted ingests a feedback event with an explicit preference weight.
func (s *Service) recordWeighted(ctx context.Context, user *models.User, productID string, weight float64) (*models.PreferenceProfile, error) {
	if user.IsAnonymous() {
		return nil, fmt.Errorf("%w: authenticated user required", ErrInvalidInput)
	}
	product, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, store.ErrProductNotFound) {
		return nil, fmt.Errorf("%w: product %s not found", ErrInvalidInput, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading product %s: %w", productID, err)
	}

	now := s.now()
	event := models.InteractionEvent{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ProductID: productID,
		Type:      models.InteractionFeedback,
		Score:     weight,
		CreatedAt: now,
	}
	if err := s.interactions.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("appending feedback event: %w", err)
	}

	prof, err := s.applyWithRetry(ctx, user.ID, func(p *models.PreferenceProfile) error {
		s.applyInteraction(p, product, models.InteractionFeedback, weight, now, models.InteractionMetadata{})
		return nil
	})
	if err != nil {
		metrics.ProfileWriteFailures.Inc()
		return nil, fmt.Errorf("updating profile for %s: %w", user.ID, err)
	}

	s.cache.SmartInvalidate(models.InteractionFeedback, user.ID, productID)
	return prof, nil
}

// StoreRecommendations reseeds the profile's cached recommendation list from
// a freshly assembled page.
func (s *Service) StoreRecommendations(ctx context.Context, userID string, recs []models.StoredRecommendation) error {
	if userID == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if len(recs) > models.MaxStoredRecommendations {
		recs = recs[:models.MaxStoredRecommendations]
	}

	_, err := s.applyWithRetry(ctx, userID, func(p *models.PreferenceProfile) error {
		p.Recommended = recs
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing recommendations for %s: %w", userID, err)
	}
	return nil
}

// applyWithRetry wraps ProfileStore.Apply with bounded retries on optimistic
// transaction conflicts.
func (s *Service) applyWithRetry(ctx context.Context, userID string, fn func(*models.PreferenceProfile) error) (*models.PreferenceProfile, error) {
	var prof *models.PreferenceProfile
	var err error
	for attempt := 0; attempt < applyRetries; attempt++ {
		prof, err = s.profiles.Apply(ctx, userID, fn)
		if err == nil || !errors.Is(err, badger.ErrConflict) {
			return prof, err
		}
	}
	return prof, err
}

// applyInteraction folds one interaction into the profile document: category
// and tag scores, lifetime counters, the dismissed set, and the bounded
// recent-interaction window.
func (s *Service) applyInteraction(p *models.PreferenceProfile, product *models.Product, t models.InteractionType, weight float64, now time.Time, meta models.InteractionMetadata) {
	p.EnsureMaps()

	if product.CategoryID != "" {
		p.Categories[product.CategoryID] = adjustScore(p.Categories[product.CategoryID], weight, now)
	}
	for _, tag := range product.Tags {
		key := strings.ToLower(tag)
		p.Tags[key] = adjustScore(p.Tags[key], weight, now)
	}

	adjustCounters(&p.Counters, t)

	if t == models.InteractionDismiss {
		p.Dismiss(product.ID)
	}

	p.RecentInteractions = append([]models.RecentInteraction{{
		ProductID: product.ID,
		Type:      t,
		Timestamp: now,
		Metadata:  meta,
	}}, p.RecentInteractions...)
	p.RecentInteractions = trimInteractions(p.RecentInteractions, now)
}

// adjustScore applies a weighted signal to a preference entry. New positive
// entries floor at minCreatedScore; negative signals clamp at zero instead
// of going negative.
func adjustScore(cur models.PreferenceScore, weight float64, now time.Time) models.PreferenceScore {
	next := cur.Score + weight
	if cur.InteractionCount == 0 && weight > 0 && next < minCreatedScore {
		next = minCreatedScore
	}
	if next < 0 {
		next = 0
	}
	return models.PreferenceScore{
		Score:            next,
		LastInteraction:  now,
		InteractionCount: cur.InteractionCount + 1,
	}
}

// adjustCounters updates lifetime counters; removals decrement, never below
// zero.
func adjustCounters(c *models.InteractionCounters, t models.InteractionType) {
	dec := func(v int) int {
		if v > 0 {
			return v - 1
		}
		return 0
	}
	switch t {
	case models.InteractionView, models.InteractionClick:
		c.Views++
	case models.InteractionUpvote:
		c.Upvotes++
	case models.InteractionRemoveUpvote:
		c.Upvotes = dec(c.Upvotes)
	case models.InteractionBookmark:
		c.Bookmarks++
	case models.InteractionRemoveBookmark:
		c.Bookmarks = dec(c.Bookmarks)
	case models.InteractionComment:
		c.Comments++
	case models.InteractionShare:
		c.Shares++
	}
}

// trimInteractions enforces the window bounds: newest hundred entries, none
// older than the retention period.
func trimInteractions(list []models.RecentInteraction, now time.Time) []models.RecentInteraction {
	if len(list) > models.MaxRecentInteractions {
		list = list[:models.MaxRecentInteractions]
	}
	cutoff := now.Add(-models.RecentInteractionRetention)
	for i, ri := range list {
		if ri.Timestamp.Before(cutoff) {
			return list[:i]
		}
	}
	return list
}

// invalidateUser purges the user's cached pages and, when full is true, the
// profile-derived keys as well.
func (s *Service) invalidateUser(userID string, full bool) {
	removed := s.cache.InvalidateUser(userID, full)
	if removed > 0 {
		metrics.CacheInvalidations.WithLabelValues("manual").Add(float64(removed))
	}
}
