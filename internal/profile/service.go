// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package profile owns the preference-profile lifecycle: assembling the
// per-request user context the engine consumes, and folding interaction
// events into stored preference scores.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/scoring"
	"github.com/curata-io/curata/internal/store"
)

const (
	// historyWindow is how far back behavioral aggregates reach.
	historyWindow = 30 * 24 * time.Hour
	// historyScoreWeight scales implicit view-derived affinity relative to
	// stored preference scores.
	historyScoreWeight = 0.5
	// interestStrengthScale maps a declared interest strength in [0,10]
	// onto the preference score scale.
	interestStrengthScale = 10.0
)

// Service assembles user contexts and maintains preference profiles.
type Service struct {
	profiles     store.ProfileStore
	interactions store.InteractionStore
	products     store.ProductStore
	cache        *cache.Service
	logger       zerolog.Logger
	now          func() time.Time
}

// Options carries the service's collaborators.
type Options struct {
	Profiles     store.ProfileStore
	Interactions store.InteractionStore
	Products     store.ProductStore
	Cache        *cache.Service
	Logger       zerolog.Logger
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewService wires a profile service.
func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		profiles:     opts.Profiles,
		interactions: opts.Interactions,
		products:     opts.Products,
		cache:        opts.Cache,
		logger:       opts.Logger.With().Str("component", "profile").Logger(),
		now:          now,
	}
}

var _ recommend.ContextBuilder = (*Service)(nil)

// BuildUserContext assembles everything the strategies need about a user:
// stored preferences merged with declared interests, behavioral aggregates
// from the interaction log, and the dismissed set. Anonymous sessions get an
// empty context with safe defaults.
func (s *Service) BuildUserContext(ctx context.Context, user *models.User, session recommend.SessionContext) (*recommend.UserContext, error) {
	if user.IsAnonymous() {
		return &recommend.UserContext{Session: session}, nil
	}

	if v, ok := s.cache.Get(cache.ProfileKey(user.ID, "context")); ok {
		if cached, ok := v.(*recommend.UserContext); ok {
			out := *cached
			out.User = user
			out.Session = session
			return &out, nil
		}
	}

	prof, err := s.profiles.Get(ctx, user.ID)
	if errors.Is(err, store.ErrProfileNotFound) {
		prof = models.NewPreferenceProfile(user.ID, s.now())
	} else if err != nil {
		return nil, fmt.Errorf("loading profile for %s: %w", user.ID, err)
	}

	categories, tags := prof.ScoreMaps()
	mergeInterests(categories, tags, user.Interests)

	userCtx := &recommend.UserContext{
		User:           user,
		Profile:        prof,
		CategoryScores: categories,
		TagScores:      tags,
		Dismissed:      prof.Dismissed,
		Session:        session,
	}

	history, err := s.interactions.History(ctx, user.ID, s.now().Add(-historyWindow))
	if err != nil {
		// Behavioral aggregates are an enrichment; the stored profile alone
		// still serves.
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("history aggregation failed")
	} else {
		applyHistory(userCtx, history)
	}

	for _, ri := range prof.RecentInteractions {
		if ri.Type == models.InteractionUpvote {
			userCtx.UpvotedProductIDs = append(userCtx.UpvotedProductIDs, ri.ProductID)
		}
	}

	s.cache.Set(cache.ProfileKey(user.ID, "context"), userCtx, cache.TTLPersonalized)

	return userCtx, nil
}

// mergeInterests folds declared interests into the score maps. Declared
// strength never lowers a learned score; the max wins.
func mergeInterests(categories, tags map[string]float64, interests []models.Interest) {
	for _, in := range interests {
		if in.Name == "" || in.Strength <= 0 {
			continue
		}
		score := in.Strength / interestStrengthScale

		key := strings.ToLower(in.Name)
		if score > tags[key] {
			tags[key] = score
		}
		// A declared interest naming a known category counts on that axis too.
		if cur, ok := categories[in.Name]; ok && score > cur {
			categories[in.Name] = score
		}
	}
}

// applyHistory folds 30-day behavioral aggregates into the context: viewed
// product ids newest first, and implicit category/tag affinity from view
// tallies.
func applyHistory(userCtx *recommend.UserContext, history *store.UserHistory) {
	viewed := make([]string, len(history.ViewedProducts))
	for i, vs := range history.ViewedProducts {
		viewed[i] = vs.ProductID
	}
	userCtx.ViewedProductIDs = viewed

	for categoryID, views := range history.CategoryViews {
		implicit := historyScoreWeight * scoring.Normalize(float64(views))
		if implicit > userCtx.CategoryScores[categoryID] {
			userCtx.CategoryScores[categoryID] = implicit
		}
	}
	for tag, views := range history.TagViews {
		key := strings.ToLower(tag)
		implicit := historyScoreWeight * scoring.Normalize(float64(views))
		if implicit > userCtx.TagScores[key] {
			userCtx.TagScores[key] = implicit
		}
	}
}

// GetProfile returns the user's stored profile, or an empty one if none
// exists yet.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.PreferenceProfile, error) {
	prof, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return models.NewPreferenceProfile(userID, s.now()), nil
	}
	if err != nil {
		return nil, err
	}
	return prof, nil
}

// UpdateFromInterests reseeds the profile's preference scores from the
// user's declared interests, keeping learned scores where they are stronger.
func (s *Service) UpdateFromInterests(ctx context.Context, user *models.User) (*models.PreferenceProfile, error) {
	if user.IsAnonymous() {
		return nil, errors.New("anonymous users have no profile")
	}

	now := s.now()
	prof, err := s.profiles.Apply(ctx, user.ID, func(p *models.PreferenceProfile) error {
		for _, in := range user.Interests {
			if in.Name == "" || in.Strength <= 0 {
				continue
			}
			score := in.Strength / interestStrengthScale
			key := strings.ToLower(in.Name)
			cur := p.Tags[key]
			if score > cur.Score {
				p.Tags[key] = models.PreferenceScore{
					Score:            score,
					LastInteraction:  now,
					InteractionCount: cur.InteractionCount,
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating interests for %s: %w", user.ID, err)
	}

	s.invalidateUser(user.ID, true)
	return prof, nil
}
