// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefreshFunc recomputes a periodic snapshot for the given instant.
type RefreshFunc func(ctx context.Context, now time.Time) error

// RefreshService keeps the trending snapshot warm so the first request of
// each hour bucket never pays the aggregation cost.
type RefreshService struct {
	refresher RefreshFunc
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRefreshService builds a refresher running at the given interval.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRefreshService(refresher RefreshFunc, interval time.Duration, logger zerolog.Logger) *RefreshService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &RefreshService{
		refresher: refresher,
		interval:  interval,
		logger:    logger.With().Str("service", "trending_refresh").Logger(),
		now:       time.Now,
	}
}

// Serve refreshes immediately, then on every tick, until ctx is canceled.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *RefreshService) refresh(ctx context.Context) {
	if err := s.refresher(ctx, s.now()); err != nil {
		s.logger.Warn().Err(err).Msg("trending snapshot refresh failed")
	}
}

// String names the service in supervisor logs.
func (s *RefreshService) String() string {
	return "trending-refresh"
}
