// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package recommend

import (
	"context"
	"fmt"
)

// CandidateRequest is the per-strategy fetch request issued by the hybrid
// engine during fan-out.
type CandidateRequest struct {
	// Limit is the number of candidates the strategy should return. The
	// engine over-requests relative to the page size.
	Limit int
	// Category and Tags restrict the candidate pool when the caller filters
	// the page. Empty means unrestricted.
	Category string
	Tags     []string
	// SeedProductIDs pins the similarity search to explicit products instead
	// of the user's recent views. Only the similar strategy reads it.
	SeedProductIDs []string
	// ForceRefresh bypasses per-strategy candidate caches.
	ForceRefresh bool
	// UserCtx is never nil; anonymous requests carry a context with a nil
	// profile and empty preference maps.
	UserCtx *UserContext
}

// Strategy produces scored candidates for one recommendation source.
//
// Fetch must return candidates with Score in [0,1] and Reason set to the
// strategy's Name. Returning an empty slice is normal when the strategy has
// nothing to offer (cold start, exhausted pool); errors are reserved for
// infrastructure failures.
type Strategy interface {
	Name() Reason
	Fetch(ctx context.Context, req CandidateRequest) ([]Candidate, error)
}

// Registry holds the engine's strategies in priority order. Order matters:
// the diversifier's first pass walks sources in registration order.
type Registry struct {
	strategies []Strategy
	byName     map[Reason]Strategy
}

// NewRegistry builds a registry from strategies in priority order. Duplicate
// names are rejected so wiring mistakes fail at startup.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{
		strategies: make([]Strategy, 0, len(strategies)),
		byName:     make(map[Reason]Strategy, len(strategies)),
	}
	for _, s := range strategies {
		if _, dup := r.byName[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate strategy %q", s.Name())
		}
		r.strategies = append(r.strategies, s)
		r.byName[s.Name()] = s
	}
	return r, nil
}

// All returns the strategies in registration order.
func (r *Registry) All() []Strategy {
	return r.strategies
}

// Get returns the strategy registered under the name, or nil.
func (r *Registry) Get(name Reason) Strategy {
	return r.byName[name]
}

// ForBlend returns the strategies that participate in the resolved weight
// set, in registration order. Sources with no weight are skipped entirely so
// anonymous requests never invoke profile-dependent strategies.
func (r *Registry) ForBlend(weights Weights) []Strategy {
	active := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		if w, ok := weights[s.Name()]; ok && w > 0 {
			active = append(active, s)
		}
	}
	return active
}
