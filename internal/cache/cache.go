// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package cache provides the recommendation cache service: a thread-safe
// in-memory key/value store with per-entry TTL, user-scoped bulk
// invalidation, and smart invalidation that maps interaction types to the
// keyspaces whose freshness they affect.
//
// The engine treats the cache as best-effort: a nil *Service is a valid
// receiver for Get/Set/invalidation calls and behaves as a permanent miss,
// so cache unavailability is never surfaced to callers.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// cleanupInterval is how often expired entries are swept.
const cleanupInterval = 5 * time.Minute

// TTL policy for the engine's cached artifacts.
const (
	// TTLCandidate applies to per-strategy candidate caches.
	TTLCandidate = time.Hour
	// TTLPersonalized applies to preference-derived caches.
	TTLPersonalized = 30 * time.Minute
	// TTLTrendingMetrics applies to the hour-bucketed trending snapshot.
	TTLTrendingMetrics = time.Hour
	// TTLHybridAuth / TTLHybridAnon apply to hybrid page caches.
	TTLHybridAuth = 30 * time.Minute
	TTLHybridAnon = time.Hour
	// TTLHybridHeadAuth / TTLHybridHeadAnon apply to the longer-lived
	// first-page subset cached alongside a full page at offset zero.
	TTLHybridHeadAuth = time.Hour
	TTLHybridHeadAnon = 2 * time.Hour
)

// entry is a cached value with expiration and an optional user tag used for
// user-scoped invalidation.
type entry struct {
	data      interface{}
	expiresAt time.Time
	userID    string
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits          int64     `json:"hits"`
	Misses        int64     `json:"misses"`
	Evictions     int64     `json:"evictions"`
	Invalidations int64     `json:"invalidations"`
	Keys          int       `json:"keys"`
	LastCleanup   time.Time `json:"last_cleanup"`
}

// Service is a thread-safe in-memory cache with per-entry TTL.
type Service struct {
	mu      sync.RWMutex
	entries map[string]entry

	statsMu sync.Mutex
	stats   Stats

	logger zerolog.Logger
	stop   chan struct{}
	once   sync.Once
}

// NewService creates a cache service and starts its background sweep.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewService(logger zerolog.Logger) *Service {
	s := &Service{
		entries: make(map[string]entry),
		logger:  logger.With().Str("component", "cache").Logger(),
		stop:    make(chan struct{}),
	}
	s.stats.LastCleanup = time.Now()

	go s.cleanupLoop()

	return s
}

// Get retrieves a value by key. Expired entries count as misses and are
// removed lazily. A nil receiver is a permanent miss.
func (s *Service) Get(key string) (interface{}, bool) {
	if s == nil {
		return nil, false
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.recordMiss()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := s.entries[key]; still && time.Now().After(cur.expiresAt) {
			delete(s.entries, key)
			s.recordEviction()
		}
		s.mu.Unlock()
		s.recordMiss()
		return nil, false
	}

	s.recordHit()
	return e.data, true
}

// Set stores a value under key with the given TTL. Concurrent writes resolve
// as last-writer-wins. A nil receiver ignores the write.
func (s *Service) Set(key string, value interface{}, ttl time.Duration) {
	if s == nil || ttl <= 0 {
		return
	}

	s.mu.Lock()
	s.entries[key] = entry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
		userID:    userTagFromKey(key),
	}
	s.mu.Unlock()
}

// Delete removes a single key.
func (s *Service) Delete(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// DeletePrefix removes every key with the given prefix and returns the count.
func (s *Service) DeletePrefix(prefix string) int {
	if s == nil || prefix == "" {
		return 0
	}

	s.mu.Lock()
	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.recordInvalidations(removed)
	}
	return removed
}

// Stats returns a snapshot of cache counters.
func (s *Service) Stats() Stats {
	if s == nil {
		return Stats{}
	}

	s.mu.RLock()
	keys := len(s.entries)
	s.mu.RUnlock()

	s.statsMu.Lock()
	snap := s.stats
	s.statsMu.Unlock()

	snap.Keys = keys
	return snap
}

// Flush drops every cached entry.
func (s *Service) Flush() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
	s.logger.Debug().Msg("cache flushed")
}

// Close stops the background sweep. Safe to call more than once.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() { close(s.stop) })
}

func (s *Service) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Service) sweep() {
	now := time.Now()
	evicted := 0

	s.mu.Lock()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	s.mu.Unlock()

	s.statsMu.Lock()
	s.stats.Evictions += int64(evicted)
	s.stats.LastCleanup = now
	s.statsMu.Unlock()

	if evicted > 0 {
		s.logger.Debug().Int("evicted", evicted).Msg("cache sweep complete")
	}
}

func (s *Service) recordHit() {
	if s == nil {
		return
	}
	s.statsMu.Lock()
	s.stats.Hits++
	s.statsMu.Unlock()
}

func (s *Service) recordMiss() {
	if s == nil {
		return
	}
	s.statsMu.Lock()
	s.stats.Misses++
	s.statsMu.Unlock()
}

func (s *Service) recordEviction() {
	s.statsMu.Lock()
	s.stats.Evictions++
	s.statsMu.Unlock()
}

func (s *Service) recordInvalidations(n int) {
	s.statsMu.Lock()
	s.stats.Invalidations += int64(n)
	s.statsMu.Unlock()
}
