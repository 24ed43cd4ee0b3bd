// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package cache

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Key prefixes for the cache keyspaces the engine uses. User-scoped keys
// embed a "u=<id>" segment so they can be purged per user without a
// secondary index.
const (
	prefixCandidate       = "cand:"
	prefixHybrid          = "hybrid:"
	prefixTrendingMetrics = "trendmetrics:"
	prefixProfile         = "profile:"
)

// HourBucket returns the hour-aligned bucket for a time, used to scope
// candidate and trending-metrics keys to the current hour.
func HourBucket(t time.Time) int64 {
	return t.UTC().Truncate(time.Hour).Unix()
}

// QueryHash produces a short stable hash of a canonical query description
// for embedding in cache keys (FNV-1a, matching the API ETag scheme).
func QueryHash(parts ...string) string {
	hash := uint32(2166136261)
	for _, p := range parts {
		for i := 0; i < len(p); i++ {
			hash ^= uint32(p[i])
			hash *= 16777619
		}
		hash ^= uint32('|')
		hash *= 16777619
	}
	return strconv.FormatUint(uint64(hash), 16)
}

// CandidateKey builds the cache key for a single-strategy candidate fetch:
// (strategy, query, sort, limit, hour bucket), plus the user when the
// strategy is user-scoped.
func CandidateKey(strategy, userID, queryHash, sortBy string, limit int, now time.Time) string {
	user := "-"
	if userID != "" {
		user = "u=" + userID
	}
	return fmt.Sprintf("%s%s:%s:%s:%s:%d:h%d",
		prefixCandidate, strategy, user, queryHash, sortBy, limit, HourBucket(now))
}

// HybridKey builds the cache key for a hybrid recommendation page.
func HybridKey(userID string, limit, offset int, blend, category string, tags []string, sortBy string) string {
	scope := "anon:anon"
	if userID != "" {
		scope = "auth:u=" + userID
	}

	key := fmt.Sprintf("%s%s:%d:%d:%s", prefixHybrid, scope, limit, offset, blend)
	if category != "" {
		key += ":cat:" + category
	}
	if len(tags) > 0 {
		sorted := make([]string, len(tags))
		copy(sorted, tags)
		sort.Strings(sorted)
		key += ":tags:" + strings.Join(sorted, ",")
	}
	return key + ":" + sortBy
}

// TrendingMetricsKey builds the hour-bucketed key for the trending snapshot.
func TrendingMetricsKey(now time.Time) string {
	return fmt.Sprintf("%sh%d", prefixTrendingMetrics, HourBucket(now))
}

// ProfileKey builds a user-scoped profile-derived cache key, e.g. the
// assembled user context or merged preferences.
func ProfileKey(userID, kind string) string {
	return fmt.Sprintf("%su=%s:%s", prefixProfile, userID, kind)
}

// userTagFromKey extracts the user id from a key's "u=<id>" segment, or ""
// for keys that are not user-scoped.
func userTagFromKey(key string) string {
	idx := strings.Index(key, "u=")
	if idx < 0 {
		return ""
	}
	rest := key[idx+2:]
	if end := strings.IndexByte(rest, ':'); end >= 0 {
		return rest[:end]
	}
	return rest
}
