// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package metrics provides Prometheus instrumentation for the
// recommendation engine: strategy fan-out performance, cache efficiency,
// hybrid page assembly, interaction ingestion, and the API surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Strategy metrics

	StrategyFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_strategy_fetch_duration_seconds",
			Help:    "Duration of candidate fetches per strategy",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy", "outcome"}, // outcome: ok, empty, error
	)

	StrategyRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_strategy_retries_total",
			Help: "Total candidate fetch retries per strategy",
		},
		[]string{"strategy"},
	)

	StrategyCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_strategy_candidates",
			Help:    "Candidates returned per strategy fetch",
			Buckets: []float64{0, 1, 5, 10, 20, 40, 80, 160},
		},
		[]string{"strategy"},
	)

	// Hybrid page metrics

	HybridRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_hybrid_requests_total",
			Help: "Total hybrid recommendation requests",
		},
		[]string{"blend", "audience", "cached"}, // audience: auth, anon
	)

	HybridAssemblyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_hybrid_assembly_duration_seconds",
			Help:    "End-to-end hybrid page assembly duration",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"blend"},
	)

	HybridSourceCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_hybrid_source_count",
			Help:    "Distinct strategies contributing to a served page",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
		[]string{"audience"},
	)

	EmergencyFillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_emergency_fills_total",
			Help: "Total pages that needed the emergency fallback",
		},
		[]string{"reason"}, // reason: shortfall, empty, placeholder
	)

	// Cache metrics

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total recommendation cache hits",
		},
		[]string{"keyspace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total recommendation cache misses",
		},
		[]string{"keyspace"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_invalidations_total",
			Help: "Total cache keys invalidated",
		},
		[]string{"trigger"}, // trigger: interaction type or "manual"
	)

	// Interaction ingestion metrics

	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_interactions_total",
			Help: "Total interaction events ingested",
		},
		[]string{"type", "outcome"}, // outcome: ok, duplicate, invalid, error
	)

	ProfileWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_profile_write_failures_total",
			Help: "Total preference profile write failures",
		},
	)

	ImpressionQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_impression_queue_depth",
			Help: "Buffered impression events awaiting flush",
		},
	)

	ImpressionFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_impression_flushes_total",
			Help: "Total impression batch flushes",
		},
		[]string{"outcome"}, // outcome: ok, error
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records one API request with its latency.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStrategyFetch records one candidate fetch.
func RecordStrategyFetch(strategy, outcome string, candidates int, duration time.Duration) {
	StrategyFetchDuration.WithLabelValues(strategy, outcome).Observe(duration.Seconds())
	StrategyCandidates.WithLabelValues(strategy).Observe(float64(candidates))
}

// RecordHybridRequest records one hybrid page request.
func RecordHybridRequest(blend string, authenticated, cached bool, duration time.Duration) {
	audience := "anon"
	if authenticated {
		audience = "auth"
	}
	HybridRequestsTotal.WithLabelValues(blend, audience, strconv.FormatBool(cached)).Inc()
	if !cached {
		HybridAssemblyDuration.WithLabelValues(blend).Observe(duration.Seconds())
	}
}
