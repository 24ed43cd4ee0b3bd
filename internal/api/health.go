// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/curata-io/curata/internal/store"
)

// readyProbeTimeout bounds the readiness catalog probe.
const readyProbeTimeout = 2 * time.Second

// Healthz handles GET /healthz: process liveness.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondData(w, map[string]string{"status": "alive"}, 0, false)
}

// Readyz handles GET /readyz: the catalog must answer before the service
// takes traffic.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	if _, err := h.products.Query(ctx, store.ProductQuery{Limit: 1}); err != nil {
		h.logger.Warn().Err(err).Msg("readiness probe failed")
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Catalog store unavailable", nil)
		return
	}
	respondData(w, map[string]string{"status": "ready"}, 0, false)
}

// Status handles GET /api/v1/status: uptime and cache efficiency for
// operators.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	respondData(w, map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"cache":          h.cache.Stats(),
		"strategies":     h.engine.Strategies(),
	}, 0, false)
}
