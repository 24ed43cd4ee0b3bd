// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package api is the validated inbound HTTP projection of the recommendation
// engine: chi routing, request parsing, and the uniform response envelope.
// The recommendation endpoints always answer 200 with degradation described
// in metadata; only invalid input is rejected.
package api

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/curata-io/curata/internal/logging"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
)

// respondJSON writes the envelope with the standard headers.
func respondJSON(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("encoding response failed")
	}
}

// respondData writes a successful envelope around data.
func respondData(w http.ResponseWriter, data interface{}, queryTimeMS int64, cached bool) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: queryTimeMS,
			Cached:      cached,
		},
	})
}

// respondError writes an error envelope. Reserved for input rejections and
// infrastructure endpoints; the recommendation surface degrades instead.
func respondError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// setRecommendationCacheHeaders marks recommendation pages privately
// cacheable for a short window so clients do not hammer pagination.
func setRecommendationCacheHeaders(w http.ResponseWriter, authenticated bool) {
	if authenticated {
		w.Header().Set("Cache-Control", "private, max-age=60")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
}

// respondPage writes a recommendation page with cache headers and a weak
// ETag over the served item identity, answering 304 on a matching
// If-None-Match.
func respondPage(w http.ResponseWriter, r *http.Request, resp *recommend.Response, authenticated bool) {
	setRecommendationCacheHeaders(w, authenticated)

	etag := pageETag(resp)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	respondData(w, resp, resp.Metadata.QueryTimeMS, resp.Metadata.CacheStatus == "hit")
}

// pageETag hashes the item ids and scores; timestamps are excluded so a
// repeated identical page revalidates.
func pageETag(resp *recommend.Response) string {
	h := fnv.New64a()
	for _, item := range resp.Items {
		fmt.Fprintf(h, "%s:%.4f;", item.ProductID, item.Score)
	}
	return fmt.Sprintf(`W/"%x"`, h.Sum64())
}
