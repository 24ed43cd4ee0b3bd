// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package models

import "time"

// APIResponse is the uniform envelope for all API responses.
//
// The recommendation surface guarantees a successful envelope with possibly
// degraded data; Error is populated only for input rejections and the
// metadata block describes any degradation (cache status, fallbacks).
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured details.
//
// Common codes:
//   - VALIDATION_ERROR: invalid input parameters
//   - INVALID_USER_ID / INVALID_PRODUCT_ID: malformed identifiers
//   - RECOMMENDATION_ERROR: engine failure surfaced only for hard errors
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
