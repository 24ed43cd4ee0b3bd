// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/validation"
)

// userHeader identifies the requesting user. Authentication is upstream;
// this service trusts the gateway-injected identity.
const userHeader = "X-User-ID"

// recommendQuery is the validated shape of recommendation query parameters.
type recommendQuery struct {
	Limit  int    `validate:"omitempty,min=1,max=100"`
	Offset int    `validate:"omitempty,min=0"`
	Blend  string `validate:"omitempty,blend"`
	SortBy string `validate:"omitempty,oneof=score created upvotes trending"`
}

// interactionRequest is the body of POST /interactions.
type interactionRequest struct {
	ProductID          string                     `json:"product_id" validate:"required"`
	Type               string                     `json:"type" validate:"required,interaction_type"`
	RecommendationType string                     `json:"recommendation_type,omitempty"`
	Position           int                        `json:"position,omitempty" validate:"omitempty,min=0"`
	Score              float64                    `json:"score,omitempty"`
	Metadata           models.InteractionMetadata `json:"metadata,omitempty"`
}

// dismissRequest is the body of POST /interactions/dismiss.
type dismissRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Reason    string `json:"reason,omitempty"`
	Source    string `json:"source,omitempty"`
}

// feedbackRequest is the body of POST /feedback.
type feedbackRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Action    string `json:"action" validate:"required,feedback_action"`
	Source    string `json:"source,omitempty"`
}

// interestsRequest is the body of PUT /preferences/interests.
type interestsRequest struct {
	Interests []interestInput `json:"interests" validate:"required,dive"`
}

type interestInput struct {
	Name     string  `json:"name" validate:"required"`
	Strength float64 `json:"strength" validate:"min=0,max=10"`
}

// requestUser resolves the optional user identity. Nil means anonymous.
func requestUser(r *http.Request) *models.User {
	uid := r.Header.Get(userHeader)
	if uid == "" {
		uid = r.URL.Query().Get("user_id")
	}
	if uid == "" {
		return nil
	}
	return &models.User{ID: uid}
}

// requestSession extracts the session context from headers.
func requestSession(r *http.Request) recommend.SessionContext {
	return recommend.SessionContext{
		SessionID:  r.Header.Get("X-Session-ID"),
		DeviceType: r.Header.Get("X-Device-Type"),
		UserAgent:  r.UserAgent(),
	}
}

// parseRecommendRequest builds a validated engine request from query
// parameters. Unknown values reject; absent values fall back to engine
// defaults.
func parseRecommendRequest(r *http.Request) (recommend.Request, *validation.RequestValidationError) {
	q := r.URL.Query()

	query := recommendQuery{
		Blend:  q.Get("blend"),
		SortBy: q.Get("sort_by"),
	}
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.Offset, _ = strconv.Atoi(q.Get("offset"))

	if verr := validation.ValidateStruct(&query); verr != nil {
		return recommend.Request{}, verr
	}

	req := recommend.Request{
		User:         requestUser(r),
		Limit:        query.Limit,
		Offset:       query.Offset,
		Blend:        recommend.Blend(query.Blend),
		Category:     q.Get("category"),
		Tags:         splitTags(q.Get("tags")),
		SortBy:       recommend.SortBy(query.SortBy),
		ForceRefresh: q.Get("force_refresh") == "true",
		Session:      requestSession(r),
	}
	return req, nil
}

// validateBody validates a decoded request body.
func validateBody(body interface{}) *validation.APIError {
	if verr := validation.ValidateStruct(body); verr != nil {
		return verr.ToAPIError()
	}
	return nil
}

// splitTags parses a comma-separated tag list, dropping empties.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := parts[:0:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
