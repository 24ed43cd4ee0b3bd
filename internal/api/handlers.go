// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/cache"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/profile"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/store"
)

// requestTimeout bounds a single recommendation request end to end.
const requestTimeout = 10 * time.Second

// Handler serves the recommendation API.
type Handler struct {
	engine   *recommend.Engine
	profiles *profile.Service
	products store.ProductStore
	cache    *cache.Service
	logger   zerolog.Logger
	started  time.Time
}

// HandlerOptions carries the handler's collaborators.
type HandlerOptions struct {
	Engine   *recommend.Engine
	Profiles *profile.Service
	Products store.ProductStore
	Cache    *cache.Service
	Logger   zerolog.Logger
}

// NewHandler wires the API handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(opts HandlerOptions) *Handler {
	return &Handler{
		engine:   opts.Engine,
		profiles: opts.Profiles,
		products: opts.Products,
		cache:    opts.Cache,
		logger:   opts.Logger.With().Str("component", "api").Logger(),
		started:  time.Now().UTC(),
	}
}

// GetHybrid handles GET /api/v1/recommendations.
func (h *Handler) GetHybrid(w http.ResponseWriter, r *http.Request) {
	req, verr := parseRecommendRequest(r)
	if verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.engine.GetHybrid(ctx, req)
	if err != nil {
		// GetHybrid degrades internally; an error here is a dead context.
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to assemble recommendations", nil)
		return
	}

	respondPage(w, r, resp, !req.User.IsAnonymous())
}

// strategyHandler serves GET /api/v1/recommendations/{strategy} for one
// named source.
func (h *Handler) strategyHandler(name recommend.Reason) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, verr := parseRecommendRequest(r)
		if verr != nil {
			apiErr := verr.ToAPIError()
			respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
			return
		}
		h.serveSingle(w, r, name, req)
	}
}

// GetSimilar handles GET /api/v1/recommendations/similar/{productID}.
func (h *Handler) GetSimilar(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", "Product ID is required", nil)
		return
	}

	req, verr := parseRecommendRequest(r)
	if verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	req.SeedProductIDs = []string{productID}

	h.serveSingle(w, r, recommend.ReasonSimilar, req)
}

// GetCategory handles GET /api/v1/recommendations/category/{categoryID}:
// the full blend restricted to one category.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryID")
	if categoryID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_CATEGORY_ID", "Category ID is required", nil)
		return
	}

	req, verr := parseRecommendRequest(r)
	if verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	req.Category = categoryID

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.engine.GetHybrid(ctx, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to assemble recommendations", nil)
		return
	}

	respondPage(w, r, resp, !req.User.IsAnonymous())
}

// GetTags handles GET /api/v1/recommendations/tags?tags=a,b: the full blend
// restricted to any-of the tags.
func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	req, verr := parseRecommendRequest(r)
	if verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	if len(req.Tags) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "At least one tag is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.engine.GetHybrid(ctx, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to assemble recommendations", nil)
		return
	}

	respondPage(w, r, resp, !req.User.IsAnonymous())
}

// GetMaker handles GET /api/v1/recommendations/maker/{makerID}: the maker's
// published catalog, newest first.
func (h *Handler) GetMaker(w http.ResponseWriter, r *http.Request) {
	makerID := chi.URLParam(r, "makerID")
	if makerID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_MAKER_ID", "Maker ID is required", nil)
		return
	}

	req, verr := parseRecommendRequest(r)
	if verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.engine.GetMaker(ctx, makerID, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to list maker products", nil)
		return
	}

	respondPage(w, r, resp, false)
}

// serveSingle runs one strategy and writes the page.
func (h *Handler) serveSingle(w http.ResponseWriter, r *http.Request, name recommend.Reason, req recommend.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.engine.GetSingle(ctx, name, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to assemble recommendations", nil)
		return
	}

	respondPage(w, r, resp, !req.User.IsAnonymous())
}

// PostInteraction handles POST /api/v1/interactions.
func (h *Handler) PostInteraction(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	var body interactionRequest
	if !h.decodeBody(w, r, &body) {
		return
	}

	session := requestSession(r)
	meta := body.Metadata
	if meta.SessionID == "" {
		meta.SessionID = session.SessionID
	}
	if meta.DeviceType == "" {
		meta.DeviceType = session.DeviceType
	}

	prof, err := h.profiles.RecordInteraction(r.Context(), profile.InteractionInput{
		User:               user,
		ProductID:          body.ProductID,
		Type:               models.InteractionType(body.Type),
		RecommendationType: body.RecommendationType,
		Position:           body.Position,
		Score:              body.Score,
		Metadata:           meta,
	})
	h.respondProfileWrite(w, prof, err)
}

// PostDismiss handles POST /api/v1/interactions/dismiss.
func (h *Handler) PostDismiss(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	var body dismissRequest
	if !h.decodeBody(w, r, &body) {
		return
	}

	prof, err := h.profiles.Dismiss(r.Context(), user, body.ProductID)
	h.respondProfileWrite(w, prof, err)
}

// PostFeedback handles POST /api/v1/feedback.
func (h *Handler) PostFeedback(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	var body feedbackRequest
	if !h.decodeBody(w, r, &body) {
		return
	}

	prof, err := h.profiles.ProcessFeedback(r.Context(), user, body.ProductID, models.FeedbackAction(body.Action))
	h.respondProfileWrite(w, prof, err)
}

// PostRegenerate handles POST /api/v1/recommendations/regenerate: a forced
// rebuild that reseeds the profile's stored recommendation list.
func (h *Handler) PostRegenerate(w http.ResponseWriter, r *http.Request) {
	req, verr := parseRecommendRequest(r)
	if verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	if req.User.IsAnonymous() {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Regeneration requires a user", nil)
		return
	}
	req.ForceRefresh = true

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.engine.GetHybrid(ctx, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RECOMMENDATION_ERROR", "Failed to regenerate recommendations", nil)
		return
	}

	stored := make([]models.StoredRecommendation, len(resp.Items))
	for i, item := range resp.Items {
		stored[i] = models.StoredRecommendation{
			ProductID:   item.ProductID,
			Score:       item.Score,
			Reason:      string(item.Reason),
			Explanation: item.Explanation,
			GeneratedAt: item.Metadata.GeneratedAt,
		}
	}
	if err := h.profiles.StoreRecommendations(ctx, req.User.ID, stored); err != nil {
		h.logger.Warn().Err(err).Str("user_id", req.User.ID).Msg("storing regenerated recommendations failed")
	}

	respondData(w, resp, resp.Metadata.QueryTimeMS, false)
}

// GetPreferences handles GET /api/v1/preferences: the stored preference
// profile of the requesting user.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	if user.IsAnonymous() {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Preferences require a user", nil)
		return
	}

	prof, err := h.profiles.GetProfile(r.Context(), user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "PROFILE_ERROR", "Failed to load preferences", nil)
		return
	}
	respondData(w, prof, 0, false)
}

// PutInterests handles PUT /api/v1/preferences/interests: reseeds the
// profile from declared interests.
func (h *Handler) PutInterests(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	if user.IsAnonymous() {
		respondError(w, http.StatusBadRequest, "INVALID_USER_ID", "Interests require a user", nil)
		return
	}

	var body interestsRequest
	if !h.decodeBody(w, r, &body) {
		return
	}

	user.Interests = make([]models.Interest, len(body.Interests))
	for i, in := range body.Interests {
		user.Interests[i] = models.Interest{Name: in.Name, Strength: in.Strength}
	}

	prof, err := h.profiles.UpdateFromInterests(r.Context(), user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "PROFILE_ERROR", "Failed to update interests", nil)
		return
	}
	respondData(w, prof, 0, false)
}

// decodeBody decodes and validates a JSON request body. Writes the error
// response and returns false on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON body", nil)
		return false
	}
	if verr := validateBody(dst); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Code, verr.Message, verr.Details)
		return false
	}
	return true
}

// respondProfileWrite maps an ingestion result onto the envelope: invalid
// input rejects, infrastructure failures surface as 500, success returns the
// updated profile.
func (h *Handler) respondProfileWrite(w http.ResponseWriter, prof *models.PreferenceProfile, err error) {
	switch {
	case errors.Is(err, profile.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "INGESTION_ERROR", "Failed to record interaction", nil)
	default:
		respondData(w, prof, 0, false)
	}
}
