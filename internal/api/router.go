// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curata-io/curata/internal/config"
	"github.com/curata-io/curata/internal/recommend"
)

// NewRouter assembles the HTTP surface: infrastructure endpoints at the
// root, the recommendation API under /api/v1.
func NewRouter(cfg config.APIConfig, h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID", "X-Session-ID", "X-Device-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Use(requestMetrics)

		r.Get("/status", h.Status)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/", h.GetHybrid)
			r.Post("/regenerate", h.PostRegenerate)

			r.Get("/trending", h.strategyHandler(recommend.ReasonTrending))
			r.Get("/new", h.strategyHandler(recommend.ReasonNew))
			r.Get("/personalized", h.strategyHandler(recommend.ReasonPersonalized))
			r.Get("/collaborative", h.strategyHandler(recommend.ReasonCollaborative))
			r.Get("/interests", h.strategyHandler(recommend.ReasonInterests))
			r.Get("/discovery", h.strategyHandler(recommend.ReasonDiscovery))
			r.Get("/serendipity", h.strategyHandler(recommend.ReasonSerendipity))

			r.Get("/similar/{productID}", h.GetSimilar)
			r.Get("/category/{categoryID}", h.GetCategory)
			r.Get("/tags", h.GetTags)
			r.Get("/maker/{makerID}", h.GetMaker)
		})

		r.Route("/interactions", func(r chi.Router) {
			r.Post("/", h.PostInteraction)
			r.Post("/dismiss", h.PostDismiss)
		})
		r.Post("/feedback", h.PostFeedback)

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", h.GetPreferences)
			r.Put("/interests", h.PutInterests)
		})
	})

	return r
}
