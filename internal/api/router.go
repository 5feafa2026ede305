package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/facepass/internal/api/handler"
	mw "github.com/iconidentify/facepass/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	mediaHandler *handler.MediaHandler,
	adminHandler *handler.AdminHandler,
	healthHandler *handler.HealthHandler,
	apiKey string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(2 * time.Minute))

	// CORS for the admin panel
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.AdminAuth(apiKey))

		// System visibility
		r.Get("/stats", healthHandler.Stats)
		r.Get("/events", healthHandler.Events)

		// Filtered media feeds
		r.Get("/twitter/photos", mediaHandler.Photos)
		r.Get("/twitter/videos", mediaHandler.Videos)

		// Cache administration
		r.Post("/twitter/admin/clear-cache", adminHandler.ClearCache)
		r.Post("/twitter/admin/refresh", adminHandler.Refresh)

		// Bearer token override
		r.Get("/admin/twitter/bearer-token", adminHandler.GetBearerToken)
		r.Post("/admin/twitter/bearer-token", adminHandler.SetBearerToken)
		r.Delete("/admin/twitter/bearer-token", adminHandler.DeleteBearerToken)

		// Identity link
		r.Get("/admin/twitter/identity", adminHandler.GetIdentity)
		r.Put("/admin/twitter/identity", adminHandler.PutIdentity)
		r.Delete("/admin/twitter/identity", adminHandler.DeleteIdentity)
	})

	return r
}
