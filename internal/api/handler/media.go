package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/facepass/internal/api/middleware"
	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/internal/service"
)

// MediaService is the slice of the media pipeline the feed handler uses.
type MediaService interface {
	GetMedia(ctx context.Context, adminID string, kind domain.CacheKind) (*service.MediaResult, error)
}

// MediaHandler serves the filtered photo and video feeds.
type MediaHandler struct {
	mediaSvc MediaService
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaSvc MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
		logger:   logger,
	}
}

// FeedResponse is the JSON response for feed requests.
type FeedResponse struct {
	Success      bool          `json:"success"`
	Tweets       []domain.Post `json:"tweets"`
	Cached       bool          `json:"cached"`
	Username     string        `json:"username"`
	FilterSource string        `json:"filter_source,omitempty"`
}

// Photos handles GET /api/v1/twitter/photos
func (h *MediaHandler) Photos(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, domain.CacheKindPhotos)
}

// Videos handles GET /api/v1/twitter/videos
func (h *MediaHandler) Videos(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, domain.CacheKindVideos)
}

func (h *MediaHandler) serveFeed(w http.ResponseWriter, r *http.Request, kind domain.CacheKind) {
	adminID := middleware.AdminIDFromContext(r.Context())

	result, err := h.mediaSvc.GetMedia(r.Context(), adminID, kind)
	if err != nil {
		status, message := mapFeedError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("feed request failed", "kind", kind, "admin_id", adminID, "error", err)
		}
		h.writeError(w, status, message, err)
		return
	}

	posts := result.Posts
	if posts == nil {
		posts = []domain.Post{}
	}

	h.writeJSON(w, http.StatusOK, FeedResponse{
		Success:      true,
		Tweets:       posts,
		Cached:       result.Cached,
		Username:     result.Username,
		FilterSource: string(result.FilterSource),
	})
}

// mapFeedError translates pipeline errors to HTTP status codes.
func mapFeedError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCacheKind):
		return http.StatusBadRequest, "invalid media kind"
	case errors.Is(err, domain.ErrNotLinked):
		return http.StatusNotFound, "no account linked for admin"
	case errors.Is(err, domain.ErrTokenNotConfigured):
		return http.StatusInternalServerError, "bearer token not configured"
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		if upstream.RateLimited() {
			return http.StatusTooManyRequests, "rate limited by upstream API"
		}
		return upstream.StatusCode, "upstream API error"
	}

	return http.StatusInternalServerError, "failed to load media"
}

func (h *MediaHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *MediaHandler) writeError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	json.NewEncoder(w).Encode(body)
}
