package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iconidentify/facepass/internal/api/middleware"
	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/internal/repository"
)

// AdminMediaService is the slice of the media pipeline the admin
// handler uses.
type AdminMediaService interface {
	InvalidateForAdmin(ctx context.Context, adminID string) (string, error)
	DisconnectAdmin(ctx context.Context, adminID string) (string, error)
}

// AdminHandler handles cache administration, bearer-token override CRUD
// and identity link CRUD.
type AdminHandler struct {
	mediaSvc   AdminMediaService
	jobRepo    repository.JobRepository
	tokens     repository.TokenRepository
	identities repository.IdentityRepository
	maxRetries int
	logger     *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	mediaSvc AdminMediaService,
	jobRepo repository.JobRepository,
	tokens repository.TokenRepository,
	identities repository.IdentityRepository,
	maxRetries int,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		mediaSvc:   mediaSvc,
		jobRepo:    jobRepo,
		tokens:     tokens,
		identities: identities,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// ClearCacheResponse is the JSON response for cache invalidation.
type ClearCacheResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username"`
}

// ClearCache handles POST /api/v1/twitter/admin/clear-cache
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.AdminIDFromContext(r.Context())

	username, err := h.mediaSvc.InvalidateForAdmin(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, domain.ErrNotLinked) {
			h.writeError(w, http.StatusNotFound, "no account linked for admin", err)
			return
		}
		h.logger.Error("clear cache failed", "admin_id", adminID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to clear cache", err)
		return
	}

	h.writeJSON(w, http.StatusOK, ClearCacheResponse{
		Success:  true,
		Message:  "cache cleared",
		Username: username,
	})
}

// RefreshResponse is the JSON response after enqueueing a warm-up job.
type RefreshResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
}

// Refresh handles POST /api/v1/twitter/admin/refresh
func (h *AdminHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.AdminIDFromContext(r.Context())

	job := domain.NewRefreshJob(domain.JobID(uuid.NewString()), adminID, h.maxRetries)
	if err := h.jobRepo.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("enqueue refresh failed", "admin_id", adminID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to enqueue refresh", err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, RefreshResponse{
		Success: true,
		JobID:   string(job.ID),
		Status:  string(job.Status),
	})
}

// BearerTokenResponse describes the stored token override without
// revealing the token itself.
type BearerTokenResponse struct {
	Configured bool   `json:"configured"`
	Token      string `json:"token,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	UpdatedBy  string `json:"updated_by,omitempty"`
}

// GetBearerToken handles GET /api/v1/admin/twitter/bearer-token
func (h *AdminHandler) GetBearerToken(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.tokens.Get(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotConfigured) {
			h.writeJSON(w, http.StatusOK, BearerTokenResponse{Configured: false})
			return
		}
		h.logger.Error("load bearer token failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load bearer token", err)
		return
	}

	h.writeJSON(w, http.StatusOK, BearerTokenResponse{
		Configured: true,
		Token:      maskToken(cfg.Token),
		UpdatedAt:  cfg.UpdatedAt.UTC().Format(time.RFC3339),
		UpdatedBy:  cfg.UpdatedBy,
	})
}

// SetBearerTokenRequest is the JSON request body for storing an
// override token.
type SetBearerTokenRequest struct {
	Token string `json:"token"`
}

// SetBearerToken handles POST /api/v1/admin/twitter/bearer-token
func (h *AdminHandler) SetBearerToken(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.AdminIDFromContext(r.Context())

	var req SetBearerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		h.writeError(w, http.StatusBadRequest, "token is required", nil)
		return
	}

	if err := h.tokens.Set(r.Context(), req.Token, adminID); err != nil {
		h.logger.Error("store bearer token failed", "admin_id", adminID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to store bearer token", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "bearer token updated",
	})
}

// DeleteBearerToken handles DELETE /api/v1/admin/twitter/bearer-token
func (h *AdminHandler) DeleteBearerToken(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Delete(r.Context()); err != nil {
		h.logger.Error("delete bearer token failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete bearer token", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "bearer token removed",
	})
}

// GetIdentity handles GET /api/v1/admin/twitter/identity
func (h *AdminHandler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.AdminIDFromContext(r.Context())

	ident, err := h.identities.Get(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			h.writeError(w, http.StatusNotFound, "no account linked for admin", err)
			return
		}
		h.logger.Error("load identity failed", "admin_id", adminID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load identity", err)
		return
	}

	h.writeJSON(w, http.StatusOK, ident)
}

// PutIdentityRequest is the JSON request body for linking an account.
type PutIdentityRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"photo_url"`
}

// PutIdentity handles PUT /api/v1/admin/twitter/identity
func (h *AdminHandler) PutIdentity(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.AdminIDFromContext(r.Context())

	var req PutIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.Username = strings.TrimSpace(strings.TrimPrefix(req.Username, "@"))
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, "username is required", nil)
		return
	}

	// Re-linking resets the cached numeric id; it is rediscovered on
	// the next feed request.
	ident := &domain.AdminIdentity{
		AdminID:     adminID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	}
	if err := h.identities.Put(r.Context(), ident); err != nil {
		h.logger.Error("store identity failed", "admin_id", adminID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to store identity", err)
		return
	}

	h.writeJSON(w, http.StatusOK, ident)
}

// DeleteIdentity handles DELETE /api/v1/admin/twitter/identity. It
// disconnects the linked account and invalidates its cache entries.
func (h *AdminHandler) DeleteIdentity(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.AdminIDFromContext(r.Context())

	username, err := h.mediaSvc.DisconnectAdmin(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, domain.ErrNotLinked) {
			h.writeError(w, http.StatusNotFound, "no account linked for admin", err)
			return
		}
		h.logger.Error("disconnect failed", "admin_id", adminID, "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to disconnect account", err)
		return
	}

	h.writeJSON(w, http.StatusOK, ClearCacheResponse{
		Success:  true,
		Message:  "account disconnected",
		Username: username,
	})
}

// maskToken keeps only the last four characters visible.
func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

func (h *AdminHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *AdminHandler) writeError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	json.NewEncoder(w).Encode(body)
}
