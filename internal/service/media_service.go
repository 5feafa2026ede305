package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/internal/repository"
	"github.com/iconidentify/facepass/pkg/twitter"
)

// TimelineClient is the slice of the platform API client the pipeline
// uses.
type TimelineClient interface {
	LookupUser(ctx context.Context, username string) (*twitter.User, error)
	FetchTimeline(ctx context.Context, userID string, limit int) (*twitter.TimelineBatch, error)
}

// MediaServiceConfig configures the media pipeline.
type MediaServiceConfig struct {
	// FetchLimit is the number of recent posts requested upstream (max 100).
	FetchLimit int
	Retry      RetryConfig
}

// MediaService runs the media pipeline: cache read, token/user
// resolution, timeline fetch, normalization, personal-content
// filtering, cache write. Concurrent cache misses for the same
// username collapse into one upstream cycle.
type MediaService struct {
	cache      repository.MediaCacheRepository
	identities repository.IdentityRepository
	client     TimelineClient
	filter     *PersonalContentFilter
	events     *EventService
	logger     *slog.Logger

	fetchLimit int
	retry      RetryConfig
	flights    singleflight.Group
}

// NewMediaService creates a new media service.
func NewMediaService(
	cache repository.MediaCacheRepository,
	identities repository.IdentityRepository,
	client TimelineClient,
	filter *PersonalContentFilter,
	events *EventService,
	cfg MediaServiceConfig,
	logger *slog.Logger,
) *MediaService {
	if cfg.FetchLimit <= 0 || cfg.FetchLimit > 100 {
		cfg.FetchLimit = 100
	}
	return &MediaService{
		cache:      cache,
		identities: identities,
		client:     client,
		filter:     filter,
		events:     events,
		logger:     logger,
		fetchLimit: cfg.FetchLimit,
		retry:      cfg.Retry,
	}
}

// MediaResult is one feed response.
type MediaResult struct {
	Posts        []domain.Post
	Cached       bool
	Username     string
	FilterSource FilterSource
}

// GetMedia returns the filtered feed of the given kind for the admin's
// linked account, serving from cache when a live entry exists.
func (s *MediaService) GetMedia(ctx context.Context, adminID string, kind domain.CacheKind) (*MediaResult, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidCacheKind
	}

	ident, err := s.resolveIdentity(ctx, adminID)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, ident.Username, kind)
	if err == nil {
		return &MediaResult{
			Posts:    cached.Posts,
			Cached:   true,
			Username: ident.Username,
		}, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		return nil, domain.NewPipelineError(ident.Username, "cache read", err)
	}

	// Cache miss: collapse concurrent refreshes for this username into
	// one upstream fetch+filter cycle. One cycle fills both kinds.
	v, err, _ := s.flights.Do(ident.Username, func() (interface{}, error) {
		return s.refresh(ctx, ident)
	})
	if err != nil {
		return nil, err
	}
	result := v.(*FilterResult)

	posts := result.Photos
	if kind == domain.CacheKindVideos {
		posts = result.Videos
	}

	return &MediaResult{
		Posts:        posts,
		Cached:       false,
		Username:     ident.Username,
		FilterSource: result.Source,
	}, nil
}

// RefreshForAdmin runs one unconditional fetch+filter cycle for the
// admin's linked account, warming both kind caches. Used by the
// background refresh worker.
func (s *MediaService) RefreshForAdmin(ctx context.Context, adminID string) error {
	ident, err := s.resolveIdentity(ctx, adminID)
	if err != nil {
		return err
	}

	_, err, _ = s.flights.Do(ident.Username, func() (interface{}, error) {
		return s.refresh(ctx, ident)
	})
	return err
}

// InvalidateForAdmin deletes both cache entries for the admin's linked
// username. Idempotent. Returns the username the entries belonged to.
func (s *MediaService) InvalidateForAdmin(ctx context.Context, adminID string) (string, error) {
	ident, err := s.resolveIdentity(ctx, adminID)
	if err != nil {
		return "", err
	}

	if err := s.cache.Invalidate(ctx, ident.Username); err != nil {
		return "", domain.NewPipelineError(ident.Username, "invalidate cache", err)
	}

	s.emit(domain.EventSeverityInfo, domain.EventCategoryCache, "cache invalidated",
		domain.EventMetadata{"username": ident.Username, "admin_id": adminID})

	return ident.Username, nil
}

// DisconnectAdmin removes the identity link and invalidates the
// username's cache entries.
func (s *MediaService) DisconnectAdmin(ctx context.Context, adminID string) (string, error) {
	username, err := s.InvalidateForAdmin(ctx, adminID)
	if err != nil {
		return "", err
	}
	if err := s.identities.Delete(ctx, adminID); err != nil {
		return "", fmt.Errorf("delete identity: %w", err)
	}

	s.emit(domain.EventSeverityInfo, domain.EventCategoryIdentity, "integration disconnected",
		domain.EventMetadata{"username": username, "admin_id": adminID})

	return username, nil
}

// resolveIdentity loads the admin's identity link, discovering and
// caching the numeric platform id on first use.
func (s *MediaService) resolveIdentity(ctx context.Context, adminID string) (*domain.AdminIdentity, error) {
	ident, err := s.identities.Get(ctx, adminID)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, domain.ErrNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if ident.Username == "" {
		return nil, domain.ErrNotLinked
	}

	if ident.TwitterUserID == "" {
		user, err := s.client.LookupUser(ctx, ident.Username)
		if err != nil {
			return nil, domain.NewPipelineError(ident.Username, "resolve user id", err)
		}
		ident.TwitterUserID = user.ID

		// Write-once-then-cache; the value is idempotent once
		// discovered, so a concurrent double write is benign.
		if err := s.identities.SetTwitterUserID(ctx, adminID, user.ID); err != nil {
			s.logger.Warn("failed to persist resolved user id",
				"admin_id", adminID,
				"username", ident.Username,
				"error", err,
			)
		}
	}

	return ident, nil
}

// refresh runs fetch → normalize → filter → cache write. The cache is
// only written after the filter step fully completes, so a cache entry
// is never partial.
func (s *MediaService) refresh(ctx context.Context, ident *domain.AdminIdentity) (*FilterResult, error) {
	batch, err := RetryWithCheck(ctx, s.retry, func() (*twitter.TimelineBatch, error) {
		return s.client.FetchTimeline(ctx, ident.TwitterUserID, s.fetchLimit)
	}, retryableUpstream)
	if err != nil {
		s.emit(domain.EventSeverityError, domain.EventCategoryPipeline, "timeline fetch failed",
			domain.EventMetadata{"username": ident.Username, "error": err.Error()})
		return nil, domain.NewPipelineError(ident.Username, "fetch timeline", err)
	}

	posts := Normalize(batch)

	result := s.filter.FilterPersonal(ctx, posts, ident.Username)

	if err := s.cache.Put(ctx, ident.Username, domain.CacheKindPhotos, result.Photos); err != nil {
		return nil, domain.NewPipelineError(ident.Username, "cache write photos", err)
	}
	if err := s.cache.Put(ctx, ident.Username, domain.CacheKindVideos, result.Videos); err != nil {
		return nil, domain.NewPipelineError(ident.Username, "cache write videos", err)
	}

	s.logger.Info("media cache refreshed",
		"username", ident.Username,
		"fetched", len(batch.Posts),
		"with_media", len(posts),
		"photos", len(result.Photos),
		"videos", len(result.Videos),
		"filter_source", result.Source,
	)
	severity := domain.EventSeverityInfo
	if result.Source == FilterSourceHeuristic {
		severity = domain.EventSeverityWarning
	}
	s.emit(severity, domain.EventCategoryPipeline, "media cache refreshed",
		domain.EventMetadata{
			"username":      ident.Username,
			"photos":        len(result.Photos),
			"videos":        len(result.Videos),
			"filter_source": string(result.Source),
		})

	return result, nil
}

// retryableUpstream retries transport errors, rate limiting and 5xx
// responses; other upstream statuses are terminal.
func retryableUpstream(err error) bool {
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.RateLimited() || upstream.StatusCode >= 500
	}
	if errors.Is(err, domain.ErrTokenNotConfigured) {
		return false
	}
	return true
}

func (s *MediaService) emit(severity domain.EventSeverity, category domain.EventCategory, message string, metadata domain.EventMetadata) {
	if s.events == nil {
		return
	}
	s.events.Emit(domain.Event{
		Severity: severity,
		Category: category,
		Source:   "media_service",
		Message:  message,
		Metadata: metadata.ToJSON(),
	})
}
