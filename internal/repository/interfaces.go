package repository

import (
	"context"
	"time"

	"github.com/iconidentify/facepass/internal/domain"
)

// MediaCacheRepository persists filtered media sets keyed by
// (username, kind).
type MediaCacheRepository interface {
	// Get returns the cached set, or domain.ErrCacheMiss if no live
	// entry exists for the key.
	Get(ctx context.Context, username string, kind domain.CacheKind) (*domain.CachedMediaSet, error)

	// Put replaces the entry for (username, kind) with posts and a
	// fresh write timestamp.
	Put(ctx context.Context, username string, kind domain.CacheKind, posts []domain.Post) error

	// Invalidate deletes both kind entries for the username. Missing
	// entries are a no-op.
	Invalidate(ctx context.Context, username string) error

	// DeleteExpired removes entries older than the cutoff and reports
	// how many were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// IdentityRepository persists admin → platform identity links.
type IdentityRepository interface {
	// Get returns the identity for an admin id, or
	// domain.ErrIdentityNotFound.
	Get(ctx context.Context, adminID string) (*domain.AdminIdentity, error)

	// Put creates or replaces the identity link for identity.AdminID.
	Put(ctx context.Context, identity *domain.AdminIdentity) error

	// SetTwitterUserID caches the discovered numeric id on the record.
	SetTwitterUserID(ctx context.Context, adminID, twitterUserID string) error

	// Delete removes the identity link. Missing records are a no-op.
	Delete(ctx context.Context, adminID string) error
}

// TokenRepository persists the singleton bearer-token override.
type TokenRepository interface {
	// Get returns the stored override, or domain.ErrTokenNotConfigured
	// when none is stored.
	Get(ctx context.Context) (*domain.BearerTokenConfig, error)

	// Set stores or replaces the override.
	Set(ctx context.Context, token, updatedBy string) error

	// Delete removes the override. A missing record is a no-op.
	Delete(ctx context.Context) error
}

// JobRepository manages the refresh job queue.
type JobRepository interface {
	Enqueue(ctx context.Context, job *domain.RefreshJob) error
	Dequeue(ctx context.Context) (*domain.RefreshJob, error)
	Get(ctx context.Context, id domain.JobID) (*domain.RefreshJob, error)
	Update(ctx context.Context, job *domain.RefreshJob) error
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats summarizes the refresh queue for the stats endpoint.
type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
}
