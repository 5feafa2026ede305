package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iconidentify/facepass/internal/domain"
)

// SQLiteMediaCacheRepository implements MediaCacheRepository backed by
// SQLite. Posts are stored as one JSON blob per (username, kind) row.
type SQLiteMediaCacheRepository struct {
	db *sql.DB
	// ttl > 0 expires entries at read time; zero means entries live
	// until explicit invalidation.
	ttl time.Duration
}

// NewSQLiteMediaCacheRepository creates a new media cache repository.
func NewSQLiteMediaCacheRepository(db *sql.DB, ttl time.Duration) *SQLiteMediaCacheRepository {
	return &SQLiteMediaCacheRepository{db: db, ttl: ttl}
}

// Get returns the cached set for (username, kind). An entry past the
// configured TTL counts as a miss.
func (r *SQLiteMediaCacheRepository) Get(ctx context.Context, username string, kind domain.CacheKind) (*domain.CachedMediaSet, error) {
	if !kind.Valid() {
		return nil, domain.ErrInvalidCacheKind
	}

	var postsJSON string
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT posts, updated_at FROM media_cache WHERE username = ? AND kind = ?`,
		username, string(kind),
	).Scan(&postsJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("query media cache: %w", err)
	}

	if r.ttl > 0 && time.Since(updatedAt) > r.ttl {
		return nil, domain.ErrCacheMiss
	}

	var posts []domain.Post
	if err := json.Unmarshal([]byte(postsJSON), &posts); err != nil {
		return nil, fmt.Errorf("decode cached posts: %w", err)
	}

	return &domain.CachedMediaSet{
		Username:  username,
		Kind:      kind,
		Posts:     posts,
		UpdatedAt: updatedAt,
	}, nil
}

// Put replaces the entry for (username, kind) with a fresh timestamp.
func (r *SQLiteMediaCacheRepository) Put(ctx context.Context, username string, kind domain.CacheKind, posts []domain.Post) error {
	if !kind.Valid() {
		return domain.ErrInvalidCacheKind
	}
	if posts == nil {
		posts = []domain.Post{}
	}

	postsJSON, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode posts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO media_cache (username, kind, posts, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username, kind) DO UPDATE SET
			posts = excluded.posts,
			updated_at = excluded.updated_at
	`, username, string(kind), string(postsJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write media cache: %w", err)
	}
	return nil
}

// Invalidate deletes both kind entries for the username. Idempotent.
func (r *SQLiteMediaCacheRepository) Invalidate(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM media_cache WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("invalidate media cache: %w", err)
	}
	return nil
}

// DeleteExpired removes entries last written before the cutoff.
func (r *SQLiteMediaCacheRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM media_cache WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired cache entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
