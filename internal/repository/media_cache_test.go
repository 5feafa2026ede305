package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/iconidentify/facepass/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPosts() []domain.Post {
	return []domain.Post{
		{
			ID:             "1001",
			Text:           "beach day",
			CreatedAt:      "2024-01-15T10:00:00.000Z",
			AuthorUsername: "alice",
			Media: []domain.Media{
				{Key: "3_111", Kind: domain.MediaKindPhoto, URL: "https://pbs.example/p1.jpg"},
			},
		},
		{
			ID:             "1002",
			AuthorUsername: "alice",
			Media: []domain.Media{
				{
					Key:        "7_222",
					Kind:       domain.MediaKindVideo,
					URL:        "https://video.example/v.mp4",
					PreviewURL: "https://pbs.example/v.jpg",
					Variants:   []domain.Variant{{Bitrate: 832000, URL: "https://video.example/v.mp4"}},
				},
			},
		},
	}
}

func TestMediaCacheRoundTrip(t *testing.T) {
	repo := NewSQLiteMediaCacheRepository(openTestDB(t), 0)
	ctx := context.Background()
	posts := testPosts()

	if err := repo.Put(ctx, "alice", domain.CacheKindPhotos, posts); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "alice", domain.CacheKindPhotos)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Username != "alice" || got.Kind != domain.CacheKindPhotos {
		t.Errorf("unexpected key: %s/%s", got.Username, got.Kind)
	}
	if !reflect.DeepEqual(got.Posts, posts) {
		t.Errorf("posts changed through the cache:\ngot  %+v\nwant %+v", got.Posts, posts)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestMediaCacheMiss(t *testing.T) {
	repo := NewSQLiteMediaCacheRepository(openTestDB(t), 0)

	_, err := repo.Get(context.Background(), "nobody", domain.CacheKindPhotos)
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMediaCacheKindsAreIndependent(t *testing.T) {
	repo := NewSQLiteMediaCacheRepository(openTestDB(t), 0)
	ctx := context.Background()

	if err := repo.Put(ctx, "alice", domain.CacheKindPhotos, testPosts()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := repo.Get(ctx, "alice", domain.CacheKindVideos); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("videos entry should be a miss, got %v", err)
	}
}

func TestMediaCachePutOverwrites(t *testing.T) {
	repo := NewSQLiteMediaCacheRepository(openTestDB(t), 0)
	ctx := context.Background()

	if err := repo.Put(ctx, "alice", domain.CacheKindPhotos, testPosts()); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}
	if err := repo.Put(ctx, "alice", domain.CacheKindPhotos, nil); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}

	got, err := repo.Get(ctx, "alice", domain.CacheKindPhotos)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Posts) != 0 {
		t.Errorf("expected empty set after overwrite, got %d posts", len(got.Posts))
	}
}

func TestMediaCacheInvalidate(t *testing.T) {
	repo := NewSQLiteMediaCacheRepository(openTestDB(t), 0)
	ctx := context.Background()

	if err := repo.Put(ctx, "alice", domain.CacheKindPhotos, testPosts()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := repo.Put(ctx, "alice", domain.CacheKindVideos, testPosts()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := repo.Put(ctx, "bob", domain.CacheKindPhotos, testPosts()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := repo.Invalidate(ctx, "alice"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if _, err := repo.Get(ctx, "alice", domain.CacheKindPhotos); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("photos survived invalidation: %v", err)
	}
	if _, err := repo.Get(ctx, "alice", domain.CacheKindVideos); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("videos survived invalidation: %v", err)
	}
	if _, err := repo.Get(ctx, "bob", domain.CacheKindPhotos); err != nil {
		t.Errorf("other user's entry lost: %v", err)
	}

	// Invalidating again is a no-op
	if err := repo.Invalidate(ctx, "alice"); err != nil {
		t.Errorf("repeat Invalidate failed: %v", err)
	}
}

func TestMediaCacheTTLExpiry(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteMediaCacheRepository(db, time.Hour)
	ctx := context.Background()

	if err := repo.Put(ctx, "alice", domain.CacheKindPhotos, testPosts()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := repo.Get(ctx, "alice", domain.CacheKindPhotos); err != nil {
		t.Fatalf("fresh entry should hit: %v", err)
	}

	// Age the row past the TTL
	_, err := db.Exec(`UPDATE media_cache SET updated_at = ? WHERE username = 'alice'`,
		time.Now().UTC().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("age row: %v", err)
	}

	if _, err := repo.Get(ctx, "alice", domain.CacheKindPhotos); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expired entry should miss, got %v", err)
	}
}

func TestMediaCacheDeleteExpired(t *testing.T) {
	db := openTestDB(t)
	repo := NewSQLiteMediaCacheRepository(db, 0)
	ctx := context.Background()

	if err := repo.Put(ctx, "old", domain.CacheKindPhotos, testPosts()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := repo.Put(ctx, "fresh", domain.CacheKindPhotos, testPosts()); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := db.Exec(`UPDATE media_cache SET updated_at = ? WHERE username = 'old'`,
		time.Now().UTC().Add(-48*time.Hour)); err != nil {
		t.Fatalf("age row: %v", err)
	}

	deleted, err := repo.DeleteExpired(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted row, got %d", deleted)
	}
	if _, err := repo.Get(ctx, "fresh", domain.CacheKindPhotos); err != nil {
		t.Errorf("fresh entry lost: %v", err)
	}
}

func TestMediaCacheRejectsInvalidKind(t *testing.T) {
	repo := NewSQLiteMediaCacheRepository(openTestDB(t), 0)
	ctx := context.Background()

	if _, err := repo.Get(ctx, "alice", "gifs"); !errors.Is(err, domain.ErrInvalidCacheKind) {
		t.Errorf("Get: expected ErrInvalidCacheKind, got %v", err)
	}
	if err := repo.Put(ctx, "alice", "gifs", nil); !errors.Is(err, domain.ErrInvalidCacheKind) {
		t.Errorf("Put: expected ErrInvalidCacheKind, got %v", err)
	}
}
