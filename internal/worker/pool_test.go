package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/iconidentify/facepass/internal/domain"
	"github.com/iconidentify/facepass/internal/repository"
	"github.com/iconidentify/facepass/internal/service"
	"github.com/iconidentify/facepass/pkg/gemini"
	"github.com/iconidentify/facepass/pkg/twitter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubClassifier always fails, pushing the filter onto the heuristic.
type stubClassifier struct{}

func (stubClassifier) ClassifyPersonalContent(ctx context.Context, prompt string) (*gemini.Classification, error) {
	return nil, errors.New("unavailable")
}

// stubCache is a minimal repository.MediaCacheRepository.
type stubCache struct {
	puts chan string
}

func (s *stubCache) Get(ctx context.Context, username string, kind domain.CacheKind) (*domain.CachedMediaSet, error) {
	return nil, domain.ErrCacheMiss
}

func (s *stubCache) Put(ctx context.Context, username string, kind domain.CacheKind, posts []domain.Post) error {
	s.puts <- username + "/" + string(kind)
	return nil
}

func (s *stubCache) Invalidate(ctx context.Context, username string) error { return nil }

func (s *stubCache) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// stubIdentities serves one linked admin.
type stubIdentities struct{}

func (stubIdentities) Get(ctx context.Context, adminID string) (*domain.AdminIdentity, error) {
	if adminID != "admin-1" {
		return nil, domain.ErrIdentityNotFound
	}
	return &domain.AdminIdentity{AdminID: "admin-1", Username: "alice", TwitterUserID: "9"}, nil
}

func (stubIdentities) Put(ctx context.Context, identity *domain.AdminIdentity) error { return nil }

func (stubIdentities) SetTwitterUserID(ctx context.Context, adminID, twitterUserID string) error {
	return nil
}

func (stubIdentities) Delete(ctx context.Context, adminID string) error { return nil }

// stubTimeline returns a fixed single-post timeline, or an error.
type stubTimeline struct {
	err error
}

func (s *stubTimeline) LookupUser(ctx context.Context, username string) (*twitter.User, error) {
	return &twitter.User{ID: "9", Username: username}, nil
}

func (s *stubTimeline) FetchTimeline(ctx context.Context, userID string, limit int) (*twitter.TimelineBatch, error) {
	if s.err != nil {
		return nil, s.err
	}
	batch := &twitter.TimelineBatch{
		Posts: []twitter.RawPost{{ID: "1", AuthorID: "9"}},
		Media: []twitter.RawMedia{{MediaKey: "k1", Type: "photo"}},
		Users: []twitter.User{{ID: "9", Username: "alice"}},
	}
	batch.Posts[0].Attachments.MediaKeys = []string{"k1"}
	return batch, nil
}

func newTestMediaService(client *stubTimeline, cache *stubCache) *service.MediaService {
	filter := service.NewPersonalContentFilter(stubClassifier{}, service.RetryConfig{MaxAttempts: 1}, testLogger())
	return service.NewMediaService(cache, stubIdentities{}, client, filter, nil,
		service.MediaServiceConfig{FetchLimit: 100, Retry: service.RetryConfig{MaxAttempts: 1}}, testLogger())
}

func TestPoolProcessesRefreshJob(t *testing.T) {
	cache := &stubCache{puts: make(chan string, 4)}
	jobRepo := repository.NewInMemoryJobRepository()
	mediaSvc := newTestMediaService(&stubTimeline{}, cache)

	pool := NewPool(Config{Workers: 1, PollInterval: 10 * time.Millisecond}, jobRepo, mediaSvc, testLogger())

	job := domain.NewRefreshJob("job-1", "admin-1", 0)
	if err := jobRepo.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pool.Start()
	defer pool.Stop(time.Second)

	// Both kind caches are warmed
	for i := 0; i < 2; i++ {
		select {
		case <-cache.puts:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for cache writes")
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		got, err := jobRepo.Get(context.Background(), "job-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status == domain.JobStatusCompleted {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job not completed, status %s", got.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPoolRetriesFailedJob(t *testing.T) {
	cache := &stubCache{puts: make(chan string, 4)}
	jobRepo := repository.NewInMemoryJobRepository()
	mediaSvc := newTestMediaService(&stubTimeline{err: &domain.UpstreamError{StatusCode: 401}}, cache)

	pool := NewPool(Config{Workers: 1, PollInterval: 10 * time.Millisecond}, jobRepo, mediaSvc, testLogger())

	job := domain.NewRefreshJob("job-1", "admin-1", 2)
	if err := jobRepo.Enqueue(context.Background(), job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	pool.Start()
	defer pool.Stop(time.Second)

	deadline := time.After(3 * time.Second)
	for {
		got, err := jobRepo.Get(context.Background(), "job-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status == domain.JobStatusFailed {
			if got.Attempts != 2 {
				t.Errorf("attempts: got %d, want 2", got.Attempts)
			}
			if got.LastError == "" {
				t.Error("LastError not recorded")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job never failed permanently, status %s attempts %d", got.Status, got.Attempts)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPoolStopTimeout(t *testing.T) {
	cache := &stubCache{puts: make(chan string, 4)}
	jobRepo := repository.NewInMemoryJobRepository()
	mediaSvc := newTestMediaService(&stubTimeline{}, cache)

	pool := NewPool(Config{Workers: 2, PollInterval: 10 * time.Millisecond}, jobRepo, mediaSvc, testLogger())
	pool.Start()

	if err := pool.Stop(time.Second); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
