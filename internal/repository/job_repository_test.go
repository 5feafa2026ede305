package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/iconidentify/facepass/internal/domain"
)

func TestJobEnqueueDequeueFIFO(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	jobA := domain.NewRefreshJob("job-a", "admin-1", 2)
	jobB := domain.NewRefreshJob("job-b", "admin-2", 2)

	if err := repo.Enqueue(ctx, jobA); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := repo.Enqueue(ctx, jobB); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	first, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if first.ID != "job-a" {
		t.Errorf("expected job-a first, got %s", first.ID)
	}

	second, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if second.ID != "job-b" {
		t.Errorf("expected job-b second, got %s", second.ID)
	}

	if _, err := repo.Dequeue(ctx); !errors.Is(err, domain.ErrNoJobs) {
		t.Errorf("expected ErrNoJobs on empty queue, got %v", err)
	}
}

func TestJobEnqueueDedupsPerAdmin(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	if err := repo.Enqueue(ctx, domain.NewRefreshJob("job-a", "admin-1", 2)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	// Same admin, job still queued: kept, not duplicated
	if err := repo.Enqueue(ctx, domain.NewRefreshJob("job-b", "admin-1", 2)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Queued != 1 {
		t.Errorf("expected 1 queued job, got %d", stats.Queued)
	}

	if _, err := repo.Get(ctx, "job-b"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("duplicate job should not be stored, got %v", err)
	}
}

func TestJobEnqueueAfterCompletion(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	job := domain.NewRefreshJob("job-a", "admin-1", 2)
	if err := repo.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := repo.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	job.MarkCompleted()
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// A completed job no longer blocks new submissions for the admin
	if err := repo.Enqueue(ctx, domain.NewRefreshJob("job-b", "admin-1", 2)); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	next, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if next.ID != "job-b" {
		t.Errorf("expected job-b, got %s", next.ID)
	}
}

func TestJobRetryReentersQueue(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	job := domain.NewRefreshJob("job-a", "admin-1", 2)
	if err := repo.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if _, err := repo.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	job.MarkProcessing()
	job.MarkFailed("fetch timeline: status 500")
	if job.Status != domain.JobStatusRetrying {
		t.Fatalf("expected retrying, got %s", job.Status)
	}
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	again, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue after retry failed: %v", err)
	}
	if again.ID != "job-a" {
		t.Errorf("expected job-a requeued, got %s", again.ID)
	}

	// Exhaust retries
	again.MarkFailed("fetch timeline: status 500")
	if again.Status != domain.JobStatusFailed {
		t.Errorf("expected failed after max retries, got %s", again.Status)
	}
	if err := repo.Update(ctx, again); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := repo.Dequeue(ctx); !errors.Is(err, domain.ErrNoJobs) {
		t.Errorf("failed job must not requeue, got %v", err)
	}
}

func TestJobStats(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	queued := domain.NewRefreshJob("job-a", "admin-1", 2)
	done := domain.NewRefreshJob("job-b", "admin-2", 2)
	if err := repo.Enqueue(ctx, queued); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := repo.Enqueue(ctx, done); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	done.MarkCompleted()
	if err := repo.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Queued != 1 || stats.Completed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
