package repository

import (
	"context"
	"sync"

	"github.com/iconidentify/facepass/internal/domain"
)

// InMemoryJobRepository implements JobRepository using in-memory
// storage. Refresh jobs are best-effort warm-ups; losing the queue on
// restart is acceptable.
type InMemoryJobRepository struct {
	mu      sync.RWMutex
	jobs    map[domain.JobID]*domain.RefreshJob
	byAdmin map[string]domain.JobID
	queue   []domain.JobID // FIFO queue of pending job IDs
}

// NewInMemoryJobRepository creates a new in-memory job repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobs:    make(map[domain.JobID]*domain.RefreshJob),
		byAdmin: make(map[string]domain.JobID),
		queue:   make([]domain.JobID, 0),
	}
}

// Enqueue adds a job to the queue. An admin with a job already queued
// or processing keeps the existing one.
func (r *InMemoryJobRepository) Enqueue(ctx context.Context, job *domain.RefreshJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingID, ok := r.byAdmin[job.AdminID]; ok {
		if existing, ok := r.jobs[existingID]; ok {
			switch existing.Status {
			case domain.JobStatusQueued, domain.JobStatusProcessing, domain.JobStatusRetrying:
				return nil
			}
		}
	}

	r.jobs[job.ID] = job
	r.byAdmin[job.AdminID] = job.ID
	r.queue = append(r.queue, job.ID)

	return nil
}

// Dequeue retrieves the next pending job (FIFO).
func (r *InMemoryJobRepository) Dequeue(ctx context.Context) (*domain.RefreshJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, jobID := range r.queue {
		job, ok := r.jobs[jobID]
		if !ok {
			continue
		}

		if job.Status == domain.JobStatusQueued || job.Status == domain.JobStatusRetrying {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return job, nil
		}
	}

	return nil, domain.ErrNoJobs
}

// Get retrieves a job by ID.
func (r *InMemoryJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.RefreshJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// Update stores the job's current state. Retrying jobs re-enter the
// queue.
func (r *InMemoryJobRepository) Update(ctx context.Context, job *domain.RefreshJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = job

	if job.Status == domain.JobStatusRetrying {
		for _, queued := range r.queue {
			if queued == job.ID {
				return nil
			}
		}
		r.queue = append(r.queue, job.ID)
	}

	return nil
}

// Stats returns queue statistics.
func (r *InMemoryJobRepository) Stats(ctx context.Context) (*QueueStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &QueueStats{}
	for _, job := range r.jobs {
		switch job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusProcessing:
			stats.Processing++
		case domain.JobStatusCompleted:
			stats.Completed++
		case domain.JobStatusFailed:
			stats.Failed++
		case domain.JobStatusRetrying:
			stats.Retrying++
		}
	}
	return stats, nil
}
