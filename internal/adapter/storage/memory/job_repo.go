package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
)

// JobRepo implements ports.JobRepository.
type JobRepo struct {
	store *Store
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(s *Store) *JobRepo {
	return &JobRepo{store: s}
}

// Create stores a copy of j.
func (r *JobRepo) Create(ctx context.Context, j *domain.ScheduledJob) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[j.ID]; ok {
		return fmt.Errorf("insert scheduled job: duplicate id %s", j.ID)
	}
	job := *j
	s.jobs[j.ID] = &job
	return nil
}

// Get returns a copy of a job, or nil.
func (r *JobRepo) Get(ctx context.Context, id uuid.UUID) (*domain.ScheduledJob, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	job := *j
	return &job, nil
}

// ClaimDue moves up to limit due pending jobs, oldest run_at first, to processing.
func (r *JobRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledJob, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*domain.ScheduledJob
	for _, j := range s.jobs {
		if j.Status == domain.JobStatusPending && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].RunAt.Before(due[b].RunAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]domain.ScheduledJob, 0, len(due))
	for _, j := range due {
		j.Status = domain.JobStatusProcessing
		j.Attempts++
		j.UpdatedAt = clock()
		claimed = append(claimed, *j)
	}
	return claimed, nil
}

// MarkCompleted finishes a job.
func (r *JobRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.update("complete job", id, func(j *domain.ScheduledJob) {
		j.Status = domain.JobStatusCompleted
		j.LastError = nil
	})
}

// MarkFailed finishes a job permanently.
func (r *JobRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.update("fail job", id, func(j *domain.ScheduledJob) {
		j.Status = domain.JobStatusFailed
		j.LastError = &lastError
	})
}

// Reschedule returns a job to pending for another attempt.
func (r *JobRepo) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	return r.update("reschedule job", id, func(j *domain.ScheduledJob) {
		j.Status = domain.JobStatusPending
		j.RunAt = runAt
		j.LastError = &lastError
	})
}

// Release returns a claimed job to pending and uncounts the claim's attempt.
func (r *JobRepo) Release(ctx context.Context, id uuid.UUID) error {
	return r.update("release job", id, func(j *domain.ScheduledJob) {
		j.Status = domain.JobStatusPending
		if j.Attempts > 0 {
			j.Attempts--
		}
	})
}

// ReclaimStale settles jobs left in processing since before cutoff.
func (r *JobRepo) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, j := range s.jobs {
		if j.Status != domain.JobStatusProcessing || !j.UpdatedAt.Before(cutoff) {
			continue
		}
		j.Status = domain.JobStatusFailed
		if j.Type == domain.JobTypeDeposit {
			j.Status = domain.JobStatusPending
		}
		msg := domain.StaleJobError
		j.LastError = &msg
		j.UpdatedAt = clock()
		n++
	}
	return n, nil
}

func (r *JobRepo) update(op string, id uuid.UUID, apply func(*domain.ScheduledJob)) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%s: job not found: %s", op, id)
	}
	apply(j)
	j.UpdatedAt = clock()
	return nil
}
