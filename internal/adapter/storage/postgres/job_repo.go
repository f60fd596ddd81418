package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"

	"github.com/google/uuid"
)

const jobColumns = `id, type, payload, run_at, status, attempts, last_error, created_at, updated_at`

// JobRepo implements ports.JobRepository.
type JobRepo struct {
	pool Pool
}

// NewJobRepo creates a new JobRepo.
func NewJobRepo(pool Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

// Create inserts a pending job.
func (r *JobRepo) Create(ctx context.Context, j *domain.ScheduledJob) error {
	query := `INSERT INTO scheduled_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		j.ID, string(j.Type), j.Payload, j.RunAt, string(j.Status),
		j.Attempts, j.LastError, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert scheduled job: %w", err)
	}
	return nil
}

// ClaimDue moves due pending jobs to processing and returns them. SKIP LOCKED
// lets concurrent runners claim disjoint batches.
func (r *JobRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledJob, error) {
	query := `UPDATE scheduled_jobs SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM scheduled_jobs
			WHERE status = 'pending' AND run_at <= $1
			ORDER BY run_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScheduledJob
	for rows.Next() {
		var (
			j              domain.ScheduledJob
			jobType, state string
		)
		err := rows.Scan(
			&j.ID, &jobType, &j.Payload, &j.RunAt, &state,
			&j.Attempts, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		j.Type = domain.JobType(jobType)
		j.Status = domain.JobStatus(state)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// MarkCompleted finishes a job.
func (r *JobRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.setState(ctx, "complete job",
		`UPDATE scheduled_jobs SET status = 'completed', last_error = NULL, updated_at = NOW() WHERE id = $1`, id)
}

// MarkFailed finishes a job permanently with its last error.
func (r *JobRepo) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.setState(ctx, "fail job",
		`UPDATE scheduled_jobs SET status = 'failed', last_error = $2, updated_at = NOW() WHERE id = $1`, id, lastError)
}

// Reschedule returns a job to pending for another attempt at runAt.
func (r *JobRepo) Reschedule(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	return r.setState(ctx, "reschedule job",
		`UPDATE scheduled_jobs SET status = 'pending', run_at = $2, last_error = $3, updated_at = NOW() WHERE id = $1`,
		id, runAt, lastError)
}

// Release returns a claimed job to pending and uncounts the claim's attempt.
func (r *JobRepo) Release(ctx context.Context, id uuid.UUID) error {
	return r.setState(ctx, "release job",
		`UPDATE scheduled_jobs SET status = 'pending', attempts = GREATEST(attempts - 1, 0), updated_at = NOW()
		WHERE id = $1 AND status = 'processing'`, id)
}

// ReclaimStale settles jobs whose runner died mid-execution. Deposits are safe
// to re-run by reference; a transfer may or may not have committed, so it fails.
func (r *JobRepo) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE scheduled_jobs SET
			status = CASE WHEN type = 'deposit' THEN 'pending' ELSE 'failed' END,
			last_error = $2,
			updated_at = NOW()
		WHERE status = 'processing' AND updated_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff, domain.StaleJobError)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepo) setState(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: job not found: %v", op, args[0])
	}
	return nil
}
