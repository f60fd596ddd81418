package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/domain"
	"github.com/devtofunmi/fake-bank/internal/core/ports"
	"github.com/devtofunmi/fake-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// jobOutcomeRetried is reported when a job failed but will run again.
const jobOutcomeRetried = "retried"

// JobConfig controls the scheduled job runner.
type JobConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	// ExecTimeout bounds a single job. Jobs run detached from the runner's
	// context, so this is the only deadline they see.
	ExecTimeout time.Duration
	// StaleAfter is how long a job may stay in processing before it is reclaimed.
	StaleAfter time.Duration
}

// JobServiceImpl implements ports.JobService on top of the wallet engines.
type JobServiceImpl struct {
	jobs    ports.JobRepository
	wallet  ports.WalletService
	metrics ports.LedgerMetrics
	cfg     JobConfig
	now     func() time.Time
	log     zerolog.Logger
}

// NewJobService creates a new JobServiceImpl.
func NewJobService(
	jobs ports.JobRepository,
	wallet ports.WalletService,
	metrics ports.LedgerMetrics,
	cfg JobConfig,
	log zerolog.Logger,
) *JobServiceImpl {
	if metrics == nil {
		metrics = ports.NoOpMetrics{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 30 * time.Second
	}
	if cfg.StaleAfter <= cfg.ExecTimeout {
		cfg.StaleAfter = max(10*time.Minute, 2*cfg.ExecTimeout)
	}
	return &JobServiceImpl{
		jobs:    jobs,
		wallet:  wallet,
		metrics: metrics,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log,
	}
}

// ScheduleTransfer stores a transfer to run at runAt. Amount and self-transfer
// checks run now; funds are checked when the job executes.
func (s *JobServiceImpl) ScheduleTransfer(ctx context.Context, req ports.TransferRequest, runAt time.Time) (*domain.ScheduledJob, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.SenderAccountID == req.ReceiverAccountID {
		return nil, apperror.ErrSelfTransfer()
	}
	return s.schedule(ctx, domain.JobTypeTransfer, domain.TransferJobPayload{
		SenderAccountID:   req.SenderAccountID,
		ReceiverAccountID: req.ReceiverAccountID,
		Amount:            req.Amount,
	}, runAt)
}

// ScheduleDeposit stores a deposit to run at runAt. Without a reference the job
// id becomes the reference, so a re-run never credits twice.
func (s *JobServiceImpl) ScheduleDeposit(ctx context.Context, req ports.DepositRequest, runAt time.Time) (*domain.ScheduledJob, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	id := uuid.New()
	if req.Reference == "" {
		req.Reference = "JOB-" + id.String()
	}
	return s.scheduleWithID(ctx, id, domain.JobTypeDeposit, domain.DepositJobPayload{
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Reference: req.Reference,
	}, runAt)
}

func (s *JobServiceImpl) schedule(ctx context.Context, jobType domain.JobType, payload any, runAt time.Time) (*domain.ScheduledJob, error) {
	return s.scheduleWithID(ctx, uuid.New(), jobType, payload, runAt)
}

func (s *JobServiceImpl) scheduleWithID(ctx context.Context, id uuid.UUID, jobType domain.JobType, payload any, runAt time.Time) (*domain.ScheduledJob, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal job payload: %w", err))
	}

	now := s.now()
	if runAt.IsZero() {
		runAt = now
	}
	job := &domain.ScheduledJob{
		ID:        id,
		Type:      jobType,
		Payload:   raw,
		RunAt:     runAt.UTC(),
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, storageError("create job", err)
	}

	s.log.Info().
		Str("job_id", job.ID.String()).
		Str("type", string(job.Type)).
		Time("run_at", job.RunAt).
		Msg("Job scheduled")

	return job, nil
}

// RunDue claims one batch of due jobs and executes them. It returns the number
// of jobs claimed. Once ctx is done, the job in progress still runs to its end
// and the rest of the batch is released back to pending.
func (s *JobServiceImpl) RunDue(ctx context.Context) (int, error) {
	claimed, err := s.jobs.ClaimDue(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due jobs: %w", err)
	}

	detached := context.WithoutCancel(ctx)
	for i := range claimed {
		job := &claimed[i]
		if ctx.Err() != nil {
			s.release(detached, job)
			continue
		}
		s.settle(detached, job, s.run(detached, job))
	}
	return len(claimed), nil
}

// ReclaimStale settles jobs that sat in processing longer than StaleAfter,
// which only happens when a runner died mid-job.
func (s *JobServiceImpl) ReclaimStale(ctx context.Context) (int64, error) {
	n, err := s.jobs.ReclaimStale(ctx, s.now().Add(-s.cfg.StaleAfter))
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	if n > 0 {
		s.log.Warn().Int64("jobs", n).Msg("Reclaimed stale jobs")
	}
	return n, nil
}

// Start polls for due jobs until ctx is cancelled.
func (s *JobServiceImpl) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	reclaim := time.NewTicker(s.cfg.StaleAfter)
	defer reclaim.Stop()

	s.log.Info().Dur("poll_interval", s.cfg.PollInterval).Msg("Job runner started")
	if _, err := s.ReclaimStale(ctx); err != nil {
		s.log.Error().Err(err).Msg("Stale job reclaim failed")
	}
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Job runner stopped")
			return
		case <-reclaim.C:
			if _, err := s.ReclaimStale(ctx); err != nil {
				s.log.Error().Err(err).Msg("Stale job reclaim failed")
			}
		case <-ticker.C:
			// Drain full batches before waiting for the next tick.
			for {
				n, err := s.RunDue(ctx)
				if err != nil {
					s.log.Error().Err(err).Msg("Job poll failed")
					break
				}
				if n < s.cfg.BatchSize || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (s *JobServiceImpl) run(ctx context.Context, job *domain.ScheduledJob) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExecTimeout)
	defer cancel()
	return s.execute(ctx, job)
}

func (s *JobServiceImpl) release(ctx context.Context, job *domain.ScheduledJob) {
	if err := s.jobs.Release(ctx, job.ID); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to release job")
		return
	}
	s.log.Info().Str("job_id", job.ID.String()).Msg("Job released on shutdown")
}

func (s *JobServiceImpl) execute(ctx context.Context, job *domain.ScheduledJob) error {
	switch job.Type {
	case domain.JobTypeTransfer:
		var p domain.TransferJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return apperror.Validation(fmt.Sprintf("invalid transfer payload: %v", err))
		}
		_, err := s.wallet.Transfer(ctx, ports.TransferRequest{
			SenderAccountID:   p.SenderAccountID,
			ReceiverAccountID: p.ReceiverAccountID,
			Amount:            p.Amount,
		})
		return err
	case domain.JobTypeDeposit:
		var p domain.DepositJobPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return apperror.Validation(fmt.Sprintf("invalid deposit payload: %v", err))
		}
		_, err := s.wallet.Deposit(ctx, ports.DepositRequest{
			AccountID: p.AccountID,
			Amount:    p.Amount,
			Reference: p.Reference,
		})
		return err
	default:
		return apperror.Validation(fmt.Sprintf("unknown job type %q", job.Type))
	}
}

// settle records the result of one execution.
func (s *JobServiceImpl) settle(ctx context.Context, job *domain.ScheduledJob, execErr error) {
	log := s.log.With().Str("job_id", job.ID.String()).Str("type", string(job.Type)).Int("attempt", job.Attempts).Logger()

	if execErr == nil {
		if err := s.jobs.MarkCompleted(ctx, job.ID); err != nil {
			log.Error().Err(err).Msg("Failed to mark job completed")
		}
		s.metrics.RecordJob(job.Type, ports.OutcomeCommitted)
		log.Info().Msg("Job completed")
		return
	}

	if s.canRetry(job, execErr) {
		runAt := s.now().Add(s.cfg.RetryBackoff * time.Duration(job.Attempts))
		if err := s.jobs.Reschedule(ctx, job.ID, runAt, execErr.Error()); err != nil {
			log.Error().Err(err).Msg("Failed to reschedule job")
		}
		s.metrics.RecordJob(job.Type, jobOutcomeRetried)
		log.Warn().Err(execErr).Time("run_at", runAt).Msg("Job failed, retrying")
		return
	}

	if err := s.jobs.MarkFailed(ctx, job.ID, execErr.Error()); err != nil {
		log.Error().Err(err).Msg("Failed to mark job failed")
	}
	s.metrics.RecordJob(job.Type, ports.OutcomeFailed)
	log.Error().Err(execErr).Msg("Job failed permanently")
}

// canRetry allows another attempt for retryable errors. Transfers are not
// idempotent, so they only retry when the engine gave up before writing
// (lock timeout); a storage failure could have come from an ambiguous commit.
func (s *JobServiceImpl) canRetry(job *domain.ScheduledJob, err error) bool {
	if job.Attempts >= s.cfg.MaxAttempts || !apperror.IsRetryable(err) {
		return false
	}
	if job.Type == domain.JobTypeTransfer {
		return apperror.HasCode(err, apperror.CodeLockTimeout)
	}
	return true
}
