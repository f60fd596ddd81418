package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobType selects the operation a scheduled job performs.
type JobType string

const (
	JobTypeTransfer JobType = "transfer"
	JobTypeDeposit  JobType = "deposit"
)

// JobStatus represents the lifecycle state of a scheduled job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// StaleJobError is recorded on jobs reclaimed after their runner stopped mid-execution.
const StaleJobError = "abandoned while processing"

// ScheduledJob is a deferred ledger operation executed by the job runner.
type ScheduledJob struct {
	ID        uuid.UUID       `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RunAt     time.Time       `json:"run_at"`
	Status    JobStatus       `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError *string         `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsTerminal returns true once the job will not run again.
func (j *ScheduledJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// TransferJobPayload is the payload of a JobTypeTransfer job.
type TransferJobPayload struct {
	SenderAccountID   uuid.UUID `json:"sender_account_id"`
	ReceiverAccountID uuid.UUID `json:"receiver_account_id"`
	Amount            int64     `json:"amount"`
}

// DepositJobPayload is the payload of a JobTypeDeposit job.
type DepositJobPayload struct {
	AccountID uuid.UUID `json:"account_id"`
	Amount    int64     `json:"amount"`
	Reference string    `json:"reference"`
}
