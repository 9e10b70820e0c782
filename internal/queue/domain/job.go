// Package domain defines the core job queue domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies the handler a queued job is dispatched to.
type JobType string

const (
	JobTypeSendMessage   JobType = "send_message"
	JobTypeDeliveryCheck JobType = "delivery_check"
)

// JobStatus represents the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job represents a unit of deferred work stored in the database. A job stays
// pending until its RunAt time passes, is dispatched to the handler registered
// for its type, and ends up completed or failed. Messages accumulates a human
// readable trace across attempts.
type Job struct {
	ID          uuid.UUID
	Type        JobType
	Payload     string
	Signature   string
	Status      JobStatus
	RunAt       time.Time
	Attempts    int
	// CurrentStep advances every time a handler runs the job, including
	// attempts that end in a retry.
	CurrentStep int
	Messages    []string
	LastError   *string
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AddMessage appends a line to the job's trace.
func (j *Job) AddMessage(message string) {
	j.Messages = append(j.Messages, message)
}

// NewJob creates a pending job of the given type scheduled for runAt.
func NewJob(jobType JobType, payload, signature string, runAt time.Time) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.Must(uuid.NewV7()),
		Type:      jobType,
		Payload:   payload,
		Signature: signature,
		Status:    JobStatusPending,
		RunAt:     runAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OutcomeStatus classifies the result of a single handler invocation.
type OutcomeStatus string

const (
	// OutcomeCompleted marks the job as done.
	OutcomeCompleted OutcomeStatus = "completed"
	// OutcomeRetry reschedules the job with back-off until retries run out.
	OutcomeRetry OutcomeStatus = "retry"
	// OutcomeFailed marks the job as failed immediately, without retries.
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome is what a job handler reports back to the worker. ClearPayload asks
// the worker to drop the stored payload once the job completes, for payloads
// carrying message content that should not be retained.
type Outcome struct {
	Status       OutcomeStatus
	Message      string
	ClearPayload bool
}

// Completed builds a successful outcome.
func Completed(message string) Outcome {
	return Outcome{Status: OutcomeCompleted, Message: message}
}

// Retry builds an outcome that requests another attempt.
func Retry(message string) Outcome {
	return Outcome{Status: OutcomeRetry, Message: message}
}

// Failed builds a terminal failure outcome.
func Failed(message string) Outcome {
	return Outcome{Status: OutcomeFailed, Message: message}
}

// DeliveryCheckPayload is the payload for delivery check jobs. EventIDs
// narrows the run to the listed stored events; when empty the whole window is
// checked.
type DeliveryCheckPayload struct {
	EventIDs []uuid.UUID `json:"event_ids,omitempty"`
}
