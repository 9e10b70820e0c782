// Package repository implements queued job persistence.
// Repositories support both PostgreSQL and MySQL; due jobs are acquired with
// FOR UPDATE SKIP LOCKED so multiple workers never pick the same job.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/database"
	apperrors "github.com/allisson/mailsync/internal/errors"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
)

// PostgreSQLJobRepository implements Job persistence for PostgreSQL databases.
type PostgreSQLJobRepository struct {
	db *sql.DB
}

// encodeMessages serializes the job trace for storage.
func encodeMessages(messages []string) (string, error) {
	if len(messages) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode job messages")
	}
	return string(data), nil
}

// decodeMessages deserializes the job trace from storage.
func decodeMessages(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var messages []string
	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode job messages")
	}
	return messages, nil
}

// Create inserts a new job into the PostgreSQL database.
func (p *PostgreSQLJobRepository) Create(ctx context.Context, job *queueDomain.Job) error {
	querier := database.GetTx(ctx, p.db)

	messages, err := encodeMessages(job.Messages)
	if err != nil {
		return err
	}

	query := `INSERT INTO queued_jobs (id, job_type, payload, signature, status, run_at, attempts, current_step, messages, last_error, completed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = querier.ExecContext(
		ctx,
		query,
		job.ID,
		job.Type,
		job.Payload,
		job.Signature,
		job.Status,
		job.RunAt,
		job.Attempts,
		job.CurrentStep,
		messages,
		job.LastError,
		job.CompletedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create job")
	}

	return nil
}

// AcquireDue retrieves pending jobs whose run time has passed, oldest first.
// Rows are locked for the duration of the surrounding transaction; locked rows
// are skipped so concurrent workers divide the backlog between them.
func (p *PostgreSQLJobRepository) AcquireDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*queueDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, job_type, payload, signature, status, run_at, attempts, current_step, messages, last_error, completed_at, created_at, updated_at
			  FROM queued_jobs
			  WHERE status = $1 AND run_at <= $2
			  ORDER BY run_at ASC
			  LIMIT $3
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, queueDomain.JobStatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to acquire due jobs")
	}
	defer func() { _ = rows.Close() }()

	var jobs []*queueDomain.Job
	for rows.Next() {
		var job queueDomain.Job
		var messages string

		err := rows.Scan(
			&job.ID,
			&job.Type,
			&job.Payload,
			&job.Signature,
			&job.Status,
			&job.RunAt,
			&job.Attempts,
			&job.CurrentStep,
			&messages,
			&job.LastError,
			&job.CompletedAt,
			&job.CreatedAt,
			&job.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan job")
		}

		job.Messages, err = decodeMessages(messages)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate due jobs")
	}

	return jobs, nil
}

// Update persists the mutable fields of a job.
func (p *PostgreSQLJobRepository) Update(ctx context.Context, job *queueDomain.Job) error {
	querier := database.GetTx(ctx, p.db)

	messages, err := encodeMessages(job.Messages)
	if err != nil {
		return err
	}

	query := `UPDATE queued_jobs
			  SET payload = $1, status = $2, run_at = $3, attempts = $4, current_step = $5,
				  messages = $6, last_error = $7, completed_at = $8, updated_at = $9
			  WHERE id = $10`

	_, err = querier.ExecContext(
		ctx,
		query,
		job.Payload,
		job.Status,
		job.RunAt,
		job.Attempts,
		job.CurrentStep,
		messages,
		job.LastError,
		job.CompletedAt,
		time.Now().UTC(),
		job.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update job")
	}

	return nil
}

// GetByID retrieves a job by its id.
func (p *PostgreSQLJobRepository) GetByID(
	ctx context.Context,
	jobID uuid.UUID,
) (*queueDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, job_type, payload, signature, status, run_at, attempts, current_step, messages, last_error, completed_at, created_at, updated_at
			  FROM queued_jobs
			  WHERE id = $1`

	var job queueDomain.Job
	var messages string

	err := querier.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID,
		&job.Type,
		&job.Payload,
		&job.Signature,
		&job.Status,
		&job.RunAt,
		&job.Attempts,
		&job.CurrentStep,
		&messages,
		&job.LastError,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get job by id")
	}

	job.Messages, err = decodeMessages(messages)
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// ExistsPendingBySignature reports whether a pending job with the signature
// already exists. Used for best effort duplicate suppression on enqueue.
func (p *PostgreSQLJobRepository) ExistsPendingBySignature(
	ctx context.Context,
	signature string,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (SELECT 1 FROM queued_jobs WHERE signature = $1 AND status = $2)`

	var exists bool
	err := querier.QueryRowContext(ctx, query, signature, queueDomain.JobStatusPending).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check pending job signature")
	}

	return exists, nil
}

// NewPostgreSQLJobRepository creates a new PostgreSQL Job repository instance.
func NewPostgreSQLJobRepository(db *sql.DB) *PostgreSQLJobRepository {
	return &PostgreSQLJobRepository{db: db}
}
