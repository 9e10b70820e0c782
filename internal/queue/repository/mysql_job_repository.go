package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/database"
	apperrors "github.com/allisson/mailsync/internal/errors"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
)

// MySQLJobRepository implements Job persistence for MySQL databases.
type MySQLJobRepository struct {
	db *sql.DB
}

// scanMySQLJob reads a job row, converting the BINARY(16) id column.
func scanMySQLJob(row interface {
	Scan(dest ...interface{}) error
}) (*queueDomain.Job, error) {
	var job queueDomain.Job
	var id []byte
	var messages string

	err := row.Scan(
		&id,
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
		return nil, err
	}

	job.ID, err = uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal job id")
	}

	job.Messages, err = decodeMessages(messages)
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// Create inserts a new job into the MySQL database.
func (m *MySQLJobRepository) Create(ctx context.Context, job *queueDomain.Job) error {
	querier := database.GetTx(ctx, m.db)

	messages, err := encodeMessages(job.Messages)
	if err != nil {
		return err
	}

	id, err := job.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	query := `INSERT INTO queued_jobs (id, job_type, payload, signature, status, run_at, attempts, current_step, messages, last_error, completed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLJobRepository) AcquireDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*queueDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, job_type, payload, signature, status, run_at, attempts, current_step, messages, last_error, completed_at, created_at, updated_at
			  FROM queued_jobs
			  WHERE status = ? AND run_at <= ?
			  ORDER BY run_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, queueDomain.JobStatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to acquire due jobs")
	}
	defer func() { _ = rows.Close() }()

	var jobs []*queueDomain.Job
	for rows.Next() {
		job, err := scanMySQLJob(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate due jobs")
	}

	return jobs, nil
}

// Update persists the mutable fields of a job.
func (m *MySQLJobRepository) Update(ctx context.Context, job *queueDomain.Job) error {
	querier := database.GetTx(ctx, m.db)

	messages, err := encodeMessages(job.Messages)
	if err != nil {
		return err
	}

	id, err := job.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal job id")
	}

	query := `UPDATE queued_jobs
			  SET payload = ?, status = ?, run_at = ?, attempts = ?, current_step = ?,
				  messages = ?, last_error = ?, completed_at = ?, updated_at = ?
			  WHERE id = ?`

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
		id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update job")
	}

	return nil
}

// GetByID retrieves a job by its id.
func (m *MySQLJobRepository) GetByID(
	ctx context.Context,
	jobID uuid.UUID,
) (*queueDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := jobID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal job id")
	}

	query := `SELECT id, job_type, payload, signature, status, run_at, attempts, current_step, messages, last_error, completed_at, created_at, updated_at
			  FROM queued_jobs
			  WHERE id = ?`

	job, err := scanMySQLJob(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get job by id")
	}

	return job, nil
}

// ExistsPendingBySignature reports whether a pending job with the signature
// already exists. Used for best effort duplicate suppression on enqueue.
func (m *MySQLJobRepository) ExistsPendingBySignature(
	ctx context.Context,
	signature string,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (SELECT 1 FROM queued_jobs WHERE signature = ? AND status = ?)`

	var exists bool
	err := querier.QueryRowContext(ctx, query, signature, queueDomain.JobStatusPending).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check pending job signature")
	}

	return exists, nil
}

// NewMySQLJobRepository creates a new MySQL Job repository instance.
func NewMySQLJobRepository(db *sql.DB) *MySQLJobRepository {
	return &MySQLJobRepository{db: db}
}
