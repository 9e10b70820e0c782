package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/database"
	apperrors "github.com/allisson/mailsync/internal/errors"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
)

// MySQLSubmissionRepository implements Submission persistence for MySQL databases.
type MySQLSubmissionRepository struct {
	db *sql.DB
}

// scanMySQLSubmission reads a submission row, converting the BINARY(16) id column.
func scanMySQLSubmission(row interface {
	Scan(dest ...interface{}) error
}) (*submissionDomain.Submission, error) {
	var submission submissionDomain.Submission
	var id []byte

	err := row.Scan(
		&id,
		&submission.SourceType,
		&submission.SourceID,
		&submission.Recipient,
		&submission.MessageID,
		&submission.Domain,
		&submission.Parameters,
		&submission.CreatedAt,
		&submission.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	submission.ID, err = uuid.FromBytes(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal submission id")
	}

	return &submission, nil
}

// Create inserts a new submission into the MySQL database.
func (m *MySQLSubmissionRepository) Create(
	ctx context.Context,
	submission *submissionDomain.Submission,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := submission.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal submission id")
	}

	query := `INSERT INTO submissions (id, source_type, source_id, recipient, message_id, domain, parameters, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		submission.SourceType,
		submission.SourceID,
		submission.Recipient,
		submission.MessageID,
		submission.Domain,
		submission.Parameters,
		submission.CreatedAt,
		submission.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create submission")
	}

	return nil
}

// GetByID retrieves a submission by its id.
func (m *MySQLSubmissionRepository) GetByID(
	ctx context.Context,
	submissionID uuid.UUID,
) (*submissionDomain.Submission, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := submissionID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal submission id")
	}

	query := `SELECT id, source_type, source_id, recipient, message_id, domain, parameters, created_at, updated_at
			  FROM submissions
			  WHERE id = ?`

	submission, err := scanMySQLSubmission(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get submission by id")
	}

	return submission, nil
}

// GetByMessageID retrieves the most recent submission carrying the provider
// message id.
func (m *MySQLSubmissionRepository) GetByMessageID(
	ctx context.Context,
	messageID string,
) (*submissionDomain.Submission, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, source_type, source_id, recipient, message_id, domain, parameters, created_at, updated_at
			  FROM submissions
			  WHERE message_id = ?
			  ORDER BY created_at DESC
			  LIMIT 1`

	submission, err := scanMySQLSubmission(querier.QueryRowContext(ctx, query, messageID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get submission by message id")
	}

	return submission, nil
}

// SetMessageDetails records the provider message id and final recipient after
// a successful send.
func (m *MySQLSubmissionRepository) SetMessageDetails(
	ctx context.Context,
	submissionID uuid.UUID,
	messageID string,
	recipient string,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := submissionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal submission id")
	}

	query := `UPDATE submissions
			  SET message_id = ?, recipient = ?, updated_at = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(ctx, query, messageID, recipient, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set submission message details")
	}

	return nil
}

// NewMySQLSubmissionRepository creates a new MySQL Submission repository instance.
func NewMySQLSubmissionRepository(db *sql.DB) *MySQLSubmissionRepository {
	return &MySQLSubmissionRepository{db: db}
}
