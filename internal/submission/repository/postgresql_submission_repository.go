// Package repository implements submission persistence.
// Repositories support both PostgreSQL and MySQL.
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

// PostgreSQLSubmissionRepository implements Submission persistence for PostgreSQL databases.
type PostgreSQLSubmissionRepository struct {
	db *sql.DB
}

// Create inserts a new submission into the PostgreSQL database.
func (p *PostgreSQLSubmissionRepository) Create(
	ctx context.Context,
	submission *submissionDomain.Submission,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO submissions (id, source_type, source_id, recipient, message_id, domain, parameters, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		submission.ID,
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
func (p *PostgreSQLSubmissionRepository) GetByID(
	ctx context.Context,
	submissionID uuid.UUID,
) (*submissionDomain.Submission, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, source_type, source_id, recipient, message_id, domain, parameters, created_at, updated_at
			  FROM submissions
			  WHERE id = $1`

	var submission submissionDomain.Submission
	err := querier.QueryRowContext(ctx, query, submissionID).Scan(
		&submission.ID,
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
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get submission by id")
	}

	return &submission, nil
}

// GetByMessageID retrieves the most recent submission carrying the provider
// message id.
func (p *PostgreSQLSubmissionRepository) GetByMessageID(
	ctx context.Context,
	messageID string,
) (*submissionDomain.Submission, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, source_type, source_id, recipient, message_id, domain, parameters, created_at, updated_at
			  FROM submissions
			  WHERE message_id = $1
			  ORDER BY created_at DESC
			  LIMIT 1`

	var submission submissionDomain.Submission
	err := querier.QueryRowContext(ctx, query, messageID).Scan(
		&submission.ID,
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
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get submission by message id")
	}

	return &submission, nil
}

// SetMessageDetails records the provider message id and final recipient after
// a successful send.
func (p *PostgreSQLSubmissionRepository) SetMessageDetails(
	ctx context.Context,
	submissionID uuid.UUID,
	messageID string,
	recipient string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE submissions
			  SET message_id = $1, recipient = $2, updated_at = $3
			  WHERE id = $4`

	_, err := querier.ExecContext(ctx, query, messageID, recipient, time.Now().UTC(), submissionID)
	if err != nil {
		return apperrors.Wrap(err, "failed to set submission message details")
	}

	return nil
}

// NewPostgreSQLSubmissionRepository creates a new PostgreSQL Submission repository instance.
func NewPostgreSQLSubmissionRepository(db *sql.DB) *PostgreSQLSubmissionRepository {
	return &PostgreSQLSubmissionRepository{db: db}
}
