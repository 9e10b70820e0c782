package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/mailsync/internal/errors"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
	"github.com/allisson/mailsync/internal/testutil"
)

func TestNewPostgreSQLSubmissionRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLSubmissionRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLSubmissionRepository{}, repo)
}

func newTestSubmission() *submissionDomain.Submission {
	return submissionDomain.NewSubmission(
		"cron",
		"daily-report",
		"user@example.com",
		"example.com",
		`{"to":"user@example.com","from":"noreply@example.com","subject":"hello"}`,
	)
}

func TestPostgreSQLSubmissionRepository_Create(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSubmissionRepository(db)
	ctx := context.Background()

	submission := newTestSubmission()

	err := repo.Create(ctx, submission)
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, submission.ID, found.ID)
	assert.Equal(t, "cron", found.SourceType)
	assert.Equal(t, "daily-report", found.SourceID)
	assert.Equal(t, "user@example.com", found.Recipient)
	assert.Equal(t, "example.com", found.Domain)
	assert.Equal(t, submission.Parameters, found.Parameters)
	assert.Empty(t, found.MessageID)
}

func TestPostgreSQLSubmissionRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSubmissionRepository(db)

	found, err := repo.GetByID(context.Background(), uuid.Must(uuid.NewV7()))
	assert.Nil(t, found)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgreSQLSubmissionRepository_GetByMessageID(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSubmissionRepository(db)
	ctx := context.Background()

	older := newTestSubmission()
	older.MessageID = "msg-1@example.com"
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, older))

	newer := newTestSubmission()
	newer.MessageID = "msg-1@example.com"
	require.NoError(t, repo.Create(ctx, newer))

	// Two submissions can end up with the same message id after a resend; the
	// most recent one wins.
	found, err := repo.GetByMessageID(ctx, "msg-1@example.com")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, found.ID)
}

func TestPostgreSQLSubmissionRepository_GetByMessageID_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSubmissionRepository(db)

	found, err := repo.GetByMessageID(context.Background(), "missing@example.com")
	assert.Nil(t, found)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgreSQLSubmissionRepository_SetMessageDetails(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSubmissionRepository(db)
	ctx := context.Background()

	submission := newTestSubmission()
	submission.Recipient = ""
	require.NoError(t, repo.Create(ctx, submission))

	err := repo.SetMessageDetails(ctx, submission.ID, "msg-1@example.com", "fallback@example.com")
	require.NoError(t, err)

	found, err := repo.GetByID(ctx, submission.ID)
	require.NoError(t, err)
	assert.Equal(t, "msg-1@example.com", found.MessageID)
	assert.Equal(t, "fallback@example.com", found.Recipient)
	assert.True(t, found.UpdatedAt.After(found.CreatedAt) || found.UpdatedAt.Equal(found.CreatedAt))
}
