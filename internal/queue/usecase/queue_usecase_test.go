package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/mailsync/internal/errors"
	"github.com/allisson/mailsync/internal/queue/domain"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) AcquireDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.Job, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobRepository) Update(ctx context.Context, job *domain.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepository) ExistsPendingBySignature(
	ctx context.Context,
	signature string,
) (bool, error) {
	args := m.Called(ctx, signature)
	return args.Bool(0), args.Error(1)
}

// MockHandler is a mock implementation of Handler
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Handle(ctx context.Context, job *domain.Job) domain.Outcome {
	args := m.Called(ctx, job)
	return args.Get(0).(domain.Outcome)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		Interval:      100 * time.Millisecond,
		BatchSize:     10,
		MaxRetries:    3,
		RetryInterval: time.Minute,
	}
}

func TestQueueUseCase_Enqueue(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.Job) bool {
		return job.Type == domain.JobTypeSendMessage &&
			job.Payload == `{"domain":"example.com"}` &&
			job.Status == domain.JobStatusPending
	})).Return(nil)

	job, err := uc.Enqueue(
		context.Background(),
		domain.JobTypeSendMessage,
		`{"domain":"example.com"}`,
		"",
		time.Now().UTC(),
	)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, job.ID)

	jobRepo.AssertExpectations(t)
	jobRepo.AssertNotCalled(t, "ExistsPendingBySignature", mock.Anything, mock.Anything)
}

func TestQueueUseCase_Enqueue_DuplicateSignature(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	jobRepo.On("ExistsPendingBySignature", mock.Anything, "sig-1").Return(true, nil)

	job, err := uc.Enqueue(
		context.Background(),
		domain.JobTypeSendMessage,
		`{"domain":"example.com"}`,
		"sig-1",
		time.Now().UTC(),
	)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestQueueUseCase_ScheduleDeliveryCheck(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	runAt := time.Now().UTC().Add(time.Hour)

	jobRepo.On("ExistsPendingBySignature", mock.Anything, "delivery-check:daily").Return(false, nil)
	jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(job *domain.Job) bool {
		return job.Type == domain.JobTypeDeliveryCheck && job.RunAt.Equal(runAt)
	})).Return(nil)

	err := uc.ScheduleDeliveryCheck(context.Background(), runAt)
	require.NoError(t, err)

	jobRepo.AssertExpectations(t)
}

func TestQueueUseCase_ScheduleDeliveryCheck_AlreadyPending(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	jobRepo.On("ExistsPendingBySignature", mock.Anything, "delivery-check:daily").Return(true, nil)

	err := uc.ScheduleDeliveryCheck(context.Background(), time.Now().UTC())
	assert.NoError(t, err)

	jobRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestQueueUseCase_ProcessJobs(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	handler := &MockHandler{}

	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())
	uc.Register(domain.JobTypeSendMessage, handler)

	job := domain.NewJob(domain.JobTypeSendMessage, `{"domain":"example.com"}`, "", time.Now().UTC())

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).Return([]*domain.Job{job}, nil)
	handler.On("Handle", mock.Anything, job).Return(domain.Outcome{
		Status:       domain.OutcomeCompleted,
		Message:      "OK msg-1@example.com",
		ClearPayload: true,
	})
	jobRepo.On("Update", mock.Anything, job).Return(nil)

	err := uc.ProcessJobs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, 1, job.CurrentStep)
	assert.Empty(t, job.Payload)
	assert.Nil(t, job.LastError)
	assert.NotNil(t, job.CompletedAt)
	assert.Contains(t, job.Messages, "OK msg-1@example.com")

	jobRepo.AssertExpectations(t)
	handler.AssertExpectations(t)
}

func TestQueueUseCase_ProcessJobs_Empty(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).Return([]*domain.Job{}, nil)

	err := uc.ProcessJobs(context.Background())
	assert.NoError(t, err)

	jobRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestQueueUseCase_ProcessJobs_Retry(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	handler := &MockHandler{}

	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())
	uc.Register(domain.JobTypeSendMessage, handler)

	job := domain.NewJob(domain.JobTypeSendMessage, `{"domain":"example.com"}`, "", time.Now().UTC())

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).Return([]*domain.Job{job}, nil)
	handler.On("Handle", mock.Anything, job).Return(domain.Retry("send failed: timeout"))
	jobRepo.On("Update", mock.Anything, job).Return(nil)

	before := time.Now().UTC()
	err := uc.ProcessJobs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, 1, job.CurrentStep)
	require.NotNil(t, job.LastError)
	assert.Equal(t, "send failed: timeout", *job.LastError)
	// First retry is pushed out by one retry interval.
	assert.WithinDuration(t, before.Add(time.Minute), job.RunAt, 5*time.Second)
}

func TestQueueUseCase_ProcessJobs_RetriesExhausted(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	handler := &MockHandler{}

	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())
	uc.Register(domain.JobTypeSendMessage, handler)

	job := domain.NewJob(domain.JobTypeSendMessage, `{"domain":"example.com"}`, "", time.Now().UTC())
	job.Attempts = 2

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).Return([]*domain.Job{job}, nil)
	handler.On("Handle", mock.Anything, job).Return(domain.Retry("send failed: timeout"))
	jobRepo.On("Update", mock.Anything, job).Return(nil)

	err := uc.ProcessJobs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, 3, job.Attempts)
}

func TestQueueUseCase_ProcessJobs_FatalOutcome(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	handler := &MockHandler{}

	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())
	uc.Register(domain.JobTypeSendMessage, handler)

	job := domain.NewJob(domain.JobTypeSendMessage, "{not json", "", time.Now().UTC())

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).Return([]*domain.Job{job}, nil)
	handler.On("Handle", mock.Anything, job).Return(domain.Failed("failed to decode send payload"))
	jobRepo.On("Update", mock.Anything, job).Return(nil)

	err := uc.ProcessJobs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.LastError)
	assert.Equal(t, "failed to decode send payload", *job.LastError)
}

func TestQueueUseCase_ProcessJobs_MissingHandler(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	job := domain.NewJob(domain.JobTypeDeliveryCheck, "{}", "", time.Now().UTC())

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).Return([]*domain.Job{job}, nil)
	jobRepo.On("Update", mock.Anything, job).Return(nil)

	err := uc.ProcessJobs(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, 0, job.Attempts)
	require.NotNil(t, job.LastError)
	assert.Contains(t, *job.LastError, "no handler registered")
}

func TestQueueUseCase_ProcessJobs_AcquireError(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).
		Return(nil, errors.New("database error"))

	err := uc.ProcessJobs(context.Background())
	assert.Error(t, err)
}

func TestQueueUseCase_Start_StopsOnContextCancel(t *testing.T) {
	txManager := &MockTxManager{}
	jobRepo := &MockJobRepository{}
	uc := NewQueueUseCase(testConfig(), txManager, jobRepo, testLogger())

	txManager.On("WithTx", mock.Anything, mock.Anything).Return(nil).Maybe()
	jobRepo.On("AcquireDue", mock.Anything, mock.Anything, 10).Return([]*domain.Job{}, nil).Maybe()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	err := uc.Start(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
