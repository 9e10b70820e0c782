// Package usecase implements the job queue business logic: enqueueing jobs
// with duplicate suppression and the worker loop that dispatches due jobs to
// their registered handlers.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/database"
	apperrors "github.com/allisson/mailsync/internal/errors"
	"github.com/allisson/mailsync/internal/queue/domain"
)

// Config holds queue worker configuration.
type Config struct {
	Interval      time.Duration
	BatchSize     int
	MaxRetries    int
	RetryInterval time.Duration
}

// JobRepository defines job persistence operations.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	AcquireDue(ctx context.Context, now time.Time, limit int) ([]*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)
	ExistsPendingBySignature(ctx context.Context, signature string) (bool, error)
}

// Handler processes a single job of a registered type.
type Handler interface {
	Handle(ctx context.Context, job *domain.Job) domain.Outcome
}

// QueueUseCase implements business logic for the database backed job queue.
type QueueUseCase struct {
	config    Config
	txManager database.TxManager
	jobRepo   JobRepository
	handlers  map[domain.JobType]Handler
	logger    *slog.Logger
}

// NewQueueUseCase creates a new QueueUseCase.
func NewQueueUseCase(
	config Config,
	txManager database.TxManager,
	jobRepo JobRepository,
	logger *slog.Logger,
) *QueueUseCase {
	return &QueueUseCase{
		config:    config,
		txManager: txManager,
		jobRepo:   jobRepo,
		handlers:  make(map[domain.JobType]Handler),
		logger:    logger,
	}
}

// Register associates a handler with a job type. Must be called before Start.
func (uc *QueueUseCase) Register(jobType domain.JobType, handler Handler) {
	uc.handlers[jobType] = handler
}

// Enqueue stores a new pending job scheduled for runAt. When a non-empty
// signature is given and a pending job with the same signature already exists,
// no job is created and ErrConflict is returned. The check and the insert are
// not atomic, so a duplicate can slip through under concurrency; the
// suppression is best effort.
func (uc *QueueUseCase) Enqueue(
	ctx context.Context,
	jobType domain.JobType,
	payload string,
	signature string,
	runAt time.Time,
) (*domain.Job, error) {
	if signature != "" {
		exists, err := uc.jobRepo.ExistsPendingBySignature(ctx, signature)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.Wrap(apperrors.ErrConflict, "pending job with same signature exists")
		}
	}

	job := domain.NewJob(jobType, payload, signature, runAt)
	if err := uc.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	uc.logger.Info("job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", string(jobType)),
		slog.Time("run_at", runAt),
	)

	return job, nil
}

// ScheduleDeliveryCheck enqueues the daily delivery check job for runAt. An
// already pending delivery check is left alone.
func (uc *QueueUseCase) ScheduleDeliveryCheck(ctx context.Context, runAt time.Time) error {
	payload, err := json.Marshal(domain.DeliveryCheckPayload{})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode delivery check payload")
	}

	_, err = uc.Enqueue(ctx, domain.JobTypeDeliveryCheck, string(payload), "delivery-check:daily", runAt)
	if apperrors.Is(err, apperrors.ErrConflict) {
		return nil
	}
	return err
}

// Start starts the job processing loop.
func (uc *QueueUseCase) Start(ctx context.Context) error {
	uc.logger.Info("starting queue worker",
		slog.Duration("interval", uc.config.Interval),
		slog.Int("batch_size", uc.config.BatchSize),
	)

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("stopping queue worker")
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessJobs(ctx); err != nil {
				uc.logger.Error("failed to process jobs", slog.Any("error", err))
			}
		}
	}
}

// ProcessJobs acquires and processes a batch of due jobs in a transaction.
func (uc *QueueUseCase) ProcessJobs(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		jobs, err := uc.jobRepo.AcquireDue(ctx, now, uc.config.BatchSize)
		if err != nil {
			return err
		}

		if len(jobs) == 0 {
			return nil
		}

		uc.logger.Info("processing jobs", slog.Int("count", len(jobs)))

		for _, job := range jobs {
			if err := uc.processJob(ctx, job); err != nil {
				return err
			}
		}

		return nil
	})
}

// processJob dispatches a single job to its handler and persists the outcome.
func (uc *QueueUseCase) processJob(ctx context.Context, job *domain.Job) error {
	uc.logger.Info("processing job",
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", string(job.Type)),
		slog.Int("attempts", job.Attempts),
	)

	handler, ok := uc.handlers[job.Type]
	if !ok {
		errorMsg := fmt.Sprintf("no handler registered for job type %q", job.Type)
		job.Status = domain.JobStatusFailed
		job.LastError = &errorMsg
		job.AddMessage(errorMsg)
		return uc.jobRepo.Update(ctx, job)
	}

	job.Attempts++
	job.CurrentStep++
	outcome := handler.Handle(ctx, job)
	if outcome.Message != "" {
		job.AddMessage(outcome.Message)
	}

	switch outcome.Status {
	case domain.OutcomeCompleted:
		now := time.Now().UTC()
		job.Status = domain.JobStatusCompleted
		job.CompletedAt = &now
		job.LastError = nil
		if outcome.ClearPayload {
			job.Payload = ""
		}
	case domain.OutcomeRetry:
		errorMsg := outcome.Message
		job.LastError = &errorMsg
		if job.Attempts >= uc.config.MaxRetries {
			uc.logger.Error("job retries exhausted",
				slog.String("job_id", job.ID.String()),
				slog.String("job_type", string(job.Type)),
				slog.Int("attempts", job.Attempts),
			)
			job.Status = domain.JobStatusFailed
		} else {
			// Linear back-off: each attempt pushes the next run further out.
			job.RunAt = time.Now().UTC().Add(time.Duration(job.Attempts) * uc.config.RetryInterval)
		}
	case domain.OutcomeFailed:
		errorMsg := outcome.Message
		job.Status = domain.JobStatusFailed
		job.LastError = &errorMsg
	}

	return uc.jobRepo.Update(ctx, job)
}
