// Package usecase implements the submission business logic.
package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/allisson/mailsync/internal/errors"
	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
)

// SubmissionRepository defines submission persistence operations.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *submissionDomain.Submission) error
	GetByID(ctx context.Context, submissionID uuid.UUID) (*submissionDomain.Submission, error)
	GetByMessageID(ctx context.Context, messageID string) (*submissionDomain.Submission, error)
	SetMessageDetails(ctx context.Context, submissionID uuid.UUID, messageID, recipient string) error
}

// EventReader exposes the stored event lookups the submission views need.
type EventReader interface {
	EventCounts(ctx context.Context, messageID string) (map[eventDomain.EventType]int, error)
	HasDelivered(ctx context.Context, messageID string) (bool, error)
}

// SubmissionStats is a submission together with the stored provider events
// observed for its message.
type SubmissionStats struct {
	Submission  *submissionDomain.Submission
	EventCounts map[eventDomain.EventType]int
	Delivered   bool
}

// SubmissionUseCase implements business logic for tracking submissions.
type SubmissionUseCase struct {
	submissionRepo SubmissionRepository
	eventReader    EventReader
	logger         *slog.Logger
}

// NewSubmissionUseCase creates a new SubmissionUseCase.
func NewSubmissionUseCase(
	submissionRepo SubmissionRepository,
	eventReader EventReader,
	logger *slog.Logger,
) *SubmissionUseCase {
	return &SubmissionUseCase{
		submissionRepo: submissionRepo,
		eventReader:    eventReader,
		logger:         logger,
	}
}

// Track records a new submission before the message is handed to the provider.
func (uc *SubmissionUseCase) Track(
	ctx context.Context,
	sourceType, sourceID, recipient, domain, parameters string,
) (*submissionDomain.Submission, error) {
	if domain == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "domain is required")
	}

	submission := submissionDomain.NewSubmission(sourceType, sourceID, recipient, domain, parameters)
	if err := uc.submissionRepo.Create(ctx, submission); err != nil {
		return nil, err
	}

	uc.logger.Info("submission tracked",
		slog.String("submission_id", submission.ID.String()),
		slog.String("source_type", sourceType),
		slog.String("recipient", recipient),
	)

	return submission, nil
}

// GetByID retrieves a submission by its id.
func (uc *SubmissionUseCase) GetByID(
	ctx context.Context,
	submissionID uuid.UUID,
) (*submissionDomain.Submission, error) {
	return uc.submissionRepo.GetByID(ctx, submissionID)
}

// GetByMessageID retrieves the submission that produced the provider message.
func (uc *SubmissionUseCase) GetByMessageID(
	ctx context.Context,
	messageID string,
) (*submissionDomain.Submission, error) {
	return uc.submissionRepo.GetByMessageID(ctx, messageID)
}

// SetMessageDetails records the provider message id and final recipient after
// a successful send.
func (uc *SubmissionUseCase) SetMessageDetails(
	ctx context.Context,
	submissionID uuid.UUID,
	messageID, recipient string,
) error {
	return uc.submissionRepo.SetMessageDetails(ctx, submissionID, messageID, recipient)
}

// GetStats retrieves a submission together with per type counts of the events
// stored for its message and whether a delivery was observed.
func (uc *SubmissionUseCase) GetStats(
	ctx context.Context,
	submissionID uuid.UUID,
) (*SubmissionStats, error) {
	submission, err := uc.submissionRepo.GetByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	stats := &SubmissionStats{
		Submission:  submission,
		EventCounts: map[eventDomain.EventType]int{},
	}

	if submission.MessageID == "" {
		return stats, nil
	}

	counts, err := uc.eventReader.EventCounts(ctx, submission.MessageID)
	if err != nil {
		return nil, err
	}
	stats.EventCounts = counts

	delivered, err := uc.eventReader.HasDelivered(ctx, submission.MessageID)
	if err != nil {
		return nil, err
	}
	stats.Delivered = delivered

	return stats, nil
}
