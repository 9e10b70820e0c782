package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/allisson/mailsync/internal/errors"
	eventDomain "github.com/allisson/mailsync/internal/event/domain"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	sendDomain "github.com/allisson/mailsync/internal/send/domain"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
)

// ResubmitConfig holds resubmission configuration. PerMinute and Burst bound
// how fast failed messages are re-enqueued, so a provider outage does not turn
// into a thundering herd of resends when polling catches up.
type ResubmitConfig struct {
	PerMinute float64
	Burst     int
}

// SubmissionReader looks up the submission behind a provider message id.
type SubmissionReader interface {
	GetByMessageID(ctx context.Context, messageID string) (*submissionDomain.Submission, error)
}

// DeliveryReader reports whether a delivery was already observed for a message.
type DeliveryReader interface {
	HasDelivered(ctx context.Context, messageID string) (bool, error)
}

// JobEnqueuer stores a job for the queue worker.
type JobEnqueuer interface {
	Enqueue(
		ctx context.Context,
		jobType queueDomain.JobType,
		payload string,
		signature string,
		runAt time.Time,
	) (*queueDomain.Job, error)
}

// ResubmitUseCase re-enqueues failed messages for another send attempt. The
// whole flow is best effort: a resubmission is declined without error whenever
// the failure cannot or should not be resent. Duplicate suppression is
// check-then-act on the payload signature plus the rate limiter, not a hard
// guarantee.
type ResubmitUseCase struct {
	config      ResubmitConfig
	submissions SubmissionReader
	deliveries  DeliveryReader
	enqueuer    JobEnqueuer
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewResubmitUseCase creates a new ResubmitUseCase.
func NewResubmitUseCase(
	config ResubmitConfig,
	submissions SubmissionReader,
	deliveries DeliveryReader,
	enqueuer JobEnqueuer,
	logger *slog.Logger,
) *ResubmitUseCase {
	if config.PerMinute <= 0 {
		config.PerMinute = 6
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &ResubmitUseCase{
		config:      config,
		submissions: submissions,
		deliveries:  deliveries,
		enqueuer:    enqueuer,
		limiter:     rate.NewLimiter(rate.Limit(config.PerMinute/60.0), config.Burst),
		logger:      logger,
	}
}

// Resubmit enqueues a new send for the message behind a failed event. It
// declines (false, nil) when the event carries no message id, is not a
// failure, was delivered after all, has no retrievable submission or
// parameters, would exceed the rate limit, or an identical send is already
// pending.
func (uc *ResubmitUseCase) Resubmit(
	ctx context.Context,
	event *eventDomain.Event,
) (bool, error) {
	if event.MessageID == "" || !event.EventType.IsFailure() || event.DeliveryObserved {
		return false, nil
	}

	delivered, err := uc.deliveries.HasDelivered(ctx, event.MessageID)
	if err != nil {
		return false, err
	}
	if delivered {
		return false, nil
	}

	submission, err := uc.submissions.GetByMessageID(ctx, event.MessageID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			uc.logger.Debug("no submission for failed message",
				slog.String("message_id", event.MessageID),
			)
			return false, nil
		}
		return false, err
	}

	if submission.Parameters == "" {
		return false, nil
	}

	var parameters map[string]string
	if err := json.Unmarshal([]byte(submission.Parameters), &parameters); err != nil {
		return false, apperrors.Wrap(err, "failed to decode submission parameters")
	}

	payload := &sendDomain.Payload{
		Domain:       submission.Domain,
		Parameters:   parameters,
		SubmissionID: &submission.ID,
	}

	if !uc.limiter.Allow() {
		uc.logger.Warn("resubmission rate limited",
			slog.String("message_id", event.MessageID),
		)
		return false, nil
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to encode send payload")
	}

	_, err = uc.enqueuer.Enqueue(
		ctx,
		queueDomain.JobTypeSendMessage,
		string(payloadJSON),
		payload.Signature(),
		time.Now().UTC(),
	)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return false, nil
		}
		return false, err
	}

	uc.logger.Info("message resubmitted",
		slog.String("message_id", event.MessageID),
		slog.String("submission_id", submission.ID.String()),
	)

	return true, nil
}
