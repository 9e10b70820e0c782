package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	sendDomain "github.com/allisson/mailsync/internal/send/domain"
	sendUsecase "github.com/allisson/mailsync/internal/send/usecase"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
)

// SubmissionTracker records a submission before its message is queued.
type SubmissionTracker interface {
	Track(
		ctx context.Context,
		sourceType, sourceID, recipient, domain, parameters string,
	) (*submissionDomain.Submission, error)
}

// SendMessageOptions holds the message fields collected from CLI flags.
type SendMessageOptions struct {
	Domain     string
	From       string
	To         string
	Subject    string
	Text       string
	HTML       string
	SourceType string
	SourceID   string
}

// RunSendMessage tracks a submission and queues a message send. The actual
// provider call happens in the queue worker, the same path HTTP sends take.
func RunSendMessage(
	ctx context.Context,
	tracker SubmissionTracker,
	enqueuer sendUsecase.JobEnqueuer,
	logger *slog.Logger,
	writer io.Writer,
	opts SendMessageOptions,
) error {
	parameters := map[string]string{
		"from":    opts.From,
		"subject": opts.Subject,
	}
	if opts.To != "" {
		parameters["to"] = opts.To
	}
	if opts.Text != "" {
		parameters["text"] = opts.Text
	}
	if opts.HTML != "" {
		parameters["html"] = opts.HTML
	}

	payload := &sendDomain.Payload{
		Domain:     opts.Domain,
		Parameters: parameters,
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	parametersJSON, err := json.Marshal(parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	submission, err := tracker.Track(
		ctx,
		opts.SourceType,
		opts.SourceID,
		opts.To,
		opts.Domain,
		string(parametersJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to track submission: %w", err)
	}

	payload.SubmissionID = &submission.ID

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	job, err := enqueuer.Enqueue(
		ctx,
		queueDomain.JobTypeSendMessage,
		string(payloadJSON),
		payload.Signature(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue send job: %w", err)
	}

	logger.Info("send job queued",
		slog.String("job_id", job.ID.String()),
		slog.String("submission_id", submission.ID.String()),
	)

	fmt.Fprintf(writer, "Queued send job %s (submission %s)\n", job.ID, submission.ID)
	return nil
}
