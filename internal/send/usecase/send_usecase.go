// Package usecase implements the send business logic: processing send
// payloads against the provider and resubmitting stored failures.
package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/mailgun"
	sendDomain "github.com/allisson/mailsync/internal/send/domain"
)

// Config holds send use case configuration.
type Config struct {
	DefaultRecipient string
}

// MessageSender hands a message to the provider.
type MessageSender interface {
	Send(ctx context.Context, domain string, msg *mailgun.Message) (*mailgun.SendResponse, error)
}

// SubmissionWriter records message details on a tracked submission.
type SubmissionWriter interface {
	SetMessageDetails(ctx context.Context, submissionID uuid.UUID, messageID, recipient string) error
}

// SendUseCase implements business logic for sending messages.
type SendUseCase struct {
	config      Config
	sender      MessageSender
	submissions SubmissionWriter
	logger      *slog.Logger
}

// NewSendUseCase creates a new SendUseCase. The submission writer is optional;
// without one successful sends are not linked back to a submission.
func NewSendUseCase(
	config Config,
	sender MessageSender,
	submissions SubmissionWriter,
	logger *slog.Logger,
) *SendUseCase {
	return &SendUseCase{
		config:      config,
		sender:      sender,
		submissions: submissions,
		logger:      logger,
	}
}

// Process sends one payload and reports the outcome as a value. Payload
// problems are fatal (another attempt cannot fix them); provider and network
// errors are retryable. On success the provider message id is recorded on the
// linked submission, and a failure to record it does not fail the send.
func (uc *SendUseCase) Process(ctx context.Context, payload *sendDomain.Payload) sendDomain.Result {
	if payload == nil || payload.IsZero() {
		return sendDomain.FatalFailure("payload is empty, nothing to send")
	}

	if err := payload.Validate(); err != nil {
		return sendDomain.FatalFailure(fmt.Sprintf("invalid payload: %v", err))
	}

	parameters := make(map[string]string, len(payload.Parameters))
	for key, value := range payload.Parameters {
		parameters[key] = value
	}

	if parameters["to"] == "" {
		if uc.config.DefaultRecipient == "" {
			return sendDomain.FatalFailure("no recipient and no default recipient configured")
		}
		parameters["to"] = uc.config.DefaultRecipient
	}

	attachments, err := decodeAttachments(payload.Attachments)
	if err != nil {
		return sendDomain.FatalFailure(fmt.Sprintf("invalid attachment: %v", err))
	}

	response, err := uc.sender.Send(ctx, payload.Domain, &mailgun.Message{
		Parameters:  parameters,
		Attachments: attachments,
	})
	if err != nil {
		uc.logger.Error("send failed",
			slog.String("domain", payload.Domain),
			slog.String("recipient", parameters["to"]),
			slog.Any("error", err),
		)
		return sendDomain.RetryableFailure(fmt.Sprintf("send failed: %v", err))
	}

	messageID := mailgun.CleanMessageId(response.ID)

	uc.logger.Info("message sent",
		slog.String("domain", payload.Domain),
		slog.String("recipient", parameters["to"]),
		slog.String("message_id", messageID),
	)

	if uc.submissions != nil && payload.SubmissionID != nil {
		err := uc.submissions.SetMessageDetails(ctx, *payload.SubmissionID, messageID, parameters["to"])
		if err != nil {
			// The message is already out; losing the link is logged, not fatal.
			uc.logger.Error("failed to record message details on submission",
				slog.String("submission_id", payload.SubmissionID.String()),
				slog.String("message_id", messageID),
				slog.Any("error", err),
			)
		}
	}

	return sendDomain.Completed(messageID, fmt.Sprintf("OK %s", messageID))
}

// decodeAttachments converts base64 payload attachments into provider
// attachments.
func decodeAttachments(attachments []sendDomain.Attachment) ([]mailgun.Attachment, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	decoded := make([]mailgun.Attachment, 0, len(attachments))
	for _, attachment := range attachments {
		content, err := base64.StdEncoding.DecodeString(attachment.Content)
		if err != nil {
			return nil, fmt.Errorf("attachment %q: %w", attachment.Filename, err)
		}
		decoded = append(decoded, mailgun.Attachment{
			Filename: attachment.Filename,
			Content:  content,
		})
	}

	return decoded, nil
}
