package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/mailsync/internal/mailgun"
	sendDomain "github.com/allisson/mailsync/internal/send/domain"
)

// MockMessageSender is a mock implementation of MessageSender
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) Send(
	ctx context.Context,
	domain string,
	msg *mailgun.Message,
) (*mailgun.SendResponse, error) {
	args := m.Called(ctx, domain, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mailgun.SendResponse), args.Error(1)
}

// MockSubmissionWriter is a mock implementation of SubmissionWriter
type MockSubmissionWriter struct {
	mock.Mock
}

func (m *MockSubmissionWriter) SetMessageDetails(
	ctx context.Context,
	submissionID uuid.UUID,
	messageID, recipient string,
) error {
	args := m.Called(ctx, submissionID, messageID, recipient)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validPayload() *sendDomain.Payload {
	return &sendDomain.Payload{
		Domain: "example.com",
		Parameters: map[string]string{
			"to":      "user@example.com",
			"from":    "noreply@example.com",
			"subject": "hello",
			"text":    "hello there",
		},
	}
}

func TestSendUseCase_Process_EmptyPayload(t *testing.T) {
	uc := NewSendUseCase(Config{}, &MockMessageSender{}, nil, testLogger())

	result := uc.Process(context.Background(), &sendDomain.Payload{})

	assert.Equal(t, sendDomain.ResultFatalFailure, result.Status)
	assert.Contains(t, result.Message, "nothing to send")
}

func TestSendUseCase_Process_NilPayload(t *testing.T) {
	uc := NewSendUseCase(Config{}, &MockMessageSender{}, nil, testLogger())

	result := uc.Process(context.Background(), nil)

	assert.Equal(t, sendDomain.ResultFatalFailure, result.Status)
}

func TestSendUseCase_Process_InvalidPayload(t *testing.T) {
	uc := NewSendUseCase(Config{}, &MockMessageSender{}, nil, testLogger())

	payload := validPayload()
	delete(payload.Parameters, "from")

	result := uc.Process(context.Background(), payload)

	assert.Equal(t, sendDomain.ResultFatalFailure, result.Status)
	assert.Contains(t, result.Message, "invalid payload")
}

func TestSendUseCase_Process_Success(t *testing.T) {
	sender := &MockMessageSender{}
	uc := NewSendUseCase(Config{}, sender, nil, testLogger())

	sender.On("Send", mock.Anything, "example.com", mock.MatchedBy(func(msg *mailgun.Message) bool {
		return msg.Parameters["to"] == "user@example.com" && msg.Parameters["subject"] == "hello"
	})).Return(&mailgun.SendResponse{ID: "<msg-1@example.com>", Message: "Queued. Thank you."}, nil)

	result := uc.Process(context.Background(), validPayload())

	assert.True(t, result.Succeeded())
	assert.Equal(t, "msg-1@example.com", result.MessageID)
	assert.Equal(t, "OK msg-1@example.com", result.Message)

	sender.AssertExpectations(t)
}

func TestSendUseCase_Process_DefaultRecipient(t *testing.T) {
	sender := &MockMessageSender{}
	uc := NewSendUseCase(Config{DefaultRecipient: "fallback@example.com"}, sender, nil, testLogger())

	payload := validPayload()
	delete(payload.Parameters, "to")

	sender.On("Send", mock.Anything, "example.com", mock.MatchedBy(func(msg *mailgun.Message) bool {
		return msg.Parameters["to"] == "fallback@example.com"
	})).Return(&mailgun.SendResponse{ID: "<msg-1@example.com>"}, nil)

	result := uc.Process(context.Background(), payload)

	assert.True(t, result.Succeeded())
	// The payload itself stays untouched.
	assert.Empty(t, payload.Parameters["to"])

	sender.AssertExpectations(t)
}

func TestSendUseCase_Process_NoRecipientNoDefault(t *testing.T) {
	uc := NewSendUseCase(Config{}, &MockMessageSender{}, nil, testLogger())

	payload := validPayload()
	delete(payload.Parameters, "to")

	result := uc.Process(context.Background(), payload)

	assert.Equal(t, sendDomain.ResultFatalFailure, result.Status)
	assert.Contains(t, result.Message, "no recipient")
}

func TestSendUseCase_Process_WithAttachments(t *testing.T) {
	sender := &MockMessageSender{}
	uc := NewSendUseCase(Config{}, sender, nil, testLogger())

	payload := validPayload()
	payload.Attachments = []sendDomain.Attachment{
		{
			Filename: "report.pdf",
			Content:  base64.StdEncoding.EncodeToString([]byte("pdf-bytes")),
		},
	}

	sender.On("Send", mock.Anything, "example.com", mock.MatchedBy(func(msg *mailgun.Message) bool {
		return len(msg.Attachments) == 1 &&
			msg.Attachments[0].Filename == "report.pdf" &&
			string(msg.Attachments[0].Content) == "pdf-bytes"
	})).Return(&mailgun.SendResponse{ID: "<msg-1@example.com>"}, nil)

	result := uc.Process(context.Background(), payload)

	assert.True(t, result.Succeeded())
	sender.AssertExpectations(t)
}

func TestSendUseCase_Process_ProviderError(t *testing.T) {
	sender := &MockMessageSender{}
	uc := NewSendUseCase(Config{}, sender, nil, testLogger())

	sender.On("Send", mock.Anything, "example.com", mock.Anything).
		Return(nil, &mailgun.APIError{StatusCode: 500, Message: "internal error"})

	result := uc.Process(context.Background(), validPayload())

	assert.Equal(t, sendDomain.ResultRetryableFailure, result.Status)
	assert.True(t, result.Retryable())
	assert.Contains(t, result.Message, "send failed")
}

func TestSendUseCase_Process_RecordsMessageDetails(t *testing.T) {
	sender := &MockMessageSender{}
	submissions := &MockSubmissionWriter{}
	uc := NewSendUseCase(Config{}, sender, submissions, testLogger())

	submissionID := uuid.Must(uuid.NewV7())
	payload := validPayload()
	payload.SubmissionID = &submissionID

	sender.On("Send", mock.Anything, "example.com", mock.Anything).
		Return(&mailgun.SendResponse{ID: "<msg-1@example.com>"}, nil)
	submissions.On("SetMessageDetails", mock.Anything, submissionID, "msg-1@example.com", "user@example.com").
		Return(nil)

	result := uc.Process(context.Background(), payload)

	assert.True(t, result.Succeeded())
	submissions.AssertExpectations(t)
}

func TestSendUseCase_Process_SubmissionUpdateFailureStillSucceeds(t *testing.T) {
	sender := &MockMessageSender{}
	submissions := &MockSubmissionWriter{}
	uc := NewSendUseCase(Config{}, sender, submissions, testLogger())

	submissionID := uuid.Must(uuid.NewV7())
	payload := validPayload()
	payload.SubmissionID = &submissionID

	sender.On("Send", mock.Anything, "example.com", mock.Anything).
		Return(&mailgun.SendResponse{ID: "<msg-1@example.com>"}, nil)
	submissions.On("SetMessageDetails", mock.Anything, submissionID, mock.Anything, mock.Anything).
		Return(errors.New("database error"))

	// The message is already out, so the result is still a success.
	result := uc.Process(context.Background(), payload)

	assert.True(t, result.Succeeded())
}

func TestSendUseCase_Process_InvalidAttachmentContent(t *testing.T) {
	uc := NewSendUseCase(Config{}, &MockMessageSender{}, nil, testLogger())

	payload := validPayload()
	payload.Attachments = []sendDomain.Attachment{
		{Filename: "broken.bin", Content: "%%% not base64 %%%"},
	}

	result := uc.Process(context.Background(), payload)

	assert.Equal(t, sendDomain.ResultFatalFailure, result.Status)
}
