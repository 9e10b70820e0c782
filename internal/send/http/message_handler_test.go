package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/mailsync/internal/errors"
	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
	"github.com/allisson/mailsync/internal/send/http/dto"
	submissionDomain "github.com/allisson/mailsync/internal/submission/domain"
)

// MockSubmissionTracker is a mock implementation of SubmissionTracker
type MockSubmissionTracker struct {
	mock.Mock
}

func (m *MockSubmissionTracker) Track(
	ctx context.Context,
	sourceType, sourceID, recipient, domain, parameters string,
) (*submissionDomain.Submission, error) {
	args := m.Called(ctx, sourceType, sourceID, recipient, domain, parameters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*submissionDomain.Submission), args.Error(1)
}

// MockJobEnqueuer is a mock implementation of sendUseCase.JobEnqueuer
type MockJobEnqueuer struct {
	mock.Mock
}

func (m *MockJobEnqueuer) Enqueue(
	ctx context.Context,
	jobType queueDomain.JobType,
	payload string,
	signature string,
	runAt time.Time,
) (*queueDomain.Job, error) {
	args := m.Called(ctx, jobType, payload, signature, runAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*queueDomain.Job), args.Error(1)
}

func setupTestHandler(t *testing.T) (*MessageHandler, *MockSubmissionTracker, *MockJobEnqueuer) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	tracker := &MockSubmissionTracker{}
	enqueuer := &MockJobEnqueuer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewMessageHandler(tracker, enqueuer, logger), tracker, enqueuer
}

func createTestContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	return c, w
}

func validRequest() dto.SendMessageRequest {
	return dto.SendMessageRequest{
		SourceType: "cron",
		SourceID:   "daily-report",
		Domain:     "example.com",
		Parameters: map[string]string{
			"to":      "user@example.com",
			"from":    "noreply@example.com",
			"subject": "hello",
			"text":    "hi there",
		},
	}
}

func TestMessageHandler_SendHandler(t *testing.T) {
	handler, tracker, enqueuer := setupTestHandler(t)

	submission := submissionDomain.NewSubmission(
		"cron", "daily-report", "user@example.com", "example.com", "",
	)
	job := queueDomain.NewJob(queueDomain.JobTypeSendMessage, "", "", time.Now().UTC())

	tracker.On(
		"Track",
		mock.Anything,
		"cron",
		"daily-report",
		"user@example.com",
		"example.com",
		mock.AnythingOfType("string"),
	).Return(submission, nil)

	enqueuer.On(
		"Enqueue",
		mock.Anything,
		queueDomain.JobTypeSendMessage,
		mock.MatchedBy(func(payload string) bool {
			var decoded map[string]interface{}
			if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
				return false
			}
			return decoded["domain"] == "example.com" &&
				decoded["submission_id"] == submission.ID.String()
		}),
		mock.AnythingOfType("string"),
		mock.Anything,
	).Return(job, nil)

	c, w := createTestContext(http.MethodPost, "/v1/messages", validRequest())

	handler.SendHandler(c)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var response dto.SendMessageResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, job.ID.String(), response.JobID)
	assert.Equal(t, submission.ID.String(), response.SubmissionID)
	assert.Equal(t, "pending", response.Status)

	tracker.AssertExpectations(t)
	enqueuer.AssertExpectations(t)
}

func TestMessageHandler_SendHandler_InvalidJSON(t *testing.T) {
	handler, tracker, _ := setupTestHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.SendHandler(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	tracker.AssertNotCalled(t, "Track",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageHandler_SendHandler_ValidationError(t *testing.T) {
	handler, tracker, _ := setupTestHandler(t)

	request := validRequest()
	delete(request.Parameters, "from")

	c, w := createTestContext(http.MethodPost, "/v1/messages", request)

	handler.SendHandler(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	tracker.AssertNotCalled(t, "Track",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMessageHandler_SendHandler_DuplicateSend(t *testing.T) {
	handler, tracker, enqueuer := setupTestHandler(t)

	submission := submissionDomain.NewSubmission(
		"cron", "daily-report", "user@example.com", "example.com", "",
	)

	tracker.On("Track", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(submission, nil)
	enqueuer.On("Enqueue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperrors.Wrap(apperrors.ErrConflict, "pending job with same signature exists"))

	c, w := createTestContext(http.MethodPost, "/v1/messages", validRequest())

	handler.SendHandler(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMessageHandler_SendHandler_TrackError(t *testing.T) {
	handler, tracker, enqueuer := setupTestHandler(t)

	tracker.On("Track", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	c, w := createTestContext(http.MethodPost, "/v1/messages", validRequest())

	handler.SendHandler(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	enqueuer.AssertNotCalled(t, "Enqueue",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
