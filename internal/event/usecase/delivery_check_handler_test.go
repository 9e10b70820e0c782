package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	queueDomain "github.com/allisson/mailsync/internal/queue/domain"
)

// MockDeliveryCheckRunner is a mock implementation of DeliveryCheckRunner
type MockDeliveryCheckRunner struct {
	mock.Mock
}

func (m *MockDeliveryCheckRunner) Run(ctx context.Context, eventIDs []uuid.UUID) (*RunReport, error) {
	args := m.Called(ctx, eventIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RunReport), args.Error(1)
}

func (m *MockDeliveryCheckRunner) ScheduleNext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func deliveryCheckJob(payload string) *queueDomain.Job {
	return queueDomain.NewJob(queueDomain.JobTypeDeliveryCheck, payload, "", time.Now().UTC())
}

func TestDeliveryCheckHandler_Handle(t *testing.T) {
	runner := &MockDeliveryCheckRunner{}
	handler := NewDeliveryCheckHandler(runner, testLogger())

	runner.On("Run", mock.Anything, ([]uuid.UUID)(nil)).
		Return(&RunReport{Checked: 3, Resolved: 1, Unresolved: 2}, nil)
	runner.On("ScheduleNext", mock.Anything).Return(nil)

	outcome := handler.Handle(context.Background(), deliveryCheckJob("{}"))

	assert.Equal(t, queueDomain.OutcomeCompleted, outcome.Status)
	assert.Contains(t, outcome.Message, "checked 3")
	runner.AssertExpectations(t)
}

func TestDeliveryCheckHandler_Handle_RunErrorStillCompletes(t *testing.T) {
	runner := &MockDeliveryCheckRunner{}
	handler := NewDeliveryCheckHandler(runner, testLogger())

	runner.On("Run", mock.Anything, ([]uuid.UUID)(nil)).
		Return(nil, errors.New("database error"))
	runner.On("ScheduleNext", mock.Anything).Return(nil)

	// The next scheduled run covers the same window, so a broken run is
	// recorded and the job completes instead of retrying.
	outcome := handler.Handle(context.Background(), deliveryCheckJob(""))

	assert.Equal(t, queueDomain.OutcomeCompleted, outcome.Status)
	assert.Contains(t, outcome.Message, "delivery check failed")
	runner.AssertExpectations(t)
}

func TestDeliveryCheckHandler_Handle_NarrowedJobDoesNotReschedule(t *testing.T) {
	runner := &MockDeliveryCheckRunner{}
	handler := NewDeliveryCheckHandler(runner, testLogger())

	eventID := uuid.Must(uuid.NewV7())
	payload, err := json.Marshal(queueDomain.DeliveryCheckPayload{EventIDs: []uuid.UUID{eventID}})
	assert.NoError(t, err)

	runner.On("Run", mock.Anything, mock.MatchedBy(func(ids []uuid.UUID) bool {
		return len(ids) == 1 && ids[0] == eventID
	})).Return(&RunReport{Checked: 1, Resolved: 1}, nil)

	outcome := handler.Handle(context.Background(), deliveryCheckJob(string(payload)))

	assert.Equal(t, queueDomain.OutcomeCompleted, outcome.Status)
	runner.AssertNotCalled(t, "ScheduleNext", mock.Anything)
}

func TestDeliveryCheckHandler_Handle_ScheduleFailureStillCompletes(t *testing.T) {
	runner := &MockDeliveryCheckRunner{}
	handler := NewDeliveryCheckHandler(runner, testLogger())

	runner.On("Run", mock.Anything, ([]uuid.UUID)(nil)).Return(&RunReport{}, nil)
	runner.On("ScheduleNext", mock.Anything).Return(errors.New("queue unavailable"))

	outcome := handler.Handle(context.Background(), deliveryCheckJob("{}"))

	assert.Equal(t, queueDomain.OutcomeCompleted, outcome.Status)
}

func TestDeliveryCheckHandler_Handle_InvalidPayload(t *testing.T) {
	runner := &MockDeliveryCheckRunner{}
	handler := NewDeliveryCheckHandler(runner, testLogger())

	outcome := handler.Handle(context.Background(), deliveryCheckJob("{not json"))

	assert.Equal(t, queueDomain.OutcomeFailed, outcome.Status)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}
