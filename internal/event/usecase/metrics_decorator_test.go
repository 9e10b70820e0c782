package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/mailsync/internal/errors"
	"github.com/allisson/mailsync/internal/metrics"
)

type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

type MockEventPoller struct {
	mock.Mock
}

func (m *MockEventPoller) PollEvents(
	ctx context.Context,
	begin time.Time,
	filter string,
	resubmit *bool,
) (*PollReport, error) {
	args := m.Called(ctx, begin, filter, resubmit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PollReport), args.Error(1)
}

func TestNewEventPollerWithMetrics(t *testing.T) {
	mockPoller := &MockEventPoller{}
	mockMetrics := &mockBusinessMetrics{}

	decorator := NewEventPollerWithMetrics(mockPoller, mockMetrics)

	assert.NotNil(t, decorator)
	assert.Implements(t, (*EventPoller)(nil), decorator)
}

func TestEventPollerWithMetrics_PollEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		mockPoller := &MockEventPoller{}
		mockMetrics := &mockBusinessMetrics{}

		begin := time.Now().UTC().Add(-time.Hour)
		expectedReport := &PollReport{Fetched: 3, Stored: 3}

		mockPoller.On("PollEvents", ctx, begin, "delivered", (*bool)(nil)).
			Return(expectedReport, nil).
			Once()

		mockMetrics.On("RecordOperation", ctx, "event", "poll_events", "success").
			Return().
			Once()

		mockMetrics.On("RecordDuration", ctx, "event", "poll_events", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		decorator := NewEventPollerWithMetrics(mockPoller, mockMetrics)
		report, err := decorator.PollEvents(ctx, begin, "delivered", nil)

		assert.NoError(t, err)
		assert.Equal(t, expectedReport, report)
		mockPoller.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		mockPoller := &MockEventPoller{}
		mockMetrics := &mockBusinessMetrics{}

		begin := time.Now().UTC().Add(-time.Hour)
		expectedError := errors.Wrap(errors.ErrProvider, "events request failed")

		mockPoller.On("PollEvents", ctx, begin, "", (*bool)(nil)).
			Return(nil, expectedError).
			Once()

		mockMetrics.On("RecordOperation", ctx, "event", "poll_events", "error").
			Return().
			Once()

		mockMetrics.On("RecordDuration", ctx, "event", "poll_events", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		decorator := NewEventPollerWithMetrics(mockPoller, mockMetrics)
		report, err := decorator.PollEvents(ctx, begin, "", nil)

		assert.Error(t, err)
		assert.Nil(t, report)
		mockPoller.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})
}

func TestDeliveryCheckRunnerWithMetrics_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetrics", func(t *testing.T) {
		mockRunner := &MockDeliveryCheckRunner{}
		mockMetrics := &mockBusinessMetrics{}

		expectedReport := &RunReport{Checked: 5, Resolved: 4, Unresolved: 1}

		mockRunner.On("Run", ctx, ([]uuid.UUID)(nil)).
			Return(expectedReport, nil).
			Once()

		mockMetrics.On("RecordOperation", ctx, "event", "delivery_check", "success").
			Return().
			Once()

		mockMetrics.On("RecordDuration", ctx, "event", "delivery_check", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()

		decorator := NewDeliveryCheckRunnerWithMetrics(mockRunner, mockMetrics)
		report, err := decorator.Run(ctx, nil)

		assert.NoError(t, err)
		assert.Equal(t, expectedReport, report)
		mockRunner.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		mockRunner := &MockDeliveryCheckRunner{}
		mockMetrics := &mockBusinessMetrics{}

		expectedError := errors.Wrap(errors.ErrProvider, "events request failed")

		mockRunner.On("Run", ctx, ([]uuid.UUID)(nil)).
			Return(nil, expectedError).
			Once()

		mockMetrics.On("RecordOperation", ctx, "event", "delivery_check", "error").
			Return().
			Once()

		mockMetrics.On("RecordDuration", ctx, "event", "delivery_check", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		decorator := NewDeliveryCheckRunnerWithMetrics(mockRunner, mockMetrics)
		report, err := decorator.Run(ctx, nil)

		assert.Error(t, err)
		assert.Nil(t, report)
		mockRunner.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})
}

func TestDeliveryCheckRunnerWithMetrics_ScheduleNext(t *testing.T) {
	ctx := context.Background()

	mockRunner := &MockDeliveryCheckRunner{}
	mockMetrics := &mockBusinessMetrics{}

	mockRunner.On("ScheduleNext", ctx).Return(nil).Once()

	decorator := NewDeliveryCheckRunnerWithMetrics(mockRunner, mockMetrics)

	assert.NoError(t, decorator.ScheduleNext(ctx))
	mockRunner.AssertExpectations(t)
	mockMetrics.AssertNotCalled(t, "RecordOperation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
