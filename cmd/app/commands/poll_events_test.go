package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	eventUsecase "github.com/allisson/mailsync/internal/event/usecase"
)

type MockEventPoller struct {
	mock.Mock
}

func (m *MockEventPoller) PollEvents(
	ctx context.Context,
	begin time.Time,
	filter string,
	resubmit *bool,
) (*eventUsecase.PollReport, error) {
	args := m.Called(ctx, begin, filter, resubmit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eventUsecase.PollReport), args.Error(1)
}

func TestRunPollEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		mockPoller := &MockEventPoller{}
		report := &eventUsecase.PollReport{Pages: 2, Fetched: 5, Stored: 4, Discarded: 1}
		mockPoller.On("PollEvents", ctx, mock.AnythingOfType("time.Time"), "failed", (*bool)(nil)).
			Return(report, nil)

		var out bytes.Buffer
		err := RunPollEvents(ctx, mockPoller, logger, &out, 24*time.Hour, "failed", nil, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Polled 2 page(s): 5 fetched, 4 stored")
		mockPoller.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockPoller := &MockEventPoller{}
		report := &eventUsecase.PollReport{Pages: 1, Fetched: 3, Stored: 3}
		mockPoller.On("PollEvents", ctx, mock.AnythingOfType("time.Time"), "", (*bool)(nil)).
			Return(report, nil)

		var out bytes.Buffer
		err := RunPollEvents(ctx, mockPoller, logger, &out, time.Hour, "", nil, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"fetched": 3`)
		require.Contains(t, out.String(), `"stored": 3`)
		mockPoller.AssertExpectations(t)
	})

	t.Run("resubmit-override", func(t *testing.T) {
		mockPoller := &MockEventPoller{}
		report := &eventUsecase.PollReport{Pages: 1, Fetched: 1, Stored: 1}
		resubmit := true
		mockPoller.On("PollEvents", ctx, mock.AnythingOfType("time.Time"), "", &resubmit).
			Return(report, nil)

		var out bytes.Buffer
		err := RunPollEvents(ctx, mockPoller, logger, &out, time.Hour, "", &resubmit, "text")

		require.NoError(t, err)
		mockPoller.AssertExpectations(t)
	})

	t.Run("invalid-since", func(t *testing.T) {
		mockPoller := &MockEventPoller{}
		err := RunPollEvents(ctx, mockPoller, logger, &bytes.Buffer{}, 0, "", nil, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "since must be a positive duration")
	})

	t.Run("poll-error", func(t *testing.T) {
		mockPoller := &MockEventPoller{}
		mockPoller.On("PollEvents", ctx, mock.AnythingOfType("time.Time"), "", (*bool)(nil)).
			Return(nil, context.DeadlineExceeded)

		err := RunPollEvents(ctx, mockPoller, logger, &bytes.Buffer{}, time.Hour, "", nil, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to poll events")
	})
}
