package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	eventUsecase "github.com/allisson/mailsync/internal/event/usecase"
)

// RunPollEvents fetches provider events from the last since duration and
// stores them locally. A non-nil resubmit overrides the configured
// resubmission toggle for this poll. Supports both text and JSON output
// formats.
func RunPollEvents(
	ctx context.Context,
	poller eventUsecase.EventPoller,
	logger *slog.Logger,
	writer io.Writer,
	since time.Duration,
	filter string,
	resubmit *bool,
	format string,
) error {
	if since <= 0 {
		return fmt.Errorf("since must be a positive duration, got: %s", since)
	}

	begin := time.Now().UTC().Add(-since)
	logger.Info("polling events",
		slog.Time("begin", begin),
		slog.String("filter", filter),
	)

	report, err := poller.PollEvents(ctx, begin, filter, resubmit)
	if err != nil {
		return fmt.Errorf("failed to poll events: %w", err)
	}

	if format == "json" {
		return outputJSON(writer, report)
	}

	fmt.Fprintf(
		writer,
		"Polled %d page(s): %d fetched, %d stored, %d discarded, %d resubmitted, %d error(s)\n",
		report.Pages, report.Fetched, report.Stored, report.Discarded, report.Resubmitted, report.Errors,
	)
	return nil
}

// outputJSON writes a value to the writer as indented JSON.
func outputJSON(writer io.Writer, value any) error {
	jsonBytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
