package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	eventUsecase "github.com/allisson/mailsync/internal/event/usecase"
)

// RunCheckDeliveries reconciles stored failure events against the provider's
// delivered events. With event ids only those events are checked, otherwise
// all unresolved failures inside the configured window are. Supports both text
// and JSON output formats.
func RunCheckDeliveries(
	ctx context.Context,
	runner eventUsecase.DeliveryCheckRunner,
	logger *slog.Logger,
	writer io.Writer,
	eventIDs []string,
	format string,
) error {
	parsedIDs := make([]uuid.UUID, 0, len(eventIDs))
	for _, eventID := range eventIDs {
		parsed, err := uuid.Parse(eventID)
		if err != nil {
			return fmt.Errorf("invalid event id: %s", eventID)
		}
		parsedIDs = append(parsedIDs, parsed)
	}

	logger.Info("checking deliveries", slog.Int("event_ids", len(parsedIDs)))

	report, err := runner.Run(ctx, parsedIDs)
	if err != nil {
		return fmt.Errorf("failed to check deliveries: %w", err)
	}

	if format == "json" {
		return outputJSON(writer, report)
	}

	fmt.Fprintf(
		writer,
		"Checked %d event(s): %d resolved, %d unresolved, %d error(s)\n",
		report.Checked, report.Resolved, report.Unresolved, report.Errors,
	)
	return nil
}
