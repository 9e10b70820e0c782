// Package http provides HTTP handlers for submission lookups.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/mailsync/internal/httputil"
	"github.com/allisson/mailsync/internal/submission/http/dto"
	submissionUseCase "github.com/allisson/mailsync/internal/submission/usecase"
)

// StatsReader retrieves a submission together with its observed events.
type StatsReader interface {
	GetStats(ctx context.Context, submissionID uuid.UUID) (*submissionUseCase.SubmissionStats, error)
}

// SubmissionHandler handles HTTP requests for submission lookups.
type SubmissionHandler struct {
	stats  StatsReader
	logger *slog.Logger
}

// NewSubmissionHandler creates a new submission handler with required dependencies.
func NewSubmissionHandler(stats StatsReader, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		stats:  stats,
		logger: logger,
	}
}

// GetStatsHandler retrieves a submission with the event counts for its message.
// GET /v1/submissions/:id
// Returns 200 OK with the submission stats, or 404 when unknown.
func (h *SubmissionHandler) GetStatsHandler(c *gin.Context) {
	submissionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	stats, err := h.stats.GetStats(c.Request.Context(), submissionID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapStatsToResponse(stats))
}
