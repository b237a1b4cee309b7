package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/brain"
	"factoryops.app/assistant/internal/memory"
	"factoryops.app/assistant/internal/metrics"
	"factoryops.app/assistant/internal/queue"
	"factoryops.app/assistant/internal/service"
	"factoryops.app/assistant/internal/traceability"
)

var (
	badRequest = []error{
		brain.ErrEmptyMessage,
		service.ErrInvalidHistory,
		metrics.ErrInvalidDate,
		metrics.ErrInvalidRange,
		metrics.ErrInvalidSeverity,
		memory.ErrInvalidInput,
		traceability.ErrInvalidLimit,
	}
	notFound = []error{
		metrics.ErrNoData,
		memory.ErrInvestigationNotFound,
		memory.ErrActionNotFound,
		queue.ErrTurnNotFound,
		traceability.ErrSupplierNotFound,
		traceability.ErrBatchNotFound,
		traceability.ErrOrderNotFound,
	}
	conflict = []error{
		memory.ErrInvestigationClosed,
		memory.ErrInvalidTransition,
	}
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var terr *brain.TransportError
	if errors.As(err, &terr) {
		if terr.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	switch {
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error, msg string) {
	ctx := c.Request.Context()
	status := statusFor(err)

	switch {
	case status == http.StatusInternalServerError:
		slog.ErrorContext(ctx, msg, "error", err)
		c.JSON(status, gin.H{"error": msg})
	case status >= 500:
		slog.ErrorContext(ctx, msg, "error", err, "status", status)
		c.JSON(status, gin.H{"error": "language model unavailable, try again"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
