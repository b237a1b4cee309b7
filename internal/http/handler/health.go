package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/data"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	memory  Pinger
	source  data.Source
	backend string
}

func NewHealthHandler(memory Pinger, source data.Source, backend string) *HealthHandler {
	return &HealthHandler{memory: memory, source: source, backend: backend}
}

// Health reports 503 when the memory backend is unreachable or no production
// data is loaded.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	memoryOK := true
	if h.memory != nil {
		if err := h.memory.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "memory backend ping failed", "backend", h.backend, "error", err)
			memoryOK = false
		}
	}
	dataOK := h.source != nil && h.source.Snapshot() != nil

	status, code := "ok", http.StatusOK
	if !memoryOK || !dataOK {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":         status,
		"memory_backend": h.backend,
		"memory_ok":      memoryOK,
		"data_loaded":    dataOK,
	})
}
