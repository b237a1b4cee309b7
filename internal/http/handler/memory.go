package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/http/dto"
	"factoryops.app/assistant/internal/model"
	"factoryops.app/assistant/internal/service"
)

type MemoryHandler struct {
	memory service.MemoryService
}

func NewMemoryHandler(memory service.MemoryService) *MemoryHandler {
	return &MemoryHandler{memory: memory}
}

func (h *MemoryHandler) Summary(c *gin.Context) {
	summary, err := h.memory.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to summarize memory")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *MemoryHandler) ShiftSummary(c *gin.Context) {
	summary, err := h.memory.ShiftSummary(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to build shift summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *MemoryHandler) Investigations(c *gin.Context) {
	var q dto.InvestigationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.memory.Investigations(c.Request.Context(), q.ToFilter())
	if err != nil {
		respondError(c, err, "failed to list investigations")
		return
	}
	c.JSON(http.StatusOK, dto.InvestigationListResponse{Investigations: list, Count: len(list)})
}

func (h *MemoryHandler) Investigation(c *gin.Context) {
	inv, err := h.memory.Investigation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load investigation")
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *MemoryHandler) Actions(c *gin.Context) {
	var q dto.ActionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.memory.Actions(c.Request.Context(), model.ActionFilter{MachineID: q.MachineID})
	if err != nil {
		respondError(c, err, "failed to list actions")
		return
	}
	c.JSON(http.StatusOK, dto.ActionListResponse{Actions: list, Count: len(list)})
}

func (h *MemoryHandler) Followups(c *gin.Context) {
	list, err := h.memory.PendingFollowups(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to list follow-ups")
		return
	}
	c.JSON(http.StatusOK, dto.ActionListResponse{Actions: list, Count: len(list)})
}

func (h *MemoryHandler) RecordImpact(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordImpactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid impact request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action, err := h.memory.RecordImpact(ctx, c.Param("id"), req.ToUpdate())
	if err != nil {
		respondError(c, err, "failed to record impact")
		return
	}
	c.JSON(http.StatusOK, action)
}
