package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/http/dto"
	"factoryops.app/assistant/internal/service"
)

type MetricsHandler struct {
	metrics service.MetricsService
}

func NewMetricsHandler(metrics service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) OEE(c *gin.Context) {
	q, ok := bindMetricsQuery(c)
	if !ok {
		return
	}
	res, err := h.metrics.OEE(c.Request.Context(), q.ToQuery())
	if err != nil {
		respondError(c, err, "failed to calculate oee")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MetricsHandler) Scrap(c *gin.Context) {
	q, ok := bindMetricsQuery(c)
	if !ok {
		return
	}
	res, err := h.metrics.Scrap(c.Request.Context(), q.ToQuery())
	if err != nil {
		respondError(c, err, "failed to calculate scrap")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MetricsHandler) Quality(c *gin.Context) {
	q, ok := bindMetricsQuery(c)
	if !ok {
		return
	}
	res, err := h.metrics.Quality(c.Request.Context(), q.ToQuery())
	if err != nil {
		respondError(c, err, "failed to load quality issues")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MetricsHandler) Downtime(c *gin.Context) {
	q, ok := bindMetricsQuery(c)
	if !ok {
		return
	}
	res, err := h.metrics.Downtime(c.Request.Context(), q.ToQuery())
	if err != nil {
		respondError(c, err, "failed to analyze downtime")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MetricsHandler) Stats(c *gin.Context) {
	stats, err := h.metrics.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to describe production data")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func bindMetricsQuery(c *gin.Context) (dto.MetricsQuery, bool) {
	var q dto.MetricsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, false
	}
	return q, true
}
