package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/http/dto"
	"factoryops.app/assistant/internal/service"
)

type TraceabilityHandler struct {
	trace service.TraceabilityService
}

func NewTraceabilityHandler(trace service.TraceabilityService) *TraceabilityHandler {
	return &TraceabilityHandler{trace: trace}
}

func (h *TraceabilityHandler) Suppliers(c *gin.Context) {
	var q dto.SupplierListQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := h.trace.Suppliers(c.Request.Context(), q.Status)
	if err != nil {
		respondError(c, err, "failed to list suppliers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suppliers": res, "count": len(res)})
}

func (h *TraceabilityHandler) Supplier(c *gin.Context) {
	res, err := h.trace.Supplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load supplier")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TraceabilityHandler) SupplierImpact(c *gin.Context) {
	var q dto.DateRangeQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := h.trace.SupplierImpact(c.Request.Context(), c.Param("id"), q.ToRange())
	if err != nil {
		respondError(c, err, "failed to analyze supplier impact")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TraceabilityHandler) Batches(c *gin.Context) {
	var q dto.BatchListQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := h.trace.Batches(c.Request.Context(), q.ToFilter())
	if err != nil {
		respondError(c, err, "failed to list batches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": res, "count": len(res)})
}

func (h *TraceabilityHandler) Batch(c *gin.Context) {
	res, err := h.trace.Batch(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load batch")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TraceabilityHandler) BackwardTrace(c *gin.Context) {
	res, err := h.trace.BackwardTrace(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		respondError(c, err, "failed to trace batch")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TraceabilityHandler) ForwardTrace(c *gin.Context) {
	var q dto.DateRangeQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := h.trace.ForwardTrace(c.Request.Context(), c.Param("supplier_id"), q.ToRange())
	if err != nil {
		respondError(c, err, "failed to trace supplier")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TraceabilityHandler) Orders(c *gin.Context) {
	var q dto.OrderListQuery
	if !bindQuery(c, &q) {
		return
	}
	res, err := h.trace.Orders(c.Request.Context(), q.ToFilter())
	if err != nil {
		respondError(c, err, "failed to list orders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": res, "count": len(res)})
}

func (h *TraceabilityHandler) Order(c *gin.Context) {
	res, err := h.trace.Order(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load order")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TraceabilityHandler) OrderBatches(c *gin.Context) {
	id := c.Param("id")
	res, err := h.trace.OrderBatches(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to list order batches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "batches": res, "count": len(res)})
}

func bindQuery(c *gin.Context, q any) bool {
	if err := c.ShouldBindQuery(q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
