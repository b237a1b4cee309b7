package router

import (
	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/http/handler"
)

func TraceabilityRouter(router *gin.RouterGroup, handler *handler.TraceabilityHandler) {
	suppliers := router.Group("/suppliers")
	suppliers.GET("", handler.Suppliers)
	suppliers.GET("/:id", handler.Supplier)
	suppliers.GET("/:id/impact", handler.SupplierImpact)

	batches := router.Group("/batches")
	batches.GET("", handler.Batches)
	batches.GET("/:id", handler.Batch)

	trace := router.Group("/traceability")
	trace.GET("/backward/:batch_id", handler.BackwardTrace)
	trace.GET("/forward/:supplier_id", handler.ForwardTrace)

	orders := router.Group("/orders")
	orders.GET("", handler.Orders)
	orders.GET("/:id", handler.Order)
	orders.GET("/:id/batches", handler.OrderBatches)
}
