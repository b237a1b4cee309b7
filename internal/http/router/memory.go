package router

import (
	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/http/handler"
)

func MemoryRouter(router *gin.RouterGroup, handler *handler.MemoryHandler) {
	router.GET("/summary", handler.Summary)
	router.GET("/shift-summary", handler.ShiftSummary)
	router.GET("/followups", handler.Followups)

	investigations := router.Group("/investigations")
	{
		investigations.GET("", handler.Investigations)
		investigations.GET("/:id", handler.Investigation)
	}

	actions := router.Group("/actions")
	{
		actions.GET("", handler.Actions)
		actions.PATCH("/:id/impact", handler.RecordImpact)
	}
}
