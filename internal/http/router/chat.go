package router

import (
	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/http/handler"
)

func ChatRouter(router *gin.RouterGroup, handler *handler.ChatHandler) {
	router.POST("", handler.Chat)
	router.POST("/stream", handler.Stream)
	router.GET("/turns/:turn_id/events", handler.TurnEvents)
}
