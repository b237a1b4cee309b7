package router

import (
	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/http/handler"
)

func MetricsRouter(router *gin.RouterGroup, handler *handler.MetricsHandler) {
	router.GET("/oee", handler.OEE)
	router.GET("/scrap", handler.Scrap)
	router.GET("/quality", handler.Quality)
	router.GET("/downtime", handler.Downtime)
}

func DataRouter(router *gin.RouterGroup, handler *handler.MetricsHandler) {
	router.GET("/stats", handler.Stats)
}
