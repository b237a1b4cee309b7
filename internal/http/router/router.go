package router

import (
	"github.com/gin-gonic/gin"

	"factoryops.app/assistant/internal/data"
	"factoryops.app/assistant/internal/http/handler"
	"factoryops.app/assistant/internal/service"
)

type RouterConfig struct {
	MemoryBackend string
	MemoryPinger  handler.Pinger
	Source        data.Source
	TurnEvents    handler.TurnEventReader // nil without redis
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	healthHandler := handler.NewHealthHandler(cfg.MemoryPinger, cfg.Source, cfg.MemoryBackend)
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		chatHandler := handler.NewChatHandler(services.Chat(), cfg.TurnEvents)
		ChatRouter(v1.Group("/chat"), chatHandler)

		metricsHandler := handler.NewMetricsHandler(services.Metrics())
		MetricsRouter(v1.Group("/metrics"), metricsHandler)
		DataRouter(v1.Group("/data"), metricsHandler)

		memoryHandler := handler.NewMemoryHandler(services.Memory())
		MemoryRouter(v1.Group("/memory"), memoryHandler)

		traceHandler := handler.NewTraceabilityHandler(services.Traceability())
		TraceabilityRouter(v1, traceHandler)
	}
}
