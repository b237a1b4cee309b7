package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"

	"factoryops.app/assistant/common/id"
	"factoryops.app/assistant/common/logger"
	"factoryops.app/assistant/common/otel"
	"factoryops.app/assistant/core/config"
	"factoryops.app/assistant/internal/app"
	"factoryops.app/assistant/internal/http/handler"
	"factoryops.app/assistant/internal/http/middleware"
	httprouter "factoryops.app/assistant/internal/http/router"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, attribute.String("factory.name", cfg.Factory.Name))
	if err != nil {
		// Can't use slog yet: OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "factoryops assistant starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to start application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if cfg.Factory.WatchData {
		go func() {
			if err := application.Data.Watch(watchCtx); err != nil {
				slog.ErrorContext(ctx, "production data watcher stopped", "error", err)
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, application)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Chat turns make several model calls and stream; the per-call LLM
		// timeout bounds them instead.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	stopWatch()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, application *app.App) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	var events handler.TurnEventReader
	if application.Events != nil {
		events = application.Events
	}

	httprouter.SetupRoutes(router, application.Services, httprouter.RouterConfig{
		MemoryBackend: application.Stores.Backend(),
		MemoryPinger:  application.Stores,
		Source:        application.Data,
		TurnEvents:    events,
	})

	return router
}

const banner = `
  __            _                                
 / _| __ _  ___| |_ ___  _ __ _   _  ___  _ __  ___ 
| |_ / _' |/ __| __/ _ \| '__| | | |/ _ \| '_ \/ __|
|  _| (_| | (__| || (_) | |  | |_| | (_) | |_) \__ \
|_|  \__,_|\___|\__\___/|_|   \__, |\___/| .__/|___/
                              |___/      |_|        
`
