package api

import (
	"github.com/Conceptual-Machines/aideas-relay/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/aideas-relay/internal/api/middleware"
	"github.com/Conceptual-Machines/aideas-relay/internal/config"
	"github.com/Conceptual-Machines/aideas-relay/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the process-wide services the routes need
type Dependencies struct {
	Generator handlers.Generator
	Providers handlers.ProviderNames
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer
}

func SetupRouter(cfg *config.Config, deps Dependencies, version string) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking())

	if deps.Collector != nil {
		router.Use(apimiddleware.PrometheusMetrics(deps.Collector))
	}

	router.Use(apimiddleware.CORS(cfg.CORSAllowedOrigins))

	// Health check
	healthHandler := handlers.NewHealthHandler(deps.Providers)
	router.GET("/health", healthHandler.HealthCheck)

	// Music event socket
	socketHandler := handlers.NewSocketHandler(deps.Generator, deps.Collector, cfg.CORSAllowedOrigins)
	router.GET(handlers.SocketPath, socketHandler.Serve)

	// Metrics endpoints
	metricsHandler := handlers.NewMetricsHandler(version, socketHandler)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}
