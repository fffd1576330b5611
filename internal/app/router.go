package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ridetrack/internal/handler"
	"ridetrack/internal/middleware"
	"ridetrack/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TrackingHandler *handler.TrackingHandler
	StreamHandler   *handler.StreamHandler
	GatewayHandler  *handler.GatewayHandler
	DriverHandler   *handler.DriverHandler
	Responses       redis.ResponseStoreInterface
	NewRelicApp     *newrelic.Application
	Logger          *slog.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	if deps.Responses != nil {
		v1.Use(middleware.IdempotencyMiddleware(deps.Responses, deps.Logger))
	}
	{
		// Tracking session routes.
		tracking := v1.Group("/tracking")
		{
			tracking.POST("/session", deps.TrackingHandler.StartSession)
			tracking.DELETE("/session", deps.TrackingHandler.StopSession)
			tracking.GET("/snapshot", deps.TrackingHandler.GetSnapshot)
			tracking.GET("/stream", deps.StreamHandler.Stream)

			tracking.POST("/actions/cancel", deps.TrackingHandler.RequestCancel)
			tracking.POST("/actions/cancel/confirm", deps.TrackingHandler.ConfirmCancel)
			tracking.POST("/actions/cancel/abort", deps.TrackingHandler.AbortCancel)
			tracking.POST("/actions/:action", deps.TrackingHandler.RunAction)
			tracking.POST("/driver/:action", deps.TrackingHandler.RunDriverAction)

			tracking.POST("/permission", deps.TrackingHandler.ReportPermission)
			tracking.POST("/location", deps.TrackingHandler.PushLocation)

			tracking.PUT("/fare", deps.TrackingHandler.SetFareQuery)
			tracking.GET("/fare", deps.TrackingHandler.GetFare)
			tracking.POST("/fare/dispatch", deps.TrackingHandler.DispatchOrder)
		}

		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("/:id/accept", deps.GatewayHandler.AcceptRide)
			rides.POST("/:id/status", deps.GatewayHandler.UpdateStatus)
			rides.POST("/:id/rate", deps.GatewayHandler.RateRide)
			rides.POST("/:id/messages", deps.GatewayHandler.SendMessage)
			rides.GET("/:id/messages", deps.GatewayHandler.ListMessages)
			rides.POST("/:id/messages/read", deps.GatewayHandler.MarkMessagesRead)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("/register", deps.DriverHandler.Register)
			drivers.POST("/location", deps.GatewayHandler.UpdateDriverLocation)
			drivers.POST("/offline", deps.GatewayHandler.SetDriverOffline)
		}

		v1.POST("/sos", deps.GatewayHandler.TriggerSOS)
		v1.GET("/fares/estimate", deps.GatewayHandler.EstimateFare)
	}

	return router
}
