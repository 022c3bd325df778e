package api

import (
	v1 "github.com/complytrack/complytrack/internal/api/v1"
	"github.com/complytrack/complytrack/internal/config"
	"github.com/complytrack/complytrack/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Integration *v1.IntegrationHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.OrganizationMiddleware)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	qb := router.Group("/integrations/quickbooks")
	{
		qb.POST("/connect", handlers.Integration.Connect)
		qb.GET("/callback", handlers.Integration.Callback)
		qb.DELETE("/connection", handlers.Integration.Disconnect)
		qb.GET("/status", handlers.Integration.Status)
		qb.GET("/customers", handlers.Integration.SearchCustomers)
		qb.POST("/customers/map", handlers.Integration.MapCustomer)
		qb.GET("/invoices", handlers.Integration.ListInvoices)
		qb.POST("/sync", handlers.Integration.Sync)
		qb.PUT("/settings", handlers.Integration.UpdateSettings)
		qb.GET("/settings", handlers.Integration.GetSettings)
	}
}
