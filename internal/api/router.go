package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/chiayu-lin/camgrid/internal/app"
	"github.com/chiayu-lin/camgrid/internal/handlers"
	"github.com/chiayu-lin/camgrid/internal/middleware"
	"github.com/chiayu-lin/camgrid/internal/services"
	"github.com/chiayu-lin/camgrid/internal/xcms"
)

// NewRouter wires services, handlers and middleware into a gin engine.
func NewRouter(db *gorm.DB, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, errors.New("api: db is required")
	}
	if cfg == nil {
		return nil, errors.New("api: config is required")
	}

	tenantSvc, err := services.NewTenantService(db)
	if err != nil {
		return nil, err
	}
	cameraSvc, err := services.NewCameraService(db)
	if err != nil {
		return nil, err
	}
	grantSvc, err := services.NewGrantService(db)
	if err != nil {
		return nil, err
	}
	resolutionSvc, err := services.NewResolutionService(db)
	if err != nil {
		return nil, err
	}
	accessSvc, err := services.NewAccessService(db)
	if err != nil {
		return nil, err
	}
	backend, err := xcms.NewClient(cfg.XCMSClientConfig())
	if err != nil {
		return nil, err
	}

	defaultTenant := cfg.Tenancy.DefaultTenant

	cameraHandler, err := handlers.NewCameraHandler(resolutionSvc, defaultTenant)
	if err != nil {
		return nil, err
	}
	streamHandler, err := handlers.NewStreamHandler(accessSvc, cameraSvc, backend, defaultTenant)
	if err != nil {
		return nil, err
	}
	grantHandler, err := handlers.NewGrantHandler(grantSvc)
	if err != nil {
		return nil, err
	}
	tenantHandler, err := handlers.NewTenantHandler(tenantSvc)
	if err != nil {
		return nil, err
	}
	registryHandler, err := handlers.NewRegistryHandler(cameraSvc)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(),
		middleware.Logger(),
		middleware.Metrics(),
		middleware.CORS(),
		middleware.SecurityHeaders(),
	)
	router.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		router.GET("/health", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		router.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	apiGroup := router.Group("/api")
	{
		cameras := apiGroup.Group("/cameras")
		{
			cameras.GET("/authorized", cameraHandler.Authorized)
			cameras.GET("/:id/streams", streamHandler.StreamURLs)
			cameras.GET("/:id/events", streamHandler.Events)
		}

		admin := apiGroup.Group("/admin")
		{
			admin.POST("/grants", grantHandler.Create)
			admin.DELETE("/grants", grantHandler.Revoke)
			admin.GET("/grants", grantHandler.List)

			admin.POST("/tenants", tenantHandler.Create)
			admin.GET("/tenants", tenantHandler.List)
			admin.POST("/tenants/:id/suspend", tenantHandler.Suspend)
			admin.POST("/tenants/:id/reactivate", tenantHandler.Reactivate)

			admin.POST("/cameras", registryHandler.Register)
			admin.GET("/cameras", registryHandler.ListByOwner)
			admin.POST("/cameras/sync", registryHandler.Sync)
			admin.PUT("/cameras/:id/status", registryHandler.UpdateStatus)
			admin.PUT("/cameras/:id/owner", registryHandler.ReassignOwner)
			admin.DELETE("/cameras/:id", registryHandler.Deactivate)
		}
	}

	return router, nil
}
