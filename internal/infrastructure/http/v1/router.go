// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"refbook/internal/domain/dictionary"
	"refbook/internal/infrastructure/http/v1/handlers"
	"refbook/internal/infrastructure/http/v1/middleware"
	"refbook/internal/infrastructure/storage/sqlite"
	"refbook/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	// Service is the dictionary service behind every data route.
	Service *dictionary.Service

	// Store is the local snapshot store (used for readiness checks).
	Store handlers.Pinger

	// Auditor serves item history; may be nil.
	Auditor *sqlite.Auditor

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Store)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	// API v1
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	{
		registerDictionaryRoutes(api, cfg)
		registerAdminRoutes(api, cfg)
	}

	return router
}

// registerDictionaryRoutes registers the dictionary (справочник) endpoints.
func registerDictionaryRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewDictionaryHandler(baseHandler, cfg.Service)

	rg.GET("/dictionaries", handler.Types)

	dict := rg.Group("/dictionaries/:type")
	{
		dict.GET("", handler.List)
		dict.POST("", handler.Create)
		dict.GET("/search", handler.Search)
		dict.POST("/filter", handler.Filter)
		dict.GET("/statistics", handler.Statistics)
		dict.POST("/validate", handler.Validate)
		dict.GET("/export", handler.Export)
		dict.GET("/template", handler.Template)
		dict.POST("/import", middleware.RequireRole("admin"), handler.Import)
		dict.POST("/bulk", handler.BulkCreate)
		dict.PUT("/bulk", handler.BulkUpdate)
		dict.POST("/bulk-delete", handler.BulkDelete)
		dict.GET("/:id", handler.Get)
		dict.PUT("/:id", handler.Update)
		dict.DELETE("/:id", handler.Delete)
	}
}

// registerAdminRoutes registers cache, mode and audit endpoints.
func registerAdminRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	handler := handlers.NewAdminHandler(baseHandler, cfg.Service, cfg.Auditor)

	admin := rg.Group("/admin")
	admin.Use(middleware.RequireRole("admin"))
	{
		admin.GET("/cache/stats", handler.CacheStats)
		admin.POST("/cache/clear", handler.CacheClear)
		admin.GET("/mode", handler.Mode)
		admin.PUT("/mode", handler.SetMode)
		admin.GET("/history/:type/:id", handler.History)
	}
}
