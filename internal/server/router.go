package server

import (
	"context"

	"github.com/abduss/filevault/internal/auth"
	"github.com/abduss/filevault/internal/config"
	"github.com/abduss/filevault/internal/file"
	"github.com/abduss/filevault/internal/logger"
	"github.com/abduss/filevault/internal/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether the metadata database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether the blob store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	Log         *zap.Logger
	DB          Pinger
	Blobs       HealthChecker
	AuthService *auth.Service
	FileService *file.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(log))
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService != nil {
		protected := api.Group("/")
		protected.Use(auth.AuthMiddleware(deps.AuthService))

		auth.RegisterRoutes(api, protected, deps.AuthService)

		if deps.FileService != nil {
			file.RegisterRoutes(protected, deps.FileService, auth.OwnerID)
		}
	}

	return router
}
