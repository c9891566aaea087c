package handler

import (
	"context"
	"log/slog"
	"net/http"

	"fieldops/internal/middleware"
	"fieldops/internal/service"
	"fieldops/internal/utils"
	"fieldops/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services bundles the service layer the HTTP API is built on
type Services struct {
	Auth      service.AuthService
	Requests  service.RequestService
	Lifecycle service.LifecycleService
	Dispatch  service.DispatchService
	Users     service.UserService
	Reports   service.ReportService
}

// RouterConfig holds the HTTP-level settings of the API
type RouterConfig struct {
	JWT                *utils.JWTUtil
	Identities         middleware.IdentityResolver
	Logger             *slog.Logger
	AllowOrigins       []string
	MaxMultipartMemory int64
	// HealthCheck reports whether the database answers. Nil means always
	// healthy.
	HealthCheck func(ctx context.Context) error
}

// NewRouter builds the gin engine with every route under /api/v1
func NewRouter(cfg RouterConfig, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(cfg.Logger), gin.Recovery())
	if cfg.MaxMultipartMemory > 0 {
		router.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) == 0 || (len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	jwtAuthMW := middleware.JWTAuthMiddleware(cfg.JWT, cfg.Identities, cfg.Logger)

	authHandler := NewAuthHandler(svc.Auth, cfg.Logger)
	requestHandler := NewRequestHandler(svc.Requests, svc.Reports, cfg.Logger)
	taskHandler := NewTaskHandler(svc.Lifecycle, svc.Reports, requestHandler, cfg.Logger)
	userHandler := NewUserHandler(svc.Users, cfg.Logger)
	adminHandler := NewAdminHandler(svc.Dispatch, svc.Lifecycle, svc.Users, svc.Reports, requestHandler, cfg.Logger)

	apiGroup := router.Group("/api/v1")
	authHandler.RegisterAuthRoutes(apiGroup)
	requestHandler.RegisterRequestRoutes(apiGroup, jwtAuthMW, middleware.CustomerMiddleware())
	taskHandler.RegisterTaskRoutes(apiGroup, jwtAuthMW, middleware.FieldWorkerMiddleware(), middleware.WorkerOrAdminMiddleware())
	userHandler.RegisterUserRoutes(apiGroup, jwtAuthMW)
	adminHandler.RegisterAdminRoutes(apiGroup, jwtAuthMW, middleware.AdminMiddleware())

	router.GET("/health", func(c *gin.Context) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, response.Error(http.StatusServiceUnavailable, "database unhealthy"))
				return
			}
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"db": "healthy"}))
	})

	return router
}
