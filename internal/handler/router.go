package handler

import (
	"log/slog"
	"net/http"

	"catalog/internal/auth"
	"catalog/internal/middleware"
	"catalog/internal/observability"
	"catalog/internal/service"
	"catalog/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterDeps is everything the HTTP surface needs. Hub, Metrics and Files
// are optional.
type RouterDeps struct {
	Users      service.UserService
	Roles      service.RoleService
	Audit      service.AuditService
	Catalog    service.CatalogService
	Statistics service.StatisticsService
	Tokens     *auth.TokenIssuer

	Hub     *websocket.Hub
	Metrics *observability.Metrics
	// Files serves locally stored blobs under /storage.
	Files http.FileSystem

	CORSOrigins []string
	MaxBody     int64
	Swagger     bool
	Log         *slog.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d RouterDeps) *gin.Engine {
	if d.Log == nil {
		d.Log = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(d.Metrics.Middleware())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	if len(d.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = d.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	if d.Swagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	if d.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			websocket.ServeWs(d.Hub, c, d.Tokens)
		})
	}
	if d.Files != nil {
		router.StaticFS("/storage", d.Files)
	}

	authn := middleware.Authenticate(d.Tokens)
	root := router.Group("")
	NewUserHandler(d.Users, d.Log).RegisterRoutes(root, authn)
	NewRoleHandler(d.Roles, d.Log).RegisterRoutes(root, authn)
	NewAuditHandler(d.Audit, d.Log).RegisterRoutes(root, authn)
	NewCatalogHandler(d.Catalog, d.MaxBody, d.Log).RegisterRoutes(root, authn)
	NewStatisticsHandler(d.Statistics, d.Log).RegisterRoutes(root, authn)

	return router
}
