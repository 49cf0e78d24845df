package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "catalog/api/swagger" // swagger docs
	"catalog/internal/auth"
	"catalog/internal/authz"
	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/handler"
	"catalog/internal/model"
	"catalog/internal/observability"
	"catalog/internal/repository"
	"catalog/internal/service"
	"catalog/internal/storage"
	"catalog/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// @title           Catalog API
// @version         1.0
// @description     Categories, products and product images behind role-based access control.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg)
	slog.SetDefault(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.NewConnection(cfg.DSN(), logger)
	if err != nil {
		return err
	}
	logger.Info("Connected to PostgreSQL successfully.")

	blobs, err := storage.New(ctx, cfg.Storage())
	if err != nil {
		return err
	}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)

	var cache authz.PermissionCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, permission cache and token revocation disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			cache = authz.NewRedisCache(client, cfg.PermissionCacheTTL)
			tokens.WithRevocations(auth.NewRedisRevocations(client))
		}
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	metrics := observability.NewMetrics()

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	imageRepo := repository.NewProductImageRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	tx := repository.NewTransactionManager(db)

	engine := authz.NewEngine(roleRepo, cache, logger)
	media := service.NewMediaManager(blobs, imageRepo, metrics, logger, cfg.MaxUploadBytes)

	roleService := service.NewRoleService(roleRepo, auditRepo, tx, engine, engine, logger)
	userService := service.NewUserService(service.UserDeps{
		Users:            userRepo,
		Roles:            roleRepo,
		Audit:            auditRepo,
		Tx:               tx,
		Authz:            engine,
		Permissions:      engine,
		Tokens:           tokens,
		RegistrationRole: cfg.RegistrationRole,
		Log:              logger,
	})
	catalogService := service.NewCatalogService(service.CatalogDeps{
		Categories: categoryRepo,
		Products:   productRepo,
		Images:     imageRepo,
		Audit:      auditRepo,
		Tx:         tx,
		Authz:      engine,
		Media:      media,
		Events:     hub,
		Log:        logger,
	})
	auditService := service.NewAuditService(auditRepo, engine)
	statisticsService := service.NewStatisticsService(statsRepo, engine)

	if cfg.SeedOnStart {
		if err := roleService.SeedDefaults(ctx); err != nil {
			return err
		}
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := userService.EnsureUser(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, model.RoleSuperAdmin); err != nil {
			return err
		}
	}

	var files http.FileSystem
	if local, ok := blobs.(*storage.LocalStore); ok {
		files = local.FileSystem()
	}

	router := handler.NewRouter(handler.RouterDeps{
		Users:       userService,
		Roles:       roleService,
		Audit:       auditService,
		Catalog:     catalogService,
		Statistics:  statisticsService,
		Tokens:      tokens,
		Hub:         hub,
		Metrics:     metrics,
		Files:       files,
		CORSOrigins: cfg.CORSOrigins,
		MaxBody:     cfg.MaxRequestBytes,
		Swagger:     cfg.SwaggerEnabled,
		Log:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "port", cfg.Port, "storage", cfg.Storage().Driver, "permission_cache", cache != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Shutting down")
	return srv.Shutdown(shutdownCtx)
}
