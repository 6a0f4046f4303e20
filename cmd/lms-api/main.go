package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/neurons-lms/lms-api/api/swagger"
	"github.com/neurons-lms/lms-api/internal/handler"
	"github.com/neurons-lms/lms-api/internal/middleware"
	"github.com/neurons-lms/lms-api/internal/repository"
	"github.com/neurons-lms/lms-api/internal/service"
	"github.com/neurons-lms/lms-api/pkg/cache"
	"github.com/neurons-lms/lms-api/pkg/config"
	"github.com/neurons-lms/lms-api/pkg/database"
	"github.com/neurons-lms/lms-api/pkg/logger"
	corsmiddleware "github.com/neurons-lms/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/neurons-lms/lms-api/pkg/middleware/requestid"
	"github.com/neurons-lms/lms-api/pkg/storage"
)

// @title Neurons LMS API
// @version 1.0.0
// @description Course, enrollment and content management backend
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Catalog.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	contentRepo := repository.NewContentRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lms-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, enrollmentRepo, moduleRepo, userRepo, redisClient, cfg.Catalog.CacheTTL, metricsSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, metricsSvc, logr)
	moduleSvc := service.NewModuleService(moduleRepo, courseRepo, validate, logr)
	contentSvc := service.NewContentService(contentRepo, moduleRepo, files, signer, cfg.Uploads.MaxFileSizeBytes, cfg.Uploads.AllowedMIMEs, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc, courseSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	moduleHandler := handler.NewModuleHandler(moduleSvc)
	contentHandler := handler.NewContentHandler(contentSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/downloads/:token", contentHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/auth/logout", authHandler.Logout)
		authed.PUT("/auth/password", authHandler.ChangePassword)
		authed.GET("/auth/me", authHandler.Me)

		staff := authed.Group("/users", middleware.RequireStaff())
		{
			staff.GET("", userHandler.List)
			staff.GET("/:id", userHandler.Get)
			staff.POST("", userHandler.Create)
			staff.PUT("/:id", userHandler.Update)
		}
		authed.PUT("/users/:id/courses", middleware.RequireStaff(), userHandler.AssignCourses)

		authed.GET("/courses", courseHandler.List)
		authed.GET("/courses/:id", courseHandler.Get)
		authed.POST("/courses", middleware.RequireAdmin(), courseHandler.Create)
		authed.GET("/courses/:id/roster", middleware.RequireStaff(), courseHandler.Roster)
		authed.GET("/courses/:id/roster/export", middleware.RequireStaff(), courseHandler.ExportRoster)
		authed.POST("/courses/:id/enroll", enrollmentHandler.Enroll)
		authed.POST("/courses/:id/unenroll", enrollmentHandler.Unenroll)
		authed.POST("/courses/:id/students", middleware.RequireStaff(), enrollmentHandler.AdminEnroll)
		authed.GET("/courses/:id/modules", moduleHandler.ListByCourse)

		authed.GET("/modules/:id", moduleHandler.Get)
		authed.POST("/modules", middleware.RequireStaff(), moduleHandler.Create)
		authed.PUT("/modules/:id", middleware.RequireStaff(), moduleHandler.Update)
		authed.DELETE("/modules/:id", middleware.RequireStaff(), moduleHandler.Delete)
		authed.GET("/modules/:id/contents", contentHandler.ListByModule)

		authed.GET("/contents/:id", contentHandler.Get)
		authed.POST("/contents", middleware.RequireStaff(), contentHandler.Create)
		authed.PUT("/contents/:id", middleware.RequireStaff(), contentHandler.Update)
		authed.DELETE("/contents/:id", middleware.RequireStaff(), contentHandler.Delete)
		authed.POST("/contents/:id/file", middleware.RequireStaff(), contentHandler.Upload)
		authed.GET("/contents/:id/download", contentHandler.DownloadLink)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
