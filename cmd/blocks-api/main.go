package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/campuskit/blocks-api/api/swagger"
	"github.com/campuskit/blocks-api/internal/handler"
	"github.com/campuskit/blocks-api/internal/middleware"
	"github.com/campuskit/blocks-api/internal/repository"
	"github.com/campuskit/blocks-api/internal/service"
	"github.com/campuskit/blocks-api/pkg/cache"
	"github.com/campuskit/blocks-api/pkg/config"
	"github.com/campuskit/blocks-api/pkg/database"
	"github.com/campuskit/blocks-api/pkg/logger"
	corsmiddleware "github.com/campuskit/blocks-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/blocks-api/pkg/middleware/requestid"
	"github.com/campuskit/blocks-api/pkg/storage"
)

// @title CampusKit Blocks API
// @version 1.0.0
// @description Block section capacity assignment service
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Env, cfg.Log)
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()

	groupRepo := repository.NewBlockGroupRepository(db)
	sectionRepo := repository.NewBlockSectionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Dashboard.CacheTTL, logr, false)
	}

	auditSvc := service.NewAuditService(auditRepo, cfg.Audit, logr)
	auditCtx, stopAudit := context.WithCancel(context.Background())
	auditSvc.Start(auditCtx)

	authSvc := service.NewAuthService(cfg.JWT, logr)
	dashboardSvc := service.NewDashboardService(groupRepo, sectionRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	resolutionSvc := service.NewResolutionService(assignmentRepo, groupRepo, sectionRepo, metricsSvc, auditSvc, dashboardSvc, service.ResolutionConfig{
		SessionTTL:        cfg.Blocks.ResolutionTTL,
		DefaultMaxOvercap: cfg.Blocks.DefaultMaxOvercap,
	}, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, groupRepo, sectionRepo, studentRepo, resolutionSvc, metricsSvc, auditSvc, dashboardSvc, service.AssignmentConfig{
		DefaultMaxOvercap: cfg.Blocks.DefaultMaxOvercap,
		MaxBatchSize:      cfg.Blocks.MaxBatchSize,
	}, validate, logr)
	blockSvc := service.NewBlockService(groupRepo, sectionRepo, auditSvc, dashboardSvc, validate, logr)
	rosterSvc := service.NewRosterService(studentRepo, assignmentRepo, groupRepo, sectionRepo, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(sectionRepo, assignmentRepo, files, signer, auditSvc, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			FileTTL:   cfg.Exports.SignedURLTTL,
		}, logr)
	}

	blockHandler := handler.NewBlockHandler(blockSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc, rosterSvc)
	resolutionHandler := handler.NewResolutionHandler(resolutionSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handlers := apiHandlers{
		blocks:      blockHandler,
		assignments: assignmentHandler,
		resolutions: resolutionHandler,
		dashboard:   dashboardHandler,
		metrics:     metricsHandler,
	}
	if exportSvc != nil {
		handlers.exports = handler.NewExportHandler(exportSvc)
	}

	registerRoutes(r, cfg, authSvc, handlers, func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if exportSvc != nil {
		cleanup := time.NewTicker(1 * time.Hour)
		defer cleanup.Stop()
		go func() {
			for range cleanup.C {
				exportSvc.Cleanup()
			}
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("forced shutdown", zap.Error(err))
	}
	stopAudit()
	auditSvc.Stop()
}
