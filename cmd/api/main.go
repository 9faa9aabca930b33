package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/hse-ops/hazard-report-api/internal/handler"
	"github.com/hse-ops/hazard-report-api/internal/middleware"
	"github.com/hse-ops/hazard-report-api/internal/repository"
	"github.com/hse-ops/hazard-report-api/internal/service"
	"github.com/hse-ops/hazard-report-api/pkg/cache"
	"github.com/hse-ops/hazard-report-api/pkg/config"
	"github.com/hse-ops/hazard-report-api/pkg/database"
	"github.com/hse-ops/hazard-report-api/pkg/logger"
	corsmiddleware "github.com/hse-ops/hazard-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/hse-ops/hazard-report-api/pkg/middleware/requestid"
	"github.com/hse-ops/hazard-report-api/pkg/storage"
)

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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, rate limiting disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Upload.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	exportStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	orderStore, err := storage.NewLocalStorage(cfg.Orders.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init orders storage", "error", err)
	}

	validate := validator.New()
	if err := service.RegisterPhoneValidation(validate); err != nil {
		logr.Sugar().Fatalw("failed to register validators", "error", err)
	}

	reportRepo := repository.NewReportRepository(db)
	statusLogRepo := repository.NewStatusLogRepository(db)
	adminRepo := repository.NewAdminRepository(db)

	metricsSvc := service.NewMetricsService()
	uploadSvc := service.NewUploadService(uploadStore, logr, service.UploadConfig{
		MaxFileSize:    cfg.Upload.MaxFileSize,
		MaxFiles:       cfg.Upload.MaxFiles,
		AllowedMIMEs:   cfg.Upload.AllowedMIMEs,
		ResizeMaxWidth: cfg.Upload.ResizeMaxWidth,
		JPEGQuality:    cfg.Upload.JPEGQuality,
	})
	reportSvc := service.NewReportService(reportRepo, statusLogRepo, uploadSvc, validate, logr)
	taskStore := service.NewExportTaskStore(cfg.Export.TaskTTL)
	exportSvc := service.NewExportService(reportRepo, exportStore, taskStore, service.ExportRunConfig{
		BatchSize:   cfg.Export.BatchSize,
		FileTTL:     cfg.Export.TaskTTL,
		Workers:     cfg.Export.WorkerConcurrency,
		PDFFontPath: cfg.Export.PDFFont,
	}, logr)
	authSvc := service.NewAuthService(adminRepo, validate, logr, service.AuthConfig{
		Secret:      cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "hazard-report-api",
	})
	orderSvc := service.NewOrderService(orderStore, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exportSvc.Start(ctx)
	defer exportSvc.Stop()
	taskStore.StartSweeper(ctx, cfg.Export.SweepInterval, logr)
	go func() {
		ticker := time.NewTicker(cfg.Export.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exportSvc.CleanupFiles()
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.Static("/uploads", cfg.Upload.Dir)

	var submitLimiter gin.HandlerFunc
	if cfg.RateLimit.Enabled && redisClient != nil {
		submitLimiter = middleware.RateLimit(redisClient, cfg.RateLimit.Max, cfg.RateLimit.Window, logr)
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Reports: handler.NewReportHandler(reportSvc, metricsSvc),
		Exports: handler.NewExportHandler(exportSvc, metricsSvc),
		Auth:    handler.NewAuthHandler(authSvc),
		Orders:  handler.NewOrderHandler(orderSvc),
		Metrics: handler.NewMetricsHandler(metricsSvc),
	}, authSvc, submitLimiter)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Sugar().Errorw("server shutdown failed", "error", err)
		}
	}()

	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
