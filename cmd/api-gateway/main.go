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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/grad-oversight-api/api/swagger"
	"github.com/noah-isme/grad-oversight-api/internal/dto"
	"github.com/noah-isme/grad-oversight-api/internal/handler"
	internalmiddleware "github.com/noah-isme/grad-oversight-api/internal/middleware"
	"github.com/noah-isme/grad-oversight-api/internal/models"
	"github.com/noah-isme/grad-oversight-api/internal/repository"
	"github.com/noah-isme/grad-oversight-api/internal/service"
	"github.com/noah-isme/grad-oversight-api/pkg/cache"
	"github.com/noah-isme/grad-oversight-api/pkg/config"
	"github.com/noah-isme/grad-oversight-api/pkg/database"
	"github.com/noah-isme/grad-oversight-api/pkg/jobs"
	"github.com/noah-isme/grad-oversight-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grad-oversight-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grad-oversight-api/pkg/middleware/requestid"
	"github.com/noah-isme/grad-oversight-api/pkg/storage"
)

// @title Graduate Oversight API
// @version 1.0.0
// @description Risk classification and cohort aggregation over graduate student records
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const exportCleanupInterval = time.Hour

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, oversight cache disabled", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Oversight.CacheTTL, logr, true)
	}

	validate := service.NewValidator(nil)
	oversightRepo := repository.NewOversightRepository(db)
	oversightSvc := service.NewOversightService(oversightRepo, cacheSvc, metricsSvc, validate, logr, service.OversightServiceConfig{
		CacheTTL: cfg.Oversight.CacheTTL,
	})

	var refreshSvc *service.RiskRefreshService
	if cfg.RiskRefresh.Enabled {
		queue := jobs.NewQueue("risk-refresh", jobs.QueueConfig{
			Workers:    cfg.RiskRefresh.WorkerConcurrency,
			MaxRetries: cfg.RiskRefresh.WorkerRetries,
			Logger:     logr,
		})
		refreshSvc = service.NewRiskRefreshService(service.RiskRefreshParams{
			Evaluator: oversightSvc,
			Writer:    oversightRepo,
			Queue:     queue,
			Cache:     cacheSvc,
			Metrics:   metricsSvc,
			Logger:    logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		refreshSvc.Schedule(ctx, cfg.RiskRefresh.Interval)
	}

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(oversightSvc, store, signer, validate, service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr)
		go cleanupExports(ctx, exportSvc, logr)
	}

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if cacheRepo != nil {
		checks["redis"] = cacheRepo.Ping
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Oversight.Enabled {
		oversightHandler := handler.NewOversightHandler(oversightSvc, refresherOf(refreshSvc), exporterOf(exportSvc))

		// Signed links carry their own authorization.
		api.GET("/oversight/exports/download", oversightHandler.DownloadExport)

		secured := api.Group("")
		secured.Use(internalmiddleware.JWT(authSvc))

		oversightGroup := secured.Group("/oversight")
		oversightGroup.GET("/dashboard", oversightHandler.Dashboard)
		oversightGroup.GET("/radar", oversightHandler.Radar)
		oversightGroup.GET("/funnel", oversightHandler.Funnel)
		oversightGroup.GET("/advisors", oversightHandler.Advisors)
		oversightGroup.GET("/alerts", oversightHandler.Alerts)
		oversightGroup.GET("/students/:id/risk", oversightHandler.StudentRisk)
		oversightGroup.POST("/exports", oversightHandler.CreateExport)

		adminOnly := oversightGroup.Group("", internalmiddleware.RequireRoles(models.RoleAdmin))
		adminOnly.POST("/risk/refresh", oversightHandler.TriggerRefresh)
		adminOnly.GET("/risk/refresh/:id", oversightHandler.RefreshStatus)

		secured.GET("/system/metrics", internalmiddleware.RequireRoles(models.RoleAdmin), metricsHandler.Snapshot)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
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

func cleanupExports(ctx context.Context, svc *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(exportCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := svc.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}

type handlerRefresher interface {
	Trigger(ctx context.Context, programID string) (jobs.Status, error)
	Status(id string) (jobs.Status, error)
}

type handlerExporter interface {
	Generate(ctx context.Context, req dto.ExportRequest) (*dto.ExportResponse, error)
	Open(token string) (*service.Download, error)
}

// Typed nil pointers must not reach the handler as non-nil interfaces.
func refresherOf(svc *service.RiskRefreshService) handlerRefresher {
	if svc == nil {
		return nil
	}
	return svc
}

func exporterOf(svc *service.ExportService) handlerExporter {
	if svc == nil {
		return nil
	}
	return svc
}
