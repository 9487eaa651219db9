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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edubridge/reportcard-api/api/swagger"
	"github.com/edubridge/reportcard-api/internal/handler"
	"github.com/edubridge/reportcard-api/internal/middleware"
	"github.com/edubridge/reportcard-api/internal/models"
	"github.com/edubridge/reportcard-api/internal/repository"
	"github.com/edubridge/reportcard-api/internal/service"
	"github.com/edubridge/reportcard-api/pkg/cache"
	"github.com/edubridge/reportcard-api/pkg/config"
	"github.com/edubridge/reportcard-api/pkg/database"
	"github.com/edubridge/reportcard-api/pkg/logger"
	corsmiddleware "github.com/edubridge/reportcard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edubridge/reportcard-api/pkg/middleware/requestid"
	"github.com/edubridge/reportcard-api/pkg/render"
	"github.com/edubridge/reportcard-api/pkg/storage"
)

// @title EduBridge Report Card API
// @version 1.0.0
// @description Batch report-card generation, export and public sharing
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roster caching disabled", "error", err)
		redisClient = nil
	}

	artifacts, err := storage.NewLocalStorage(cfg.ReportCards.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init artifact storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.ReportCards.SignedURLSecret, cfg.ReportCards.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchJobRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	reportRepo := repository.NewReportRepository(db)
	shareRepo := repository.NewShareLinkRepository(db)
	configRepo := repository.NewConfigRepository(db)

	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "reportcard-api",
		Audience:          []string{"reportcard-clients"},
	})

	normalizer := service.NewNormalizer(cfg.ReportCards.DefaultVariant)
	renderer := render.NewCanvasRenderer(render.Options{DPI: cfg.ReportCards.RenderDPI})

	eligibilityService := service.NewEligibilityService(rosterRepo, redisClient, metricsService, service.EligibilityConfig{
		CacheTTL: cfg.Eligibility.CacheTTL,
	}, logr)
	validationService := service.NewValidationService(
		service.NewReportCompletenessChecker(reportRepo, normalizer), logr)

	batchService := service.NewBatchService(
		batchRepo,
		eligibilityService,
		validationService,
		configRepo,
		reportRepo,
		normalizer,
		renderer,
		artifacts,
		signer,
		metricsService,
		service.BatchConfig{
			APIPrefix:         cfg.APIPrefix,
			ResultTTL:         cfg.ReportCards.ResultTTL,
			WorkerConcurrency: cfg.ReportCards.WorkerConcurrency,
			WorkerRetries:     cfg.ReportCards.WorkerRetries,
		},
		logr,
	)

	shareService := service.NewShareService(shareRepo, rosterRepo, reportRepo, service.ShareConfig{
		PublicBaseURL:    cfg.Sharing.PublicBaseURL,
		DefaultExpiryHrs: cfg.Sharing.DefaultExpiryHrs,
		MaxBulkSelection: cfg.Sharing.MaxBulkSelection,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batchService.Start(ctx)
	defer batchService.Stop()

	if err := batchService.RecoverQueued(ctx); err != nil {
		logr.Sugar().Warnw("failed to recover queued batches", "error", err)
	}

	go func() {
		ticker := time.NewTicker(cfg.ReportCards.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := batchService.CleanupArtifacts(ctx, cfg.ReportCards.ResultTTL); err != nil {
					logr.Sugar().Warnw("artifact cleanup failed", "error", err)
				}
			}
		}
	}()

	authHandler := handler.NewAuthHandler(authService)
	rosterHandler := handler.NewRosterHandler(eligibilityService)
	batchHandler := handler.NewBatchHandler(batchService)
	shareHandler := handler.NewShareHandler(shareService, batchService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)

		// Artifact downloads authenticate via the signed token, not JWT.
		api.GET("/report-cards/export/:token", batchHandler.Download)

		authed := api.Group("")
		authed.Use(middleware.JWT(authService))
		{
			authed.GET("/auth/me", authHandler.Me)
			authed.GET("/classes/:id/roster", rosterHandler.Roster)

			staff := authed.Group("")
			staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
			{
				staff.POST("/report-cards/batches", batchHandler.Create)
				staff.GET("/report-cards/batches/:id", batchHandler.Status)
				staff.POST("/report-cards/share", shareHandler.Issue)
				staff.POST("/report-cards/share/export", shareHandler.ExportCSV)
			}
		}
	}

	// Public share links live outside the API prefix.
	r.GET("/report/:token/:slug", shareHandler.PublicReport)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
