package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-api/pkg/tracing"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Weekly class timetable generation backed by a mixed-integer model
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Env, logr)
	if err != nil {
		logr.Fatal("failed to init tracing", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient redis.UniversalClient
	if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, solve cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	cacheRepo := repository.NewCacheRepository(redisClient, "timetable", logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	solver, err := service.NewSolver(service.SolverConfig{
		Name:           cfg.Scheduler.Solver,
		TimeLimit:      cfg.Scheduler.SolveTimeout,
		ObjectiveScale: cfg.Scheduler.ObjectiveScale,
		MaxSearches:    cfg.Scheduler.MaxSearches,
	}, logr)
	if err != nil {
		logr.Fatal("failed to init solver", zap.Error(err))
	}

	timetableSvc := service.NewTimetableService(
		repository.NewTimetableRepository(db),
		repository.NewTimetableSlotRepository(db),
		db,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.TimetableConfig{
			ProposalTTL:        cfg.Scheduler.ProposalTTL,
			CacheTTL:           cfg.Scheduler.CacheTTL,
			CompactnessPenalty: cfg.Scheduler.CompactnessPenalty,
			MaxAssignments:     cfg.Scheduler.MaxAssignments,
			Solver:             solver,
		},
	)

	var jobSvc *service.TimetableJobService
	var queue *jobs.Queue
	if cfg.Jobs.Workers > 0 {
		store := service.NewSolveJobStore(cfg.Jobs.ResultTTL)
		worker := service.NewTimetableJobWorker(store, timetableSvc, metrics, logr)
		queue = jobs.NewQueue("timetable-solve", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Jobs.Workers,
			BufferSize: cfg.Jobs.QueueSize,
			JobTimeout: cfg.Jobs.Timeout,
			Logger:     logr,
		})
		queue.Start(ctx)
		jobSvc = service.NewTimetableJobService(store, queue, validate, logr)
	}

	router := newRouter(cfg, logr, db, redisClient, metrics, timetableSvc, jobSvc, service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Error("tracing shutdown", zap.Error(err))
	}
}

func newRouter(
	cfg *config.Config,
	logr *zap.Logger,
	db *sqlx.DB,
	redisClient redis.UniversalClient,
	metrics *service.MetricsService,
	timetables *service.TimetableService,
	jobSvc *service.TimetableJobService,
	tokens *service.TokenService,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		status := gin.H{"status": "ready", "database": "ok", "cache": "disabled"}
		if redisClient != nil {
			status["cache"] = "ok"
			if err := redisClient.Ping(ctx).Err(); err != nil {
				status["cache"] = err.Error()
			}
		}
		c.JSON(http.StatusOK, status)
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	if cfg.Env != config.EnvProduction {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if !cfg.Scheduler.Enabled {
		logr.Warn("timetable endpoints disabled")
		return r
	}

	// a nil *TimetableJobService must not reach the handler as a non-nil interface
	timetableHandler := handler.NewTimetableHandler(timetables, nil)
	if jobSvc != nil {
		timetableHandler = handler.NewTimetableHandler(timetables, jobSvc)
	}

	authed := internalmiddleware.JWT(tokens)
	editors := internalmiddleware.TimetableEditors()
	readers := internalmiddleware.SolveRequesters()

	api := r.Group(cfg.APIPrefix)
	group := api.Group("/timetables")
	group.Use(internalmiddleware.OptionalJWT(tokens))
	group.POST("/generate", timetableHandler.Generate)
	group.GET("/example", timetableHandler.Example)
	group.GET("/proposals/:id/export", timetableHandler.ExportProposal)
	group.POST("/jobs", authed, readers, timetableHandler.SubmitJob)
	group.GET("/jobs/:id", authed, timetableHandler.GetJob)
	group.POST("", authed, editors, timetableHandler.Save)
	group.GET("", authed, timetableHandler.List)
	group.GET("/:id/slots", authed, timetableHandler.Slots)
	group.GET("/:id/export", authed, timetableHandler.ExportTimetable)
	group.DELETE("/:id", authed, editors, timetableHandler.Delete)

	return r
}
