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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/qc-workbench-api/api/swagger"
	"github.com/noah-isme/qc-workbench-api/internal/handler"
	"github.com/noah-isme/qc-workbench-api/internal/repository"
	"github.com/noah-isme/qc-workbench-api/internal/routes"
	"github.com/noah-isme/qc-workbench-api/internal/service"
	"github.com/noah-isme/qc-workbench-api/pkg/cache"
	"github.com/noah-isme/qc-workbench-api/pkg/config"
	"github.com/noah-isme/qc-workbench-api/pkg/database"
	"github.com/noah-isme/qc-workbench-api/pkg/jobs"
	"github.com/noah-isme/qc-workbench-api/pkg/llm"
	"github.com/noah-isme/qc-workbench-api/pkg/logger"
)

// @title QC Workbench API
// @version 1.0.0
// @description Quality-control workbench for mock exam documents
// @BasePath /api/v1
// @schemes http

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

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	// Redis is optional: without it sessions cannot be revoked early and the
	// subject list is read straight from postgres.
	var redisClient *redis.Client
	if client, err := cache.Connect(ctx, cfg.Redis); err != nil {
		logr.Warn("redis unavailable, running without session registry and cache", zap.Error(err))
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	validate := service.NewValidator()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	subjectRepo := repository.NewSubjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	promptRepo := repository.NewPromptRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Subjects.CacheTTL, logr, cfg.Subjects.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, sessionRepo, validate, logr, service.AuthConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	})
	userSvc := service.NewUserService(userRepo, sessionRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, userRepo, cacheSvc, cfg.Subjects.CacheTTL, validate, logr)
	permissionSvc := service.NewPermissionService(permissionRepo, userRepo, subjectRepo, validate, logr)
	taskSvc := service.NewTaskService(taskRepo, subjectSvc, validate, logr)
	progressSvc := service.NewProgressService(progressRepo, taskRepo, subjectSvc, permissionSvc, cfg.Work.QuestionCount, validate, logr).WithMetrics(metrics)
	promptSvc := service.NewPromptService(promptRepo, subjectSvc, cfg.Prompts.MaxSystemPerSubject, validate, logr)
	chatSvc := service.NewChatService(llm.NewClient(cfg.LLM, nil), promptSvc, metrics, validate, logr)
	if cfg.LLM.APIKey == "" {
		logr.Info("LLM_API_KEY not set, chat answers are mocked")
	}

	handlers := routes.Handlers{
		Auth: handler.NewAuthHandler(authSvc, handler.CookieConfig{
			Name:   cfg.Session.CookieName,
			Domain: cfg.Session.CookieDomain,
			Secure: cfg.Session.CookieSecure,
		}),
		Admin:    handler.NewAdminHandler(userSvc, permissionSvc),
		Subjects: handler.NewSubjectHandler(subjectSvc),
		Tasks:    handler.NewTaskHandler(taskSvc),
		Progress: handler.NewProgressHandler(progressSvc),
		Prompts:  handler.NewPromptHandler(promptSvc),
		Chat:     handler.NewChatHandler(chatSvc),
		Metrics:  handler.NewMetricsHandler(metrics, readinessChecks(db.PingContext, redisClient)),
	}

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		reportSvc, queue, err := setupExports(ctx, cfg, db, taskRepo, progressRepo, subjectSvc, metrics, validate, logr)
		if err != nil {
			logr.Fatal("failed to initialise exports", zap.Error(err))
		}
		exportQueue = queue
		handlers.Reports = handler.NewReportHandler(reportSvc)
	}

	router := gin.New()
	routes.Setup(router, cfg, handlers, routes.Deps{
		Sessions: authSvc,
		Audit:    userRepo,
		Metrics:  metrics,
		Logger:   logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

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
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}

func readinessChecks(dbPing handler.PingFunc, client *redis.Client) map[string]handler.Pinger {
	checks := map[string]handler.Pinger{"database": dbPing}
	if client != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}
	return checks
}
