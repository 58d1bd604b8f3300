package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	httptransport "github.com/spec-kit/ticket-analytics/internal/api/http"
	"github.com/spec-kit/ticket-analytics/internal/api/http/handlers"
	"github.com/spec-kit/ticket-analytics/internal/config"
	"github.com/spec-kit/ticket-analytics/internal/events"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
	"github.com/spec-kit/ticket-analytics/internal/observability"
	"github.com/spec-kit/ticket-analytics/internal/persistence"
	"github.com/spec-kit/ticket-analytics/internal/repository"
	"github.com/spec-kit/ticket-analytics/internal/service"
	"github.com/spec-kit/ticket-analytics/internal/storage"
	"github.com/spec-kit/ticket-analytics/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	rules, err := config.LoadRules(cfg.Analytics.RulesFile)
	if err != nil {
		logger.Fatal("failed to load rules", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	deps := service.AnalyticsDependencies{
		Store: storage.NewFileStore(cfg.Analytics.DataDir, cfg.Analytics.SourceFile,
			cfg.Analytics.BackupDir, cfg.Analytics.MaxBackups),
		Normalizer: ingest.NewNormalizer(rules.IngestOptions()),
		Engine:     analytics.NewEngine(rules.Policy(cfg.Analytics.UnknownBreach)),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Config:     cfg.Analytics,
	}
	if redis.Enabled() {
		deps.Cache = redis
	}
	if pool := pg.PoolHandle(); pool != nil {
		deps.Snapshots = repository.NewSnapshotRepository(pool)
		deps.Uploads = repository.NewUploadRepository(pool)
	}
	analyticsService := service.NewAnalyticsService(deps)

	go worker.NewReportRefresher(analyticsService, cfg.Analytics.RefreshInterval(), logger).Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		BodyLimit:             int(cfg.Analytics.MaxUploadBytes) + 1<<20,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps.Store, map[string]handlers.Dependency{
		"postgres": pg,
		"redis":    redis,
	})
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    healthHandler,
		Analytics: analyticsHandler,
		Metrics:   metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("source", cfg.Analytics.SourcePath()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
