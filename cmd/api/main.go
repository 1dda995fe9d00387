package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/advisor"
	httptransport "github.com/ssantosh21/incident-iq/internal/api/http"
	"github.com/ssantosh21/incident-iq/internal/api/http/handlers"
	"github.com/ssantosh21/incident-iq/internal/auth"
	"github.com/ssantosh21/incident-iq/internal/classifier"
	"github.com/ssantosh21/incident-iq/internal/config"
	"github.com/ssantosh21/incident-iq/internal/domain"
	"github.com/ssantosh21/incident-iq/internal/events"
	"github.com/ssantosh21/incident-iq/internal/genai"
	"github.com/ssantosh21/incident-iq/internal/lifecycle"
	"github.com/ssantosh21/incident-iq/internal/observability"
	"github.com/ssantosh21/incident-iq/internal/orchestrator"
	"github.com/ssantosh21/incident-iq/internal/persistence"
	"github.com/ssantosh21/incident-iq/internal/repository"
	"github.com/ssantosh21/incident-iq/internal/runbook"
	"github.com/ssantosh21/incident-iq/internal/search"
	"github.com/ssantosh21/incident-iq/internal/service"
	"github.com/ssantosh21/incident-iq/internal/ticketstore"
	"github.com/ssantosh21/incident-iq/internal/worker"
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

	minioClient, err := persistence.NewMinioClient(cfg.TicketStore, logger)
	if err != nil {
		logger.Fatal("failed to connect object store", zap.Error(err))
	}
	store := ticketstore.NewMinioStore(minioClient, cfg.TicketStore, logger)
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Fatal("failed to ensure ticket bucket", zap.Error(err))
	}

	index := search.NewHTTPIndex(cfg.Search)
	generator := genai.NewClient(cfg.GenAI)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications)

	tickets := lifecycle.NewManager(lifecycle.ManagerDependencies{
		Store:      store,
		Index:      index,
		Locks:      persistence.NewRedisKeyLocker(redis.Client, logger),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	triage := classifier.New(index, store, cfg.Classifier.SimilarityThreshold, cfg.Classifier.IncidentTopK, logger)
	runbooks := runbook.NewMatcher(index, cfg.Classifier.RunbookTopK, cfg.Classifier.RunbookMatchThreshold, logger)
	adviser := advisor.New(generator, logger)

	responder := orchestrator.New(orchestrator.Dependencies{
		Classifier:         triage,
		Runbooks:           runbooks,
		Advisor:            adviser,
		Tickets:            tickets,
		DefaultSeverity:    domain.Severity(cfg.Classifier.DefaultSeverity),
		RegressionSeverity: domain.Severity(cfg.Classifier.RegressionSeverity),
		Metrics:            metrics,
		Logger:             logger,
	})

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	authService := service.NewAuthService(*cfg, userRepo)
	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Incidents:      handlers.NewIncidentsHandler(responder, tickets),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
