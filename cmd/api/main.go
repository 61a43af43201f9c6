package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-request-service/internal/api/http"
	"github.com/spec-kit/support-request-service/internal/api/http/handlers"
	"github.com/spec-kit/support-request-service/internal/auth"
	"github.com/spec-kit/support-request-service/internal/config"
	"github.com/spec-kit/support-request-service/internal/events"
	"github.com/spec-kit/support-request-service/internal/observability"
	"github.com/spec-kit/support-request-service/internal/persistence"
	"github.com/spec-kit/support-request-service/internal/repository"
	"github.com/spec-kit/support-request-service/internal/service"
	"github.com/spec-kit/support-request-service/internal/viewcache"
	"github.com/spec-kit/support-request-service/internal/worker"
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

	var (
		requestRepo  repository.RequestRepository
		messageRepo  repository.MessageRepository
		agentRepo    repository.AgentRepository
		customerRepo repository.CustomerRepository
	)
	pool := pg.PoolHandle()
	if pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		requestRepo = repository.NewRequestRepository(pool)
		messageRepo = repository.NewMessageRepository(pool)
		agentRepo = repository.NewAgentRepository(pool)
		customerRepo = repository.NewCustomerRepository(pool)
	} else {
		logger.Warn("running with in-memory store; data will not survive restarts")
		store := repository.NewMemoryStore()
		requestRepo = store
		messageRepo = store
		agentRepo = store.Agents()
		customerRepo = store.Customers()
	}

	var cache viewcache.Cache
	var redisConn *persistence.Redis
	if cfg.Redis.Addr != "" {
		redisConn = persistence.NewRedis(cfg.Redis, logger)
		defer redisConn.Close()
		cache = viewcache.NewRedisCache(redisConn.Client)
	} else {
		logger.Warn("REDIS_ADDR not provided; using in-process view cache")
		cache = viewcache.NewMemoryCache()
	}
	views := viewcache.New(cache, viewcache.PoliciesFromConfig(cfg.Sync), logger)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AgentRepo:    agentRepo,
		CustomerRepo: customerRepo,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  requestRepo,
		CustomerRepo: customerRepo,
		Dispatcher:   dispatcher,
		Views:        views,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		RequestRepo: requestRepo,
		AgentRepo:   agentRepo,
		Dispatcher:  dispatcher,
		Views:       views,
	})
	messageService := service.NewMessageService(service.MessageDependencies{
		RequestRepo: requestRepo,
		MessageRepo: messageRepo,
		Dispatcher:  dispatcher,
		Views:       views,
	})
	statsService := service.NewStatsService(requestRepo, views)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)
	statsPoller := worker.StartStatsWorker(ctx, statsService, views, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), customerRepo, agentRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn),
		Requests:       handlers.NewRequestsHandler(requestService, assignmentService),
		Messages:       handlers.NewMessagesHandler(messageService, requestService),
		Stats:          handlers.NewStatsHandler(statsService),
		Agents:         handlers.NewAgentsHandler(authService),
		AuthMiddleware: authMiddleware,
		AuthService:    authService,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if statsPoller != nil {
		statsPoller.Stop()
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
