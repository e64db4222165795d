package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/classhub/subject-service/internal/api/http"
	"github.com/classhub/subject-service/internal/api/http/handlers"
	"github.com/classhub/subject-service/internal/auth"
	"github.com/classhub/subject-service/internal/config"
	"github.com/classhub/subject-service/internal/events"
	"github.com/classhub/subject-service/internal/observability"
	"github.com/classhub/subject-service/internal/persistence"
	"github.com/classhub/subject-service/internal/repository"
	"github.com/classhub/subject-service/internal/service"
	"github.com/classhub/subject-service/internal/worker"
)

func main() {
	// Configuration problems, a missing signing secret above all, must stop
	// the process here, before it can accept a single request.
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	subjectRepo := repository.NewSubjectRepository(pool)

	var denylist repository.TokenDenylist
	if redis != nil {
		denylist = repository.NewRedisTokenDenylist(redis.Client)
	}

	authService, err := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		Denylist:    denylist,
		Dispatcher:  dispatcher,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	accountService := service.NewAccountService(*cfg, accountRepo, dispatcher)
	subjectService := service.NewSubjectService(subjectRepo)

	auditService := service.NewAuditService(dispatcher, logger, metrics)
	worker.StartAuditWorker(auditService)

	if created, err := accountService.Bootstrap(ctx); err != nil {
		logger.Fatal("failed to bootstrap admin account", zap.Error(err))
	} else if created {
		logger.Info("bootstrap admin account created",
			zap.String("username", cfg.Auth.BootstrapAdminUsername))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), denylist, dispatcher)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, dispatcher, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService, accountService)
	accountsHandler := handlers.NewAccountsHandler(accountService)
	subjectsHandler := handlers.NewSubjectsHandler(subjectService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Accounts:       accountsHandler,
		Subjects:       subjectsHandler,
		AuthMiddleware: authMiddleware,
		LoginThrottle:  httptransport.NewLoginRateLimiter(ctx, cfg.RateLimit, dispatcher),
		Metrics:        metrics,
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
