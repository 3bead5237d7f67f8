package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/areti-alliance/crm-gateway/internal/api/http"
	"github.com/areti-alliance/crm-gateway/internal/api/http/handlers"
	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/config"
	"github.com/areti-alliance/crm-gateway/internal/events"
	"github.com/areti-alliance/crm-gateway/internal/idp"
	"github.com/areti-alliance/crm-gateway/internal/observability"
	"github.com/areti-alliance/crm-gateway/internal/persistence"
	"github.com/areti-alliance/crm-gateway/internal/repository"
	"github.com/areti-alliance/crm-gateway/internal/service"
	"github.com/areti-alliance/crm-gateway/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	driverRepo := repository.NewDriverRepository(pool)

	verifier := idp.NewKeycloakVerifier(cfg.IdP, logger)
	throttle := service.NewLoginThrottle(
		redis.Client,
		cfg.Auth.ThrottleMaxAttempts,
		time.Duration(cfg.Auth.ThrottleWindowSecond)*time.Second,
		logger,
	)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo: accountRepo,
		Verifier:    verifier,
		Throttle:    throttle,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	logger.Info("session tokens configured", zap.Duration("ttl", authService.TokenManager().TTL()))

	accountService := service.NewAccountService(accountRepo, cfg.Auth.BcryptCost, logger)

	// A nil *SheetCSVSource must stay a nil interface so the roster service
	// can detect the unconfigured case.
	var rosterSource service.RosterSource
	if src := service.NewSheetCSVSource(cfg.Sync); src != nil {
		rosterSource = src
	}
	rosterService := service.NewRosterService(rosterSource, driverRepo, dispatcher, logger)

	auditService := service.NewAuditService(dispatcher, logger, metrics)
	worker.StartAuditWorker(auditService)

	authorizer := auth.NewAuthorizer(authService.TokenManager(), verifier, logger)
	authMiddleware := auth.NewMiddleware(authorizer)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(authService)
	accountsHandler := handlers.NewAccountsHandler(accountService)
	driversHandler := handlers.NewDriversHandler(driverRepo, rosterService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		Accounts:       accountsHandler,
		Drivers:        driversHandler,
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
