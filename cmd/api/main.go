package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-service/internal/api/http"
	"github.com/spec-kit/sla-service/internal/api/http/handlers"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/cache"
	"github.com/spec-kit/sla-service/internal/config"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/persistence"
	"github.com/spec-kit/sla-service/internal/ratelimit"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
	"github.com/spec-kit/sla-service/internal/sla"
	"github.com/spec-kit/sla-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	metrics := observability.NewMetrics(nil)

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	policyRepo := repository.NewSLAPolicyRepository(pool)
	sectorRepo := repository.NewSectorRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	auditRepo := repository.NewPolicyAuditRepository(pool)

	store := sla.NewPolicyStore(policyRepo, cfg.SLA.PolicyStaleness())
	snapshots := cache.NewRedisCache(redis.Client, cfg.SLA.SnapshotCacheTTL())
	deduper := cache.NewBreachDeduper(redis.Client, cfg.SLA.BreachDedupeTTL())
	dispatcher := events.NewInMemoryDispatcher()

	var forwarder service.EventForwarder
	var brokerCloser io.Closer
	if cfg.Broker.Enabled() {
		broker, err := events.NewNATSPublisher(cfg.Broker, logger)
		if err != nil {
			logger.Warn("event broker unavailable, events stay in-process", zap.Error(err))
		} else {
			forwarder = broker
			brokerCloser = broker
		}
	}
	notificationService := service.NewNotificationService(dispatcher, forwarder, logger, cfg.Notification)
	worker.StartNotificationWorker(ctx, notificationService, brokerCloser, logger)

	policyService := service.NewPolicyService(service.PolicyDependencies{
		Policies:   policyRepo,
		Audits:     auditRepo,
		Sectors:    sectorRepo,
		Store:      store,
		Dispatcher: dispatcher,
		Cache:      snapshots,
		Metrics:    metrics,
		Logger:     logger,
	})
	complianceService := service.NewComplianceService(service.ComplianceDependencies{
		Tickets: ticketRepo,
		Store:   store,
		Cache:   snapshots,
		Metrics: metrics,
		Logger:  logger,
	})
	deadlineService := service.NewDeadlineService(service.DeadlineDependencies{
		Tickets:    ticketRepo,
		History:    historyRepo,
		Store:      store,
		Dispatcher: dispatcher,
		Cache:      snapshots,
		Metrics:    metrics,
		Logger:     logger,
	})
	breachService := service.NewBreachService(service.BreachDependencies{
		Tickets:    ticketRepo,
		History:    historyRepo,
		Store:      store,
		Deduper:    deduper,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Lookback:   cfg.SLA.SweepLookback(),
	})

	if cfg.SLA.EnsureDefaultsOnStart {
		created, err := policyService.EnsureDefaultPolicies(ctx)
		if err != nil {
			logger.Warn("failed to create default sla policies", zap.Error(err))
		} else if created > 0 {
			logger.Info("created default sla policies", zap.Int("count", created))
		}
	}
	if err := policyService.RefreshPolicies(ctx); err != nil {
		logger.Warn("initial sla policy load failed", zap.Error(err))
	}

	go worker.RunBreachSweeper(ctx, breachService, cfg.SLA.SweepInterval(), logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    redis,
	}, func() handlers.PolicyStatus { return store.Snapshot() })

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Policies:       handlers.NewPolicyHandler(policyService, logger),
		Compliance:     handlers.NewComplianceHandler(complianceService),
		Deadlines:      handlers.NewDeadlineHandler(deadlineService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Limiter:        ratelimit.New(cfg.RateLimit),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
