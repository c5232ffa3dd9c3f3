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

	httptransport "github.com/markhet/agri-crm/internal/api/http"
	"github.com/markhet/agri-crm/internal/api/http/handlers"
	"github.com/markhet/agri-crm/internal/auth"
	"github.com/markhet/agri-crm/internal/config"
	"github.com/markhet/agri-crm/internal/events"
	"github.com/markhet/agri-crm/internal/notify"
	"github.com/markhet/agri-crm/internal/observability"
	"github.com/markhet/agri-crm/internal/persistence"
	"github.com/markhet/agri-crm/internal/repository"
	"github.com/markhet/agri-crm/internal/service"
	"github.com/markhet/agri-crm/internal/worker"
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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	whatsapp := notify.NewWhatsAppSender(cfg.Twilio)
	notificationService := service.NewNotificationService(dispatcher, whatsapp, logger)
	worker.StartNotificationWorker(notificationService)

	agentService := service.NewAgentService(cfg.Auth, agentRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		CustomerRepo:  customerRepo,
		Dispatcher:    dispatcher,
		Dedupe:        redis,
		DedupeTTL:     time.Duration(cfg.Webhook.DedupeTTLMinutes) * time.Minute,
		SystemAgentID: cfg.Webhook.SystemAgentID,
	})
	authMiddleware := auth.NewMiddleware(agentService.TokenManager())

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(redis),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Agents:         handlers.NewAgentsHandler(agentService),
		Admin:          handlers.NewAdminHandler(ticketService),
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
