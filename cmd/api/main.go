package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	httptransport "github.com/spec-kit/support-agent/internal/api/http"
	"github.com/spec-kit/support-agent/internal/api/http/handlers"
	"github.com/spec-kit/support-agent/internal/agent"
	"github.com/spec-kit/support-agent/internal/auth"
	"github.com/spec-kit/support-agent/internal/config"
	"github.com/spec-kit/support-agent/internal/dedup"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/mail"
	"github.com/spec-kit/support-agent/internal/observability"
	"github.com/spec-kit/support-agent/internal/persistence"
	"github.com/spec-kit/support-agent/internal/repository"
	"github.com/spec-kit/support-agent/internal/service"
	"github.com/spec-kit/support-agent/internal/tools"
	"github.com/spec-kit/support-agent/internal/worker"
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

	startedAt := time.Now().UTC()

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

	store := repository.NewStore(pg.PoolHandle())
	ledger := dedup.NewLedger(redis.Client, store.Messages(), logger)

	mailClient, err := mail.NewGmailClient(ctx, cfg.Gmail, logger)
	if err != nil {
		logger.Fatal("failed to init mail client", zap.Error(err))
	}
	sender := mail.NewSmtpSender(cfg.Smtp, cfg.Gmail.OutboundAddress, logger)

	var reasoner agent.Reasoner
	if cfg.Gemini.APIKey != "" {
		genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
		if err != nil {
			logger.Fatal("failed to init reasoning client", zap.Error(err))
		}
		defer genaiClient.Close()
		reasoner = agent.NewGeminiReasoner(genaiClient, cfg.Gemini.Model, int(cfg.Gemini.MaxTokens))
	} else {
		logger.Warn("no reasoning api key configured, classifications will be degraded")
	}

	registry := tools.NewRegistry()
	registry.Register(tools.NewInvoiceTool(tools.DefaultInvoices()))
	registry.Register(tools.NewSubscriptionTool(tools.DefaultSubscriptions()))

	orchestrator := agent.NewOrchestrator(reasoner, registry, cfg.Agent.MaxToolRounds, logger)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	resolver := service.NewIdentityResolver(cfg.Gmail.WatchAddress, logger)
	gateway := service.NewIngestionService(service.IngestionDependencies{
		Store:       store,
		Resolver:    resolver,
		Ledger:      ledger,
		MailClient:  mailClient,
		Analyzer:    orchestrator,
		Sender:      sender,
		Dispatcher:  dispatcher,
		SelfAddress: cfg.Gmail.OutboundAddress,
		StartedAt:   startedAt,
		Logger:      logger,
	})

	metrics := observability.NewMetrics()
	pushVerifier := auth.NewPushVerifier(cfg.Push.TokenSecret, cfg.Push.Audience)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	webhookHandler := handlers.NewWebhookHandler(gateway, metrics, logger)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   healthHandler,
		Webhook:  webhookHandler,
		PushAuth: pushVerifier,
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
