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

	httptransport "github.com/spec-kit/assignment-engine/internal/api/http"
	"github.com/spec-kit/assignment-engine/internal/api/http/handlers"
	"github.com/spec-kit/assignment-engine/internal/auth"
	"github.com/spec-kit/assignment-engine/internal/config"
	"github.com/spec-kit/assignment-engine/internal/events"
	"github.com/spec-kit/assignment-engine/internal/mailer"
	"github.com/spec-kit/assignment-engine/internal/observability"
	"github.com/spec-kit/assignment-engine/internal/persistence"
	"github.com/spec-kit/assignment-engine/internal/repository"
	"github.com/spec-kit/assignment-engine/internal/rules"
	"github.com/spec-kit/assignment-engine/internal/service"
	"github.com/spec-kit/assignment-engine/internal/worker"
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
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	pool := pg.PoolHandle()
	timeout := cfg.Postgres.StoreTimeout
	txManager := persistence.NewTransactionManager(pool)
	ticketRepo := repository.NewTicketRepository(pool, timeout)
	agentRepo := repository.NewAgentRepository(pool, timeout)
	ruleRepo := repository.NewRuleRepository(pool, timeout)
	cursorRepo := repository.NewRoundRobinRepository(pool, timeout)
	activityRepo := repository.NewActivityRepository(pool, timeout)
	notificationRepo := repository.NewNotificationRepository(pool, timeout)
	slaConfigRepo := repository.NewSLAConfigRepository(pool, timeout)

	var sender mailer.Sender = mailer.LogSender{Logger: logger}
	if cfg.Email.Enabled() {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.From,
		})
	}
	emailService := service.NewEmailService(service.EmailDependencies{
		Sender:     sender,
		BaseURL:    cfg.Email.BaseURL,
		RatePerSec: cfg.Email.RatePerSec,
		Burst:      cfg.Email.Burst,
		QueueSize:  cfg.Email.QueueSize,
		Logger:     logger,
		Metrics:    metrics,
	})

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Repo:          notificationRepo,
		Tx:            txManager,
		Dispatcher:    dispatcher,
		Publisher:     redis,
		Emails:        emailService,
		ChannelPrefix: cfg.Redis.ChannelPrefix,
		Logger:        logger,
		Metrics:       metrics,
	})
	worker.StartNotificationWorker(ctx, notificationService, emailService)

	engine := rules.NewEngine(rules.Dependencies{
		Rules:   ruleRepo,
		Agents:  agentRepo,
		Cursors: cursorRepo,
		Config: rules.Config{
			SeniorCeiling:     cfg.Assignment.SeniorCeiling,
			RoundRobinCeiling: cfg.Assignment.RoundRobinCeiling,
		},
		Logger: logger.Named("rules"),
	})

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		Tx:           txManager,
		TicketRepo:   ticketRepo,
		AgentRepo:    agentRepo,
		ActivityRepo: activityRepo,
		Selector:     engine,
		Notifier:     notificationService,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})
	workloadService := service.NewWorkloadService(service.WorkloadDependencies{
		AgentRepo:  agentRepo,
		TicketRepo: ticketRepo,
		Logger:     logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		Tx:            txManager,
		TicketRepo:    ticketRepo,
		AgentRepo:     agentRepo,
		SLAConfigRepo: slaConfigRepo,
		Notifier:      notificationService,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
	})

	scheduler := worker.NewScheduler(logger)
	slaInterval, autoInterval := cfg.Sweepers.SLAInterval, cfg.Sweepers.AutoAssignInterval
	if !cfg.Sweepers.Enabled {
		slaInterval, autoInterval = 0, 0
	}
	scheduler.Register(worker.NewSLABreachSweeper(slaService, cfg.Sweepers.SLABatchSize, logger, metrics), slaInterval)
	scheduler.Register(worker.NewAutoAssignSweeper(assignmentService, cfg.Sweepers.AutoAssignBatch, cfg.Sweepers.AutoAssignGrace, logger, metrics), autoInterval)
	scheduler.Start()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, agentRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Assignments:    handlers.NewAssignmentHandler(assignmentService, workloadService),
		Agents:         handlers.NewAgentHandler(workloadService, agentRepo),
		SLA:            handlers.NewSLAHandler(slaService),
		Sweeps:         handlers.NewSweepHandler(scheduler),
		Notifications:  handlers.NewNotificationHandler(notificationService),
		AuthMiddleware: authMiddleware.Handle,
		Metrics:        metrics,
		MetricsPath:    cfg.Metrics.Path,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	scheduler.Stop(shutdownCtx)
	cancel()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
