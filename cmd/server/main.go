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

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/authadmin"
	"storefront-service/internal/broker"
	"storefront-service/internal/pix"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.ServiceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer(cfg.Observ.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	if cfg.Database.RunMigrations {
		if err := store.RunMigrations(cfg.Database.URL); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

	eventPublisher := broker.NewEventPublisher(producer)

	pixProvider, err := newPixProvider(cfg.Pix)
	if err != nil {
		logger.Fatal("Failed to initialize PIX provider", zap.Error(err))
	}
	pixTimeout := time.Duration(cfg.Pix.TimeoutSeconds) * time.Second
	if pixTimeout <= 0 {
		pixTimeout = pix.DefaultTimeout
	}
	pixBridge := pix.NewBridge(db, redisClient, pixProvider, eventPublisher, pixTimeout+15*time.Second)

	authClient := authadmin.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey, nil)

	orderService := service.NewOrderService(db, redisClient, eventPublisher)
	featureService := service.NewFeatureService(db, eventPublisher)
	accountService := service.NewAccountService(authClient, db, redisClient, cfg.Supabase.PasswordResetRedirectURL)
	authEventService := service.NewAuthEventService(db, redisClient, redisClient)
	reportService, err := service.NewReportService(db, cfg.Reports.Timezone)
	if err != nil {
		logger.Fatal("Failed to initialize report service", zap.Error(err))
	}

	scheduler, err := worker.NewReportScheduler(cfg.Reports.Cron, cfg.Reports.Timezone, reportService)
	if err != nil {
		logger.Fatal("Failed to initialize report scheduler", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Config{
		Orders:            orderService,
		Features:          featureService,
		Accounts:          accountService,
		Reports:           reportService,
		Pix:               pixBridge,
		AuthEvents:        authEventService,
		Auth:              api.NewAuthenticator(cfg.Supabase.JWTSecret, db, redisClient),
		PublicLimiter:     api.NewRateLimiter(cfg.Limits.RPS, cfg.Limits.Burst),
		PixLimiter:        api.NewRateLimiter(cfg.Limits.RPS, cfg.Limits.Burst),
		AuthWebhookSecret: cfg.Webhooks.AuthSecret,
		Dependencies: map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return scheduler.Start(gctx)
	})

	if cfg.Webhooks.IntegrationURL != "" {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		webhookWorker := worker.NewWebhookWorker(consumer, db, cfg.Webhooks.IntegrationURL, cfg.Webhooks.IntegrationSecret, nil)
		g.Go(func() error {
			err := webhookWorker.Start(gctx)
			if stopErr := webhookWorker.Stop(); stopErr != nil {
				logger.Warn("Error closing webhook consumer", zap.Error(stopErr))
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("INTEGRATION_WEBHOOK_URL not set, event forwarding disabled")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server exited")
}

// newPixProvider selects the charge provider named by PIX_PROVIDER
func newPixProvider(cfg config.PixConfig) (pix.Provider, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case "", "workflow":
		return pix.NewWorkflowProvider(cfg.WebhookURL, cfg.FallbackWebhookURL, timeout, nil), nil
	case "mercadopago":
		provider, err := pix.NewMercadoPagoProvider(cfg.MercadoPagoAccessToken, timeout)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown PIX provider %q", cfg.Provider)
	}
}
