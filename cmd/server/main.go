package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/ledgerlink/backend/internal/application/integration"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/accounting"
	"github.com/ledgerlink/backend/internal/infrastructure/cache"
	"github.com/ledgerlink/backend/internal/infrastructure/commerce"
	"github.com/ledgerlink/backend/internal/infrastructure/config"
	"github.com/ledgerlink/backend/internal/infrastructure/logger"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence"
	"github.com/ledgerlink/backend/internal/infrastructure/platform"
	"github.com/ledgerlink/backend/internal/infrastructure/scheduler"
	"github.com/ledgerlink/backend/internal/infrastructure/telemetry"
	"github.com/ledgerlink/backend/internal/interfaces/http/handler"
	"github.com/ledgerlink/backend/internal/interfaces/http/middleware"
	"github.com/ledgerlink/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting LedgerLink backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("store_id", cfg.Sync.StoreID),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Webhook dedup store. Redis is required in production so horizontally
	// scaled instances share the seen set; development falls back to the
	// in-process store.
	var dedup shared.EventDedupStore
	redisDedup, err := cache.NewRedisEventDedupStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	switch {
	case err == nil:
		dedup = redisDedup
		log.Info("Redis webhook dedup store connected")
	case cfg.App.Env == "production":
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	default:
		log.Warn("Redis unavailable, using in-memory webhook dedup store", zap.Error(err))
		dedup = cache.NewInMemoryEventDedupStore()
	}
	defer func() {
		if err := dedup.Close(); err != nil {
			log.Error("Error closing dedup store", zap.Error(err))
		}
	}()

	// Repositories
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	idempotencyGuard := persistence.NewGormIdempotencyGuard(db.DB)
	transferDecisionRepo := persistence.NewGormTransferDecisionRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	syncedOrderRepo := persistence.NewGormSyncedOrderRepository(db.DB)

	// Per-store sync configuration
	storeConfigs, err := config.NewFileStoreConfigResolver("config")
	if err != nil {
		log.Fatal("Failed to load store configuration", zap.Error(err))
	}

	// Platform adapters share one retry policy
	retryPolicy := platform.RetryPolicy{
		MaxAttempts: cfg.Sync.RetryAttempts,
		BaseDelay:   cfg.Sync.RetryBaseDelay,
	}
	commerceAdapter, err := commerce.NewAdapter(&commerce.Config{
		BaseURL: cfg.Commerce.BaseURL,
		Token:   cfg.Commerce.Token,
		Timeout: cfg.Commerce.Timeout,
	}, retryPolicy, log)
	if err != nil {
		log.Fatal("Failed to initialize commerce adapter", zap.Error(err))
	}
	accountingAdapter, err := accounting.NewAdapter(&accounting.Config{
		BaseURL: cfg.Accounting.BaseURL,
		Token:   cfg.Accounting.Token,
		Timeout: cfg.Accounting.Timeout,
	}, retryPolicy, log)
	if err != nil {
		log.Fatal("Failed to initialize accounting adapter", zap.Error(err))
	}

	// Application services
	transferResolver := appsync.NewTransferResolver(
		accountingAdapter, mappingRepo, transferDecisionRepo, idempotencyGuard, log,
	)
	pipeline := appsync.NewOrderPipeline(
		cfg.Sync.StoreID,
		commerceAdapter,
		accountingAdapter,
		mappingRepo,
		idempotencyGuard,
		storeConfigs,
		transferResolver,
		syncedOrderRepo,
		syncLogRepo,
		log,
	)
	contactSync := appsync.NewContactSyncService(accountingAdapter, mappingRepo, log)
	productSync := appsync.NewProductSyncService(accountingAdapter, mappingRepo, log)

	jobRegistry := appsync.NewJobRegistry()
	bulkRunner := appsync.NewBulkRunner(jobRegistry, cfg.Sync.BulkWorkers, cfg.Sync.BulkProgressEvery, log)
	bulkService := appsync.NewBulkSyncService(
		bulkRunner, jobRegistry, pipeline, contactSync, productSync, commerceAdapter, cfg.Sync.BulkPageSize,
	)

	// Background order poller catches orders whose webhooks were missed
	if cfg.Sync.PollerEnabled {
		poller, err := scheduler.NewOrderPoller(scheduler.OrderPollerConfig{
			Enabled:  true,
			Interval: cfg.Sync.PollInterval,
			Lookback: cfg.Sync.PollLookback,
			PageSize: cfg.Sync.BulkPageSize,
		}, commerceAdapter, pipeline, log)
		if err != nil {
			log.Fatal("Failed to initialize order poller", zap.Error(err))
		}
		if err := poller.Start(context.Background()); err != nil {
			log.Fatal("Failed to start order poller", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := poller.Stop(stopCtx); err != nil {
				log.Error("Error stopping order poller", zap.Error(err))
			}
		}()
		log.Info("Order poller started",
			zap.Duration("interval", cfg.Sync.PollInterval),
			zap.Duration("lookback", cfg.Sync.PollLookback),
		)
	}

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	r := router.New(log, cfg.Telemetry.ServiceName)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := r.Engine().SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	r.RegisterRoot(handler.NewHealthHandler(db))
	r.Register(handler.NewWebhookHandler(pipeline, dedup, cfg.Sync.WebhookDedupTTL, log))
	r.Register(handler.NewOrderSyncHandler(pipeline, log))
	r.Register(handler.NewBulkSyncHandler(bulkService, log))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Engine(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
