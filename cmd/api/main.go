package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kaeytee/warehouse-sub003/internal/config"
	"github.com/Kaeytee/warehouse-sub003/internal/handler"
	"github.com/Kaeytee/warehouse-sub003/internal/infra/postgresql"
	"github.com/Kaeytee/warehouse-sub003/internal/infra/postgresql/migrations"
	infraredis "github.com/Kaeytee/warehouse-sub003/internal/infra/redis"
	"github.com/Kaeytee/warehouse-sub003/internal/location"
	"github.com/Kaeytee/warehouse-sub003/internal/notify"
	"github.com/Kaeytee/warehouse-sub003/internal/observability"
	"github.com/Kaeytee/warehouse-sub003/internal/provider"
	"github.com/Kaeytee/warehouse-sub003/internal/queue"
	"github.com/Kaeytee/warehouse-sub003/internal/repository"
	"github.com/Kaeytee/warehouse-sub003/internal/service"
	"github.com/Kaeytee/warehouse-sub003/internal/transport"
	"github.com/Kaeytee/warehouse-sub003/internal/validation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	publisher := queue.NewRabbitMQPublisher(mq)
	consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerConcurrency, logger)

	notifier, err := notify.NewQueueNotifier(publisher, logger)
	if err != nil {
		logger.Fatal("notifier initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	dedup, err := infraredis.NewBatchDedupStore(rdb, time.Duration(cfg.DedupTTLHours)*time.Hour)
	if err != nil {
		logger.Fatal("dedup store initialization failed", zap.Error(err))
	}

	webhook, err := provider.NewWebhookProvider(cfg.WebhookURL)
	if err != nil {
		logger.Fatal("webhook provider initialization failed", zap.Error(err))
	}

	packages := repository.NewGormPackageRepo(db)
	groups := repository.NewGormGroupRepo(db)
	tracking := repository.NewGormTrackingRepo(db)
	history := repository.NewGormHistoryRepo(db)

	metrics := observability.NewMetrics()

	updater, err := service.NewStatusUpdateService(
		packages,
		groups,
		tracking,
		history,
		validation.NewRuleTable(),
		location.NewStaticResolver(cfg.HubCity),
		notifier,
		logger,
	)
	if err != nil {
		logger.Fatal("status update service initialization failed", zap.Error(err))
	}
	updater.SetDedupStore(dedup)
	updater.SetMetrics(metrics)

	worker, err := service.NewNotifyWorkerService(consumer, webhook, rateLimiter, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("notify worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterStatusRoutes(app, updater, tracking, history); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("notify worker started", zap.Int("concurrency", cfg.WorkerConcurrency))
		if err := worker.Start(gCtx); err != nil && gCtx.Err() == nil {
			return fmt.Errorf("notify worker: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("service terminated", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
