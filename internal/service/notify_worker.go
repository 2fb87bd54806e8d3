package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Kaeytee/warehouse-sub003/internal/observability"
	"github.com/Kaeytee/warehouse-sub003/internal/provider"
	"github.com/Kaeytee/warehouse-sub003/internal/queue"
	"github.com/Kaeytee/warehouse-sub003/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency = 1
	rateLimitChannel     = "customer_updates"
)

// NotifyWorkerService drains the customer-updates queue and delivers each
// message through the outbound provider. Transient delivery failures are
// returned to the queue; permanent ones are dropped after logging.
type NotifyWorkerService struct {
	consumer    queue.Consumer
	provider    provider.Provider
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewNotifyWorkerService(
	consumer queue.Consumer,
	deliveryProvider provider.Provider,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*NotifyWorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("queue consumer is required")
	}
	if deliveryProvider == nil {
		return nil, fmt.Errorf("delivery provider is required")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotifyWorkerService{
		consumer:    consumer,
		provider:    deliveryProvider,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *NotifyWorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the customer-updates queue until context cancellation.
func (s *NotifyWorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("notification worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.CustomerUpdatesQueue),
			)

			err := s.consumer.Consume(groupCtx, queue.CustomerUpdatesQueue, s.processMessage)
			if err != nil {
				s.logger.Error("notification worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("notification worker stopped",
				zap.Int("workerId", workerID),
			)
			return nil
		})
	}

	return g.Wait()
}

func (s *NotifyWorkerService) processMessage(ctx context.Context, msg queue.CustomerNotification) error {
	if s.metrics != nil {
		s.metrics.IncWorkerInFlight()
		defer s.metrics.DecWorkerInFlight()
	}

	if err := s.rateLimiter.Wait(ctx, rateLimitChannel); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	sendStart := s.now()
	resp, sendErr := s.provider.Send(ctx, msg)
	if s.metrics != nil {
		s.metrics.ObserveNotificationDuration(s.now().Sub(sendStart))
	}

	if sendErr == nil {
		messageID := ""
		if resp != nil {
			messageID = resp.MessageID
		}
		s.logger.Info("customer notification delivered",
			zap.String("customerId", msg.CustomerID),
			zap.String("batchId", msg.BatchID),
			zap.Int("packages", len(msg.PackageIDs)),
			zap.String("providerMessageId", messageID),
		)
		if s.metrics != nil {
			s.metrics.IncNotificationSent()
		}
		return nil
	}

	if provider.IsTransient(sendErr) {
		s.logger.Warn("transient delivery failure, message returned to queue",
			zap.String("customerId", msg.CustomerID),
			zap.String("batchId", msg.BatchID),
			zap.Error(sendErr),
		)
		return fmt.Errorf("transient delivery failure: %w", sendErr)
	}

	// Permanent failure: ack the message so it does not loop forever.
	s.logger.Error("permanent delivery failure, message dropped",
		zap.String("customerId", msg.CustomerID),
		zap.String("batchId", msg.BatchID),
		zap.Error(sendErr),
	)
	if s.metrics != nil {
		s.metrics.IncNotificationFailed("permanent_error")
	}
	return nil
}
