package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
	"github.com/Kaeytee/warehouse-sub003/internal/queue"
	"go.uber.org/zap"
)

// CustomerUpdate groups the packages of one customer touched by a batch.
type CustomerUpdate struct {
	CustomerID string
	PackageIDs []string
	Priority   domain.PackagePriority
}

// BatchSummary describes one completed status-update batch for notification.
type BatchSummary struct {
	BatchID     string
	NewStatus   string
	PerformedBy string
	Successful  int
	Failed      int
	Customers   []CustomerUpdate
}

// Notifier dispatches customer-facing batch notifications. Implementations
// are fire-and-forget from the orchestrator's point of view.
type Notifier interface {
	Notify(ctx context.Context, summary BatchSummary) (int, error)
}

var _ Notifier = (*QueueNotifier)(nil)

// QueueNotifier publishes one customer notification message per affected
// customer. Delivery itself happens asynchronously in the worker.
type QueueNotifier struct {
	publisher queue.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewQueueNotifier(publisher queue.Publisher, logger *zap.Logger) (*QueueNotifier, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueNotifier{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Notify publishes the batch to the customer updates queue and returns the
// number of customers actually enqueued. Per-customer publish failures are
// logged and skipped; they never fail the batch.
func (n *QueueNotifier) Notify(ctx context.Context, summary BatchSummary) (int, error) {
	if n == nil || n.publisher == nil {
		return 0, fmt.Errorf("notifier is not initialized")
	}
	if len(summary.Customers) == 0 {
		return 0, nil
	}

	sent := 0
	for _, customer := range summary.Customers {
		msg := queue.CustomerNotification{
			CustomerID:  customer.CustomerID,
			BatchID:     summary.BatchID,
			NewStatus:   summary.NewStatus,
			PackageIDs:  customer.PackageIDs,
			Priority:    customer.Priority,
			PerformedBy: summary.PerformedBy,
			OccurredAt:  n.now().UTC(),
		}

		if err := n.publisher.Publish(ctx, queue.CustomerUpdatesQueue, msg); err != nil {
			n.logger.Warn("failed to enqueue customer notification",
				zap.String("customerId", customer.CustomerID),
				zap.String("batchId", summary.BatchID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	if sent < len(summary.Customers) {
		return sent, fmt.Errorf("enqueued %d of %d customer notifications", sent, len(summary.Customers))
	}

	return sent, nil
}
