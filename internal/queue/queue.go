package queue

import (
	"context"

	"github.com/Kaeytee/warehouse-sub003/internal/domain"
)

// Publisher publishes customer notification messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg CustomerNotification) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg CustomerNotification) error

// Consumer consumes customer notification messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const (
	// CustomerUpdatesQueue is the work queue for outbound customer notifications.
	CustomerUpdatesQueue = "customer.updates"
	// CustomerUpdatesDLQ receives rejected notification messages.
	CustomerUpdatesDLQ = "dlq.customer.updates"

	// queueMaxPriority is the RabbitMQ x-max-priority value for the work queue.
	queueMaxPriority int32 = 3
)

// PriorityValue maps package handling priority to RabbitMQ message priority.
func PriorityValue(priority domain.PackagePriority) uint8 {
	switch priority {
	case domain.PriorityUrgent:
		return 3
	case domain.PriorityStandard:
		return 2
	case domain.PriorityEconomy:
		return 1
	default:
		return 0
	}
}
