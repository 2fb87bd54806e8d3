package provider

import (
	"context"

	"github.com/Kaeytee/warehouse-sub003/internal/queue"
)

// Provider is the outbound customer-notification delivery port.
type Provider interface {
	Send(ctx context.Context, update queue.CustomerNotification) (*ProviderResponse, error)
}

// ProviderResponse stores delivery call metadata for audit and logging.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
