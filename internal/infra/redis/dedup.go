package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix  = "batch:dedup:"
	defaultDedupTTL = 24 * time.Hour
)

// BatchDedupStore is a Redis-backed idempotency ledger for caller-supplied
// batch ids. Claims expire so replayed ids eventually become usable again.
type BatchDedupStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewBatchDedupStore(client *goredis.Client, ttl time.Duration) (*BatchDedupStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}

	return &BatchDedupStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// Claim marks a batch id as processed. It returns false when the id was
// already claimed within the TTL window.
func (s *BatchDedupStore) Claim(ctx context.Context, batchID string) (bool, error) {
	if s == nil || s.client == nil {
		return false, fmt.Errorf("dedup store is not initialized")
	}

	trimmed := strings.TrimSpace(batchID)
	if trimmed == "" {
		return false, fmt.Errorf("batch id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	claimed, err := s.client.SetNX(ctx, dedupKeyPrefix+trimmed, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim batch id: %w", err)
	}

	return claimed, nil
}
