package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coursepay/server/internal/port/outbound"
	"github.com/redis/go-redis/v9"
)

const (
	settlementKeyPrefix = "orders:settled:"
	// Settled transactions stay settled, the TTL only bounds memory.
	settlementTTL = 90 * 24 * time.Hour
)

// settlementCache implements outbound.SettlementCachePort.
type settlementCache struct {
	client redis.UniversalClient
}

// NewSettlementCache creates a new settlement cache adapter.
func NewSettlementCache(client redis.UniversalClient) outbound.SettlementCachePort {
	return &settlementCache{client: client}
}

func settlementKey(gateway, transID string) string {
	return settlementKeyPrefix + gateway + ":" + transID
}

func (c *settlementCache) SettledAt(ctx context.Context, gateway, transID string) (*time.Time, error) {
	unix, err := c.client.Get(ctx, settlementKey(gateway, transID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement: %w", err)
	}
	at := time.Unix(unix, 0).UTC()
	return &at, nil
}

func (c *settlementCache) MarkSettled(ctx context.Context, gateway, transID string, at time.Time) error {
	if err := c.client.Set(ctx, settlementKey(gateway, transID), at.Unix(), settlementTTL).Err(); err != nil {
		return fmt.Errorf("mark settled: %w", err)
	}
	return nil
}

// Compile-time check
var _ outbound.SettlementCachePort = (*settlementCache)(nil)
