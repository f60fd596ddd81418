package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// HealthCheck implements ports.HealthChecker for Redis. With a breaker it
// also reports unhealthy while the idempotency cache is being bypassed.
type HealthCheck struct {
	client  goredis.UniversalClient
	breaker *BreakerCache
}

// NewHealthCheck creates a Redis health checker. breaker may be nil.
func NewHealthCheck(client goredis.UniversalClient, breaker *BreakerCache) *HealthCheck {
	return &HealthCheck{client: client, breaker: breaker}
}

// Ping checks Redis connectivity and the breaker state.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	if h.breaker != nil && h.breaker.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "redis"
}
