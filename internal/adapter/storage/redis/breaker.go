package redis

import (
	"context"
	"errors"
	"time"

	"github.com/devtofunmi/fake-bank/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects cache calls.
var ErrCircuitOpen = errors.New("idempotency cache circuit open")

// BreakerConfig tunes the circuit breaker around the idempotency cache.
type BreakerConfig struct {
	MaxRequests         uint32        // Probes allowed while half-open
	Interval            time.Duration // Closed-state count reset period
	Timeout             time.Duration // Open-state duration before probing
	ConsecutiveFailures uint32        // Failures that trip the breaker
	CallTimeout         time.Duration // Per-call deadline, zero disables
}

// DefaultBreakerConfig returns settings suited to a local Redis.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             10 * time.Second,
		ConsecutiveFailures: 5,
		CallTimeout:         200 * time.Millisecond,
	}
}

// BreakerCache wraps an IdempotencyCache so a failing Redis is skipped
// instead of adding its timeout to every deposit.
type BreakerCache struct {
	next        ports.IdempotencyCache
	cb          *gobreaker.CircuitBreaker
	callTimeout time.Duration
}

// NewBreakerCache creates a breaker-protected cache.
func NewBreakerCache(next ports.IdempotencyCache, cfg BreakerConfig, log zerolog.Logger) *BreakerCache {
	trip := cfg.ConsecutiveFailures
	if trip == 0 {
		trip = 5
	}

	settings := gobreaker.Settings{
		Name:        "idempotency-cache",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &BreakerCache{
		next:        next,
		cb:          gobreaker.NewCircuitBreaker(settings),
		callTimeout: cfg.CallTimeout,
	}
}

// Get reads through the breaker.
func (b *BreakerCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Get(ctx, key)
	})
	if err != nil {
		return nil, b.mapErr(err)
	}
	val, _ := res.([]byte)
	return val, nil
}

// Set writes through the breaker.
func (b *BreakerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := b.bound(ctx)
	defer cancel()

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value, ttl)
	})
	return b.mapErr(err)
}

// State reports the breaker state.
func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerCache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.callTimeout > 0 {
		return context.WithTimeout(ctx, b.callTimeout)
	}
	return ctx, func() {}
}

func (b *BreakerCache) mapErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}
