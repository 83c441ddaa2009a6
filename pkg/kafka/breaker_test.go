package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishFunc func(ctx context.Context, topic string, event *Event) error

func (f publishFunc) Publish(ctx context.Context, topic string, event *Event) error {
	return f(ctx, topic, event)
}

func testBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(t *testing.T) *Event {
	t.Helper()
	event, err := NewEvent("cart.updated", "sess-1", "cart", "cart-service", nil)
	require.NoError(t, err)
	return event
}

func TestBreakerPublisher_PassesThrough(t *testing.T) {
	var calls atomic.Int32
	next := publishFunc(func(_ context.Context, topic string, _ *Event) error {
		calls.Add(1)
		assert.Equal(t, "storefront.cart.updated", topic)
		return nil
	})
	b := NewBreakerPublisher(next, testBreakerConfig("pass"), discard())

	require.NoError(t, b.Publish(context.Background(), "storefront.cart.updated", testEvent(t)))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerPublisher_TripsAndFailsFast(t *testing.T) {
	brokerDown := errors.New("dial tcp: connection refused")
	var calls atomic.Int32
	next := publishFunc(func(context.Context, string, *Event) error {
		calls.Add(1)
		return brokerDown
	})
	b := NewBreakerPublisher(next, testBreakerConfig("trip"), discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Publish(ctx, "t", testEvent(t))
		assert.ErrorIs(t, err, brokerDown)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	err := b.Publish(ctx, "t", testEvent(t))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), calls.Load(), "open breaker must not reach the broker")
}

func TestBreakerPublisher_RecoversAfterTimeout(t *testing.T) {
	var healthy atomic.Bool
	next := publishFunc(func(context.Context, string, *Event) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("broker down")
	})
	b := NewBreakerPublisher(next, testBreakerConfig("recover"), discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Publish(ctx, "t", testEvent(t))
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	healthy.Store(true)
	assert.Eventually(t, func() bool {
		return b.State() == gobreaker.StateHalfOpen
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.Publish(ctx, "t", testEvent(t)))
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
