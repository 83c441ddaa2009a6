package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher sends storage events to every cart instance over Redis
// Pub/Sub.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher creates a publisher for the given channel.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish broadcasts the change on the notify channel.
func (p *RedisPublisher) Publish(ctx context.Context, c Change) error {
	data, err := c.marshal()
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}

// StorageWatcher relays storage events written by other instances onto the
// local bus. Events whose origin is this instance are skipped: the writer's
// own subscribers were already told through the same-instance event.
type StorageWatcher struct {
	client     redis.UniversalClient
	channel    string
	instanceID string
	bus        *Bus
	logger     *slog.Logger
	ready      chan struct{}
}

// NewStorageWatcher creates a watcher for the given channel.
func NewStorageWatcher(client redis.UniversalClient, channel, instanceID string, bus *Bus, logger *slog.Logger) *StorageWatcher {
	return &StorageWatcher{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		bus:        bus,
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// Ready is closed once the subscription is confirmed by Redis.
func (w *StorageWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Run subscribes and relays events until ctx is done. It returns nil on
// cancellation and an error when the subscription cannot be established.
func (w *StorageWatcher) Run(ctx context.Context) error {
	ps := w.client.Subscribe(ctx, w.channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}
	close(w.ready)

	w.logger.InfoContext(ctx, "storage watcher subscribed",
		slog.String("channel", w.channel),
		slog.String("instance_id", w.instanceID),
	)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, msg.Payload)
		}
	}
}

func (w *StorageWatcher) handle(ctx context.Context, payload string) {
	c, err := unmarshalChange([]byte(payload))
	if err != nil {
		storageEvents.WithLabelValues("invalid").Inc()
		w.logger.WarnContext(ctx, "ignoring invalid storage event",
			slog.String("error", err.Error()),
		)
		return
	}
	if c.Origin == w.instanceID {
		storageEvents.WithLabelValues("self").Inc()
		return
	}

	storageEvents.WithLabelValues("relayed").Inc()
	c.Name = NameStorage
	w.bus.Emit(c)
}
