package event

import (
	"context"
	"log/slog"
	"time"
)

const defaultNotifyTimeout = 2 * time.Second

// ChangePublisher sends a change to other cart instances.
type ChangePublisher interface {
	Publish(ctx context.Context, c Change) error
}

// Broadcaster is the single notify helper behind every mutation. It fires
// the cross-instance storage event and the same-instance event so that
// consumers can treat either as "reload".
type Broadcaster struct {
	instanceID string
	bus        *Bus
	remote     ChangePublisher
	timeout    time.Duration
	logger     *slog.Logger
}

// NewBroadcaster creates a broadcaster. remote may be nil, in which case
// only in-process subscribers are told.
func NewBroadcaster(instanceID string, bus *Bus, remote ChangePublisher, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		instanceID: instanceID,
		bus:        bus,
		remote:     remote,
		timeout:    defaultNotifyTimeout,
		logger:     logger,
	}
}

// InstanceID returns the origin stamped on outgoing changes.
func (b *Broadcaster) InstanceID() string {
	return b.instanceID
}

// Notify announces that key was rewritten for the session. Failures are
// logged and counted; they never fail the mutation that triggered them.
func (b *Broadcaster) Notify(ctx context.Context, sessionID, key string) {
	now := time.Now().UTC()

	if b.remote != nil {
		// Still publish when the caller has gone away; the write already landed.
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		err := b.remote.Publish(pubCtx, Change{
			Name:      NameStorage,
			Key:       key,
			SessionID: sessionID,
			Origin:    b.instanceID,
			At:        now,
		})
		cancel()
		if err != nil {
			notifyFailures.WithLabelValues("storage").Inc()
			b.logger.WarnContext(ctx, "failed to publish storage event",
				slog.String("session_id", sessionID),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	b.bus.Emit(Change{
		Name:      SameContextName(key),
		Key:       key,
		SessionID: sessionID,
		Origin:    b.instanceID,
		At:        now,
	})
}
