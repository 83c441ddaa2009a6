package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockChangePublisher struct {
	mock.Mock
}

func (m *mockChangePublisher) Publish(ctx context.Context, c Change) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func TestBroadcaster_NotifyFiresBothChannels(t *testing.T) {
	bus := NewBus(4)
	remote := new(mockChangePublisher)
	remote.On("Publish", mock.Anything, mock.MatchedBy(func(c Change) bool {
		return c.Name == NameStorage && c.Key == "wishlist" && c.SessionID == "s-1" && c.Origin == "instance-a"
	})).Return(nil).Once()

	ch, cancel := bus.Subscribe("s-1")
	defer cancel()

	b := NewBroadcaster("instance-a", bus, remote, newTestLogger())
	b.Notify(context.Background(), "s-1", "wishlist")

	got := receive(t, ch)
	assert.Equal(t, NameWishlistUpdated, got.Name)
	assert.Equal(t, "instance-a", got.Origin)
	remote.AssertExpectations(t)
}

func TestBroadcaster_RemoteFailureStillEmitsLocally(t *testing.T) {
	bus := NewBus(4)
	remote := new(mockChangePublisher)
	remote.On("Publish", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	ch, cancel := bus.Subscribe("s-1")
	defer cancel()

	b := NewBroadcaster("instance-a", bus, remote, newTestLogger())
	b.Notify(context.Background(), "s-1", "cart")

	assert.Equal(t, NameCartUpdated, receive(t, ch).Name)
}

func TestBroadcaster_PublishesAfterCallerCancelled(t *testing.T) {
	bus := NewBus(4)
	remote := new(mockChangePublisher)
	remote.On("Publish", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewBroadcaster("instance-a", bus, remote, newTestLogger()).Notify(ctx, "s-1", "cart")
	remote.AssertExpectations(t)
}

func TestBroadcaster_AcrossInstances(t *testing.T) {
	_, client := setupTestRedis(t)

	busA, busB := NewBus(4), NewBus(4)
	startWatcher(t, client, "instance-a", busA)
	startWatcher(t, client, "instance-b", busB)

	chA, cancelA := busA.Subscribe("s-1")
	defer cancelA()
	chB, cancelB := busB.Subscribe("s-1")
	defer cancelB()

	b := NewBroadcaster("instance-a", busA, NewRedisPublisher(client, testChannel), newTestLogger())
	require.Equal(t, "instance-a", b.InstanceID())
	b.Notify(context.Background(), "s-1", "cart")

	// The writer's subscribers get only the same-instance event.
	assert.Equal(t, NameCartUpdated, receive(t, chA).Name)
	assertNoChange(t, chA)

	// Other instances get only the storage event.
	assert.Equal(t, NameStorage, receive(t, chB).Name)
	assertNoChange(t, chB)
}

func TestBroadcaster_NilRemote(t *testing.T) {
	bus := NewBus(4)
	ch, cancel := bus.Subscribe("s-1")
	defer cancel()

	NewBroadcaster("solo", bus, nil, newTestLogger()).Notify(context.Background(), "s-1", "cart")
	assert.Equal(t, NameCartUpdated, receive(t, ch).Name)
}
