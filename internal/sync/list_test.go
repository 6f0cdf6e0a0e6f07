package sync

import (
	"context"
	"testing"
	"time"

	"github.com/kallerud/lotline/internal/events"
	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/store"
	"github.com/stretchr/testify/require"
)

func TestListSynchronizerAppliesResponse(t *testing.T) {
	backend := newFakeBackend()
	backend.conversations = []models.Conversation{
		{ID: "c1", UnreadCount: 2, UpdatedAt: time.Now()},
	}
	st := store.New()
	bus := events.NewInMemoryPublisher()

	list := NewListSynchronizer(backend, st, bus, time.Hour)
	require.NoError(t, list.Start(context.Background()))
	defer func() { _ = list.Stop() }()

	require.Eventually(t, func() bool {
		conversation, ok := st.Conversation("c1")
		return ok && conversation.UnreadCount == 2
	}, time.Second, 5*time.Millisecond)
}

func TestListSynchronizerSoftFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.listErr = context.DeadlineExceeded
	st := store.New()
	bus := events.NewInMemoryPublisher()

	list := NewListSynchronizer(backend, st, bus, time.Hour)
	require.NoError(t, list.Start(context.Background()))
	defer func() { _ = list.Stop() }()

	require.Eventually(t, func() bool { return backend.listCallCount() >= 1 }, time.Second, 5*time.Millisecond)
	// The failed poll leaves the store empty and raises nothing.
	require.Empty(t, st.Conversations(false))
}

func TestListSynchronizerForcedByDomainEvents(t *testing.T) {
	backend := newFakeBackend()
	st := store.New()
	bus := events.NewInMemoryPublisher()

	list := NewListSynchronizer(backend, st, bus, time.Hour)
	require.NoError(t, list.Start(context.Background()))
	defer func() { _ = list.Stop() }()

	require.Eventually(t, func() bool { return backend.listCallCount() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(context.Background(), models.MessageSent("c1", time.Now()))
	require.Eventually(t, func() bool { return backend.listCallCount() == 2 }, time.Second, 5*time.Millisecond)

	bus.Publish(context.Background(), models.ConversationMarkedRead("c1", time.Now()))
	require.Eventually(t, func() bool { return backend.listCallCount() == 3 }, time.Second, 5*time.Millisecond)
}

func TestListSynchronizerCoalescesOverlappingTriggers(t *testing.T) {
	backend := newFakeBackend()
	gate := make(chan struct{})
	backend.listGate = gate
	st := store.New()
	bus := events.NewInMemoryPublisher()

	list := NewListSynchronizer(backend, st, bus, time.Hour)
	require.NoError(t, list.Start(context.Background()))
	defer func() { _ = list.Stop() }()

	// First fetch is in flight behind the gate.
	require.Eventually(t, func() bool { return backend.listCallCount() == 1 }, time.Second, 5*time.Millisecond)

	// Two more triggers fire within the latency of that request.
	require.NoError(t, list.ForceNow())
	require.NoError(t, list.ForceNow())
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, backend.listCallCount(), "only one network call may be observed")

	close(gate)
}

func TestUnreadAggregatorReplacesValue(t *testing.T) {
	backend := newFakeBackend()
	backend.unread = 6
	st := store.New()
	bus := events.NewInMemoryPublisher()

	unread := NewUnreadAggregator(backend, st, bus, time.Hour)
	require.NoError(t, unread.Start(context.Background()))
	defer func() { _ = unread.Stop() }()

	require.Eventually(t, func() bool { return st.UnreadTotal() == 6 }, time.Second, 5*time.Millisecond)

	// A mark-read event forces the next fetch ahead of cadence.
	backend.mu.Lock()
	backend.unread = 0
	backend.mu.Unlock()
	bus.Publish(context.Background(), models.ConversationMarkedRead("c1", time.Now()))

	require.Eventually(t, func() bool { return st.UnreadTotal() == 0 }, time.Second, 5*time.Millisecond)
}

func TestUnreadAggregatorPublishesChangeEvent(t *testing.T) {
	backend := newFakeBackend()
	backend.unread = 4
	st := store.New()
	bus := events.NewInMemoryPublisher()

	published := 0
	require.NoError(t, bus.Subscribe("capture", events.Filter{
		EventTypes: []models.EventType{models.EventTypeUnreadChanged},
	}, func(*models.Event) { published++ }))

	unread := NewUnreadAggregator(backend, st, bus, time.Hour)
	ctx := context.Background()

	unread.tick(ctx)
	require.Equal(t, 4, st.UnreadTotal())
	require.Equal(t, 1, published)

	// Same value again: the badge did not move, nothing fires.
	unread.tick(ctx)
	require.Equal(t, 1, published)

	backend.mu.Lock()
	backend.unread = 1
	backend.mu.Unlock()
	unread.tick(ctx)
	require.Equal(t, 2, published)
}

func TestListSynchronizerForcedByUnreadChange(t *testing.T) {
	backend := newFakeBackend()
	st := store.New()
	bus := events.NewInMemoryPublisher()

	list := NewListSynchronizer(backend, st, bus, time.Hour)
	require.NoError(t, list.Start(context.Background()))
	defer func() { _ = list.Stop() }()

	require.Eventually(t, func() bool { return backend.listCallCount() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(context.Background(), &models.Event{Type: models.EventTypeUnreadChanged, Timestamp: time.Now()})
	require.Eventually(t, func() bool { return backend.listCallCount() == 2 }, time.Second, 5*time.Millisecond)
}
