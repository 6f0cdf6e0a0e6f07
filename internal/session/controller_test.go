package session

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/kallerud/lotline/internal/api"
	"github.com/kallerud/lotline/internal/events"
	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/store"
	"github.com/kallerud/lotline/internal/sync"
	"github.com/stretchr/testify/require"
)

type scriptedBackend struct {
	mu gosync.Mutex

	conversations []models.Conversation
	details       map[string]*api.ConversationDetail
	unread        int

	markCalls   []string
	detailCalls map[string]int
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{
		details:     make(map[string]*api.ConversationDetail),
		detailCalls: make(map[string]int),
	}
}

func (b *scriptedBackend) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Conversation(nil), b.conversations...), nil
}

func (b *scriptedBackend) GetConversation(ctx context.Context, conversationID string) (*api.ConversationDetail, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detailCalls[conversationID]++
	detail, ok := b.details[conversationID]
	if !ok {
		return nil, &api.APIError{Status: 404}
	}
	return detail, nil
}

func (b *scriptedBackend) StartConversation(ctx context.Context, req models.StartRequest) (*models.Conversation, error) {
	return &models.Conversation{ID: "c-new", UpdatedAt: time.Now()}, nil
}

func (b *scriptedBackend) SendMessage(ctx context.Context, draft models.Draft) (*models.Message, error) {
	return &models.Message{ID: "m-sent", ConversationID: draft.ConversationID}, nil
}

func (b *scriptedBackend) MarkConversationRead(ctx context.Context, conversationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markCalls = append(b.markCalls, conversationID)
	// Mirror the backend: marking zeroes the list's unread count.
	for i := range b.conversations {
		if b.conversations[i].ID == conversationID {
			b.conversations[i].UnreadCount = 0
		}
	}
	return nil
}

func (b *scriptedBackend) ArchiveConversation(ctx context.Context, conversationID string) error {
	return nil
}

func (b *scriptedBackend) UnreadCount(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unread, nil
}

func (b *scriptedBackend) markCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.markCalls)
}

func (b *scriptedBackend) detailCount(id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detailCalls[id]
}

func fastConfig() sync.Config {
	return sync.Config{
		ListInterval:   20 * time.Millisecond,
		ThreadInterval: 10 * time.Millisecond,
		UnreadInterval: 40 * time.Millisecond,
	}
}

func newTestController(t *testing.T, backend *scriptedBackend) *Controller {
	t.Helper()
	controller := NewController(backend, store.New(), events.NewInMemoryPublisher(), fastConfig(), "u1")
	require.NoError(t, controller.Start(context.Background()))
	t.Cleanup(controller.Shutdown)
	return controller
}

func TestControllerStartIsExclusive(t *testing.T) {
	controller := newTestController(t, newScriptedBackend())
	require.ErrorIs(t, controller.Start(context.Background()), ErrAlreadyStarted)
}

func TestControllerOpenRequiresStart(t *testing.T) {
	controller := NewController(newScriptedBackend(), store.New(), events.NewInMemoryPublisher(), fastConfig(), "u1")
	require.ErrorIs(t, controller.Open("c1"), ErrNotStarted)
}

func TestOpenMarksUnreadConversationExactlyOnce(t *testing.T) {
	backend := newScriptedBackend()
	now := time.Now()
	backend.conversations = []models.Conversation{
		{ID: "c1", UnreadCount: 3, UpdatedAt: now},
	}
	backend.details["c1"] = &api.ConversationDetail{
		Conversation: models.Conversation{ID: "c1", UnreadCount: 3, UpdatedAt: now},
	}

	controller := newTestController(t, backend)

	// Wait until the list poll has seeded the unread count.
	require.Eventually(t, func() bool {
		conversation, ok := controller.Store().Conversation("c1")
		return ok && conversation.UnreadCount == 3
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, controller.Open("c1"))

	require.Eventually(t, func() bool { return backend.markCount() == 1 }, time.Second, 5*time.Millisecond)

	// The next list value for the conversation shows zero unread.
	require.Eventually(t, func() bool {
		conversation, _ := controller.Store().Conversation("c1")
		return conversation != nil && conversation.UnreadCount == 0
	}, time.Second, 5*time.Millisecond)

	// Thread polls and re-renders keep offering the marker chances to
	// fire; it must not.
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, 1, backend.markCount(), "mark-as-read issued exactly once per session")
}

func TestSwitchingConversationsStopsPreviousLoop(t *testing.T) {
	backend := newScriptedBackend()
	now := time.Now()
	backend.details["c1"] = &api.ConversationDetail{
		Conversation: models.Conversation{ID: "c1", UpdatedAt: now},
	}
	backend.details["c2"] = &api.ConversationDetail{
		Conversation: models.Conversation{ID: "c2", UpdatedAt: now},
	}

	controller := newTestController(t, backend)

	require.NoError(t, controller.Open("c1"))
	require.Eventually(t, func() bool { return backend.detailCount("c1") >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, controller.Open("c2"))
	require.Equal(t, "c2", controller.OpenConversationID())

	// c1's loop is stopped; after a settle period its call count stays put.
	settled := backend.detailCount("c1")
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, settled, backend.detailCount("c1"), "previous thread loop must be cancelled")
	require.Greater(t, backend.detailCount("c2"), 0)
}

func TestOpenSameConversationIsNoop(t *testing.T) {
	backend := newScriptedBackend()
	backend.details["c1"] = &api.ConversationDetail{
		Conversation: models.Conversation{ID: "c1", UpdatedAt: time.Now()},
	}
	controller := newTestController(t, backend)

	require.NoError(t, controller.Open("c1"))
	require.NoError(t, controller.Open("c1"))
	require.Equal(t, "c1", controller.OpenConversationID())
}

func TestCloseStopsThreadPolling(t *testing.T) {
	backend := newScriptedBackend()
	backend.details["c1"] = &api.ConversationDetail{
		Conversation: models.Conversation{ID: "c1", UpdatedAt: time.Now()},
	}
	controller := newTestController(t, backend)

	require.NoError(t, controller.Open("c1"))
	require.Eventually(t, func() bool { return backend.detailCount("c1") >= 1 }, time.Second, 5*time.Millisecond)

	controller.Close()
	require.Empty(t, controller.OpenConversationID())

	settled := backend.detailCount("c1")
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, settled, backend.detailCount("c1"))
}

func TestSendForcesThreadAndListRefresh(t *testing.T) {
	backend := newScriptedBackend()
	now := time.Now()
	backend.details["c1"] = &api.ConversationDetail{
		Conversation: models.Conversation{ID: "c1", UpdatedAt: now},
	}

	controller := NewController(backend, store.New(), events.NewInMemoryPublisher(), sync.Config{
		// Long cadences: any refresh observed below is event-driven.
		ListInterval:   time.Hour,
		ThreadInterval: time.Hour,
		UnreadInterval: time.Hour,
	}, "u1")
	require.NoError(t, controller.Start(context.Background()))
	t.Cleanup(controller.Shutdown)

	require.NoError(t, controller.Open("c1"))
	require.Eventually(t, func() bool { return backend.detailCount("c1") == 1 }, time.Second, 5*time.Millisecond)

	_, err := controller.Composer().Send(context.Background(), models.Draft{
		ConversationID: "c1",
		Content:        "ping",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return backend.detailCount("c1") == 2 }, time.Second, 5*time.Millisecond,
		"send must force an immediate thread refresh")
}
