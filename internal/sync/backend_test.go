package sync

import (
	"context"
	gosync "sync"

	"github.com/kallerud/lotline/internal/api"
	"github.com/kallerud/lotline/internal/models"
)

// fakeBackend records calls and serves canned responses. A non-nil gate
// channel makes list fetches block until the gate is closed, to simulate
// slow polls.
type fakeBackend struct {
	mu gosync.Mutex

	conversations []models.Conversation
	listErr       error
	listCalls     int
	listGate      chan struct{}

	details     map[string]*api.ConversationDetail
	detailErr   error
	detailCalls int

	markErr   error
	markCalls []string

	sendErr    error
	sendResult *models.Message
	sent       []models.Draft

	startResult *models.Conversation
	startErr    error

	archiveCalls []string

	unread      int
	unreadErr   error
	unreadCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{details: make(map[string]*api.ConversationDetail)}
}

func (f *fakeBackend) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	err := f.listErr
	out := append([]models.Conversation(nil), f.conversations...)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeBackend) GetConversation(ctx context.Context, conversationID string) (*api.ConversationDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	detail, ok := f.details[conversationID]
	if !ok {
		return nil, &api.APIError{Status: 404, Message: "not found"}
	}
	return detail, nil
}

func (f *fakeBackend) StartConversation(ctx context.Context, req models.StartRequest) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.startResult, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, draft models.Draft) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, draft)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResult != nil {
		return f.sendResult, nil
	}
	return &models.Message{ID: "m-sent", ConversationID: draft.ConversationID, Content: draft.Content}, nil
}

func (f *fakeBackend) MarkConversationRead(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls = append(f.markCalls, conversationID)
	return f.markErr
}

func (f *fakeBackend) ArchiveConversation(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archiveCalls = append(f.archiveCalls, conversationID)
	return nil
}

func (f *fakeBackend) UnreadCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadCalls++
	if f.unreadErr != nil {
		return 0, f.unreadErr
	}
	return f.unread, nil
}

func (f *fakeBackend) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeBackend) markCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.markCalls)
}
