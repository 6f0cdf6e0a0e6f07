// Package sync contains the polling synchronizers that reconcile the
// conversation store with the backend: the list and thread synchronizers,
// the unread aggregator, the read-state marker, and the composer.
package sync

import (
	"context"
	"time"

	"github.com/kallerud/lotline/internal/api"
	"github.com/kallerud/lotline/internal/models"
)

// Reference cadences. The thread is polled fastest because an open
// thread is the user's current focus; the badge scalar slowest.
const (
	DefaultListInterval   = 5 * time.Second
	DefaultThreadInterval = 3 * time.Second
	DefaultUnreadInterval = 10 * time.Second
)

// Backend is the slice of the REST API the synchronizers consume.
// *api.Client satisfies it; tests substitute fakes.
type Backend interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*api.ConversationDetail, error)
	StartConversation(ctx context.Context, req models.StartRequest) (*models.Conversation, error)
	SendMessage(ctx context.Context, draft models.Draft) (*models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID string) error
	ArchiveConversation(ctx context.Context, conversationID string) error
	UnreadCount(ctx context.Context) (int, error)
}

// Config contains the poll cadences for one messaging session.
type Config struct {
	// ListInterval is the conversation-list poll cadence.
	ListInterval time.Duration

	// ThreadInterval is the open-thread poll cadence.
	ThreadInterval time.Duration

	// UnreadInterval is the global unread badge poll cadence.
	UnreadInterval time.Duration
}

// DefaultConfig returns the reference cadences.
func DefaultConfig() Config {
	return Config{
		ListInterval:   DefaultListInterval,
		ThreadInterval: DefaultThreadInterval,
		UnreadInterval: DefaultUnreadInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.ListInterval <= 0 {
		c.ListInterval = DefaultListInterval
	}
	if c.ThreadInterval <= 0 {
		c.ThreadInterval = DefaultThreadInterval
	}
	if c.UnreadInterval <= 0 {
		c.UnreadInterval = DefaultUnreadInterval
	}
	return c
}
