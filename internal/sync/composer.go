package sync

import (
	"context"
	"time"

	"github.com/kallerud/lotline/internal/events"
	"github.com/kallerud/lotline/internal/logging"
	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/store"
	"github.com/rs/zerolog"
)

// Composer submits user-initiated writes: sends, conversation starts,
// archives. Unlike the background pollers its errors surface to the
// caller, and a failed send leaves the caller's draft untouched for a
// manual retry.
//
// There is no optimistic local echo: a sent message appears once the
// backend confirms it and the forced thread refresh lands. That trades
// perceived latency for never having to reconcile a phantom message.
type Composer struct {
	backend Backend
	store   *store.Store
	bus     events.Publisher
	logger  zerolog.Logger
	now     func() time.Time

	// selfID scopes start-request validation; empty disables the
	// self-messaging check.
	selfID string
}

// NewComposer creates a composer for the session user.
func NewComposer(backend Backend, st *store.Store, bus events.Publisher, selfID string) *Composer {
	return &Composer{
		backend: backend,
		store:   st,
		bus:     bus,
		logger:  logging.Component("composer"),
		now:     time.Now,
		selfID:  selfID,
	}
}

// Send validates and submits a draft. On success it publishes
// message.sent, which forces the thread and list synchronizers to fetch
// immediately instead of waiting for their next tick.
func (c *Composer) Send(ctx context.Context, draft models.Draft) (*models.Message, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	message, err := c.backend.SendMessage(ctx, draft)
	if err != nil {
		c.logger.Warn().Err(err).Str("conversation_id", draft.ConversationID).Msg("send failed")
		return nil, err
	}

	c.bus.Publish(ctx, models.MessageSent(draft.ConversationID, c.now()))
	return message, nil
}

// Start asks the backend for a conversation with another participant.
// The returned conversation may be a pre-existing one when the pairing
// already exists; the server's row is adopted unconditionally.
func (c *Composer) Start(ctx context.Context, req models.StartRequest) (*models.Conversation, error) {
	if err := req.Validate(c.selfID); err != nil {
		return nil, err
	}

	requestedAt := c.now()
	conversation, err := c.backend.StartConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	c.store.UpsertConversation(conversation, requestedAt)
	c.bus.Publish(ctx, &models.Event{
		Type:           models.EventTypeConversationStarted,
		ConversationID: conversation.ID,
		Timestamp:      c.now(),
	})
	return conversation, nil
}

// Archive removes a conversation from the default list view.
func (c *Composer) Archive(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return models.ErrMissingConversationID
	}

	if err := c.backend.ArchiveConversation(ctx, conversationID); err != nil {
		return err
	}

	c.store.SetArchived(conversationID)
	c.bus.Publish(ctx, &models.Event{
		Type:           models.EventTypeConversationArchived,
		ConversationID: conversationID,
		Timestamp:      c.now(),
	})
	return nil
}
