package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kallerud/lotline/internal/api"
	"github.com/kallerud/lotline/internal/events"
	"github.com/kallerud/lotline/internal/logging"
	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/store"
	"github.com/rs/zerolog"
)

// ThreadSynchronizer polls one conversation's full message list while
// that conversation is open. The session controller creates a fresh one
// per opened conversation and stops the previous one first, so no two
// thread loops ever run concurrently.
type ThreadSynchronizer struct {
	conversationID string
	backend        Backend
	store          *store.Store
	bus            events.Publisher
	scheduler      *Scheduler
	logger         zerolog.Logger
	now            func() time.Time

	subscriptionID string
}

// NewThreadSynchronizer creates a synchronizer for one conversation.
func NewThreadSynchronizer(conversationID string, backend Backend, st *store.Store, bus events.Publisher, interval time.Duration) *ThreadSynchronizer {
	t := &ThreadSynchronizer{
		conversationID: conversationID,
		backend:        backend,
		store:          st,
		bus:            bus,
		logger:         logging.Component("thread-sync").With().Str("conversation_id", conversationID).Logger(),
		now:            time.Now,
	}
	t.scheduler = NewScheduler("thread-sync", interval, t.tick)
	return t
}

// Start begins polling and reacts to sends into this conversation.
func (t *ThreadSynchronizer) Start(ctx context.Context) error {
	if err := t.scheduler.Start(ctx); err != nil {
		return err
	}

	t.subscriptionID = "thread-sync-" + uuid.New().String()
	err := t.bus.Subscribe(t.subscriptionID, events.Filter{
		EventTypes:     []models.EventType{models.EventTypeMessageSent},
		ConversationID: t.conversationID,
	}, func(event *models.Event) {
		_ = t.scheduler.ForceNow()
	})
	if err != nil {
		_ = t.scheduler.Stop()
		return err
	}
	return nil
}

// Stop cancels the loop. An in-flight fetch is allowed to complete but
// its context is cancelled, so nothing further is applied.
func (t *ThreadSynchronizer) Stop() error {
	if t.subscriptionID != "" {
		_ = t.bus.Unsubscribe(t.subscriptionID)
		t.subscriptionID = ""
	}
	return t.scheduler.Stop()
}

// ForceNow requests an immediate fetch.
func (t *ThreadSynchronizer) ForceNow() error {
	return t.scheduler.ForceNow()
}

// ConversationID returns the conversation this synchronizer serves.
func (t *ThreadSynchronizer) ConversationID() string {
	return t.conversationID
}

func (t *ThreadSynchronizer) tick(ctx context.Context) {
	requestedAt := t.now()

	detail, err := api.WithRetryOnce(ctx, t.logger, "get-conversation", func() (*api.ConversationDetail, error) {
		return t.backend.GetConversation(ctx, t.conversationID)
	})
	if err != nil {
		t.logger.Debug().Err(err).Msg("thread poll failed")
		return
	}

	if detail.Conversation.ID != t.conversationID {
		// Defensive: a mismatched payload is never applied.
		t.logger.Warn().Str("got", detail.Conversation.ID).Msg("thread response for wrong conversation discarded")
		return
	}

	if open := t.store.OpenConversation(); open != t.conversationID {
		// Stale scope: the user moved on while this fetch was in
		// flight. The cache still benefits from the data; the open
		// indicator is untouched by ApplyThread.
		t.logger.Debug().Str("open", open).Msg("merging stale-scope thread response into cache")
	}

	t.store.ApplyThread(detail.Conversation, detail.Messages, requestedAt)
}
