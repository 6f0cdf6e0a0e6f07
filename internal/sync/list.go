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

// ListSynchronizer keeps the conversation list reconciled. It runs for
// the whole messaging session and reacts to domain events (send, mark,
// start, archive) by forcing its next fetch instead of waiting out the
// interval.
type ListSynchronizer struct {
	backend   Backend
	store     *store.Store
	bus       events.Publisher
	scheduler *Scheduler
	logger    zerolog.Logger
	now       func() time.Time

	subscriptionID string
}

// NewListSynchronizer creates a list synchronizer with the given cadence.
func NewListSynchronizer(backend Backend, st *store.Store, bus events.Publisher, interval time.Duration) *ListSynchronizer {
	l := &ListSynchronizer{
		backend: backend,
		store:   st,
		bus:     bus,
		logger:  logging.Component("list-sync"),
		now:     time.Now,
	}
	l.scheduler = NewScheduler("list-sync", interval, l.tick)
	return l
}

// Start begins polling and subscribes to invalidating domain events.
func (l *ListSynchronizer) Start(ctx context.Context) error {
	if err := l.scheduler.Start(ctx); err != nil {
		return err
	}

	l.subscriptionID = "list-sync-" + uuid.New().String()
	err := l.bus.Subscribe(l.subscriptionID, events.Filter{
		EventTypes: []models.EventType{
			models.EventTypeMessageSent,
			models.EventTypeConversationMarkedRead,
			models.EventTypeConversationStarted,
			models.EventTypeConversationArchived,
			// A moved badge means per-conversation counts moved too.
			models.EventTypeUnreadChanged,
		},
	}, func(event *models.Event) {
		l.logger.Debug().Str("event", string(event.Type)).Msg("forcing list refresh")
		_ = l.scheduler.ForceNow()
	})
	if err != nil {
		_ = l.scheduler.Stop()
		return err
	}
	return nil
}

// Stop halts polling and unsubscribes from the bus.
func (l *ListSynchronizer) Stop() error {
	if l.subscriptionID != "" {
		_ = l.bus.Unsubscribe(l.subscriptionID)
		l.subscriptionID = ""
	}
	return l.scheduler.Stop()
}

// ForceNow requests an immediate fetch.
func (l *ListSynchronizer) ForceNow() error {
	return l.scheduler.ForceNow()
}

func (l *ListSynchronizer) tick(ctx context.Context) {
	requestedAt := l.now()

	conversations, err := api.WithRetryOnce(ctx, l.logger, "list-conversations", func() ([]models.Conversation, error) {
		return l.backend.ListConversations(ctx)
	})
	if err != nil {
		// Background poll failures are soft; last known state stands
		// until the next tick.
		l.logger.Debug().Err(err).Msg("list poll failed")
		return
	}

	l.store.ApplyList(conversations, requestedAt)
}
