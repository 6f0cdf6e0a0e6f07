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

// UnreadAggregator polls the global unread scalar for the badge. It is
// deliberately decoupled from which conversation is open: the badge must
// be right even when no thread is.
type UnreadAggregator struct {
	backend   Backend
	store     *store.Store
	bus       events.Publisher
	scheduler *Scheduler
	logger    zerolog.Logger

	subscriptionID string
}

// NewUnreadAggregator creates the badge poller with the given cadence.
func NewUnreadAggregator(backend Backend, st *store.Store, bus events.Publisher, interval time.Duration) *UnreadAggregator {
	u := &UnreadAggregator{
		backend: backend,
		store:   st,
		bus:     bus,
		logger:  logging.Component("unread-sync"),
	}
	u.scheduler = NewScheduler("unread-sync", interval, u.tick)
	return u
}

// Start begins polling and subscribes to events that move the badge.
func (u *UnreadAggregator) Start(ctx context.Context) error {
	if err := u.scheduler.Start(ctx); err != nil {
		return err
	}

	u.subscriptionID = "unread-sync-" + uuid.New().String()
	err := u.bus.Subscribe(u.subscriptionID, events.Filter{
		EventTypes: []models.EventType{
			models.EventTypeConversationMarkedRead,
			models.EventTypeMessageSent,
		},
	}, func(event *models.Event) {
		_ = u.scheduler.ForceNow()
	})
	if err != nil {
		_ = u.scheduler.Stop()
		return err
	}
	return nil
}

// Stop halts polling and unsubscribes from the bus.
func (u *UnreadAggregator) Stop() error {
	if u.subscriptionID != "" {
		_ = u.bus.Unsubscribe(u.subscriptionID)
		u.subscriptionID = ""
	}
	return u.scheduler.Stop()
}

// ForceNow requests an immediate fetch.
func (u *UnreadAggregator) ForceNow() error {
	return u.scheduler.ForceNow()
}

func (u *UnreadAggregator) tick(ctx context.Context) {
	count, err := api.WithRetryOnce(ctx, u.logger, "unread-count", func() (int, error) {
		return u.backend.UnreadCount(ctx)
	})
	if err != nil {
		u.logger.Debug().Err(err).Msg("unread poll failed")
		return
	}

	// Full replacement each tick; no merge logic for a scalar.
	previous := u.store.UnreadTotal()
	u.store.SetUnreadTotal(count)

	if count != previous {
		u.bus.Publish(ctx, &models.Event{
			Type:      models.EventTypeUnreadChanged,
			Timestamp: time.Now(),
		})
	}
}
