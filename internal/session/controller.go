// Package session owns the lifetime of one messaging session: the store,
// the event bus, the polling synchronizers, and the open-conversation
// scope. Mounting and unmounting go through the controller, so
// cancellation is explicit instead of being tied to a view.
package session

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"

	"github.com/kallerud/lotline/internal/events"
	"github.com/kallerud/lotline/internal/logging"
	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/store"
	"github.com/kallerud/lotline/internal/sync"
	"github.com/rs/zerolog"
)

// Controller errors.
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotStarted     = errors.New("session not started")
)

// Controller wires the sync subsystem together for one signed-in user.
type Controller struct {
	cfg      sync.Config
	backend  sync.Backend
	store    *store.Store
	bus      events.Publisher
	composer *sync.Composer
	logger   zerolog.Logger

	mu      gosync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	list    *sync.ListSynchronizer
	unread  *sync.UnreadAggregator
	thread  *sync.ThreadSynchronizer

	// marker is the one-shot read-state session for the open
	// conversation. Stored atomically because store notifications read
	// it without taking the controller lock.
	marker atomic.Pointer[sync.ReadMarker]

	unsubscribeStore func()
}

// NewController creates a session controller. selfID is the signed-in
// user, used for composer validation.
func NewController(backend sync.Backend, st *store.Store, bus events.Publisher, cfg sync.Config, selfID string) *Controller {
	return &Controller{
		cfg:      cfg,
		backend:  backend,
		store:    st,
		bus:      bus,
		composer: sync.NewComposer(backend, st, bus, selfID),
		logger:   logging.Component("session"),
	}
}

// Store exposes the canonical cache for views.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Composer exposes user-initiated writes.
func (c *Controller) Composer() *sync.Composer {
	return c.composer
}

// Start mounts the session: the list synchronizer and unread aggregator
// begin polling, and store changes start feeding the read-state marker.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	c.list = sync.NewListSynchronizer(c.backend, c.store, c.bus, c.cfg.ListInterval)
	c.unread = sync.NewUnreadAggregator(c.backend, c.store, c.bus, c.cfg.UnreadInterval)

	if err := c.list.Start(c.ctx); err != nil {
		c.cancel()
		return err
	}
	if err := c.unread.Start(c.ctx); err != nil {
		_ = c.list.Stop()
		c.cancel()
		return err
	}

	// The marker's trigger condition is "open AND unread > 0". The
	// unread count may only become known after a later poll, so every
	// relevant store change re-offers the marker a chance to fire; its
	// own state machine keeps it one-shot.
	c.unsubscribeStore = c.store.Subscribe(func(change store.Change) {
		marker := c.marker.Load()
		if marker == nil {
			return
		}
		if change.Kind != store.ChangeList && change.ConversationID != marker.ConversationID() {
			return
		}
		go marker.MaybeMark(c.ctx)
	})

	c.started = true
	c.logger.Info().Msg("messaging session started")
	return nil
}

// Open makes a conversation the current one. Any previous thread loop is
// stopped first, so no two thread loops run concurrently, and a fresh
// read-marker session begins for the newly opened conversation.
func (c *Controller) Open(conversationID string) error {
	if conversationID == "" {
		return models.ErrMissingConversationID
	}

	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}

	if c.thread != nil {
		if c.thread.ConversationID() == conversationID {
			c.mu.Unlock()
			return nil
		}
		_ = c.thread.Stop()
		c.thread = nil
	}
	c.marker.Store(nil)

	thread := sync.NewThreadSynchronizer(conversationID, c.backend, c.store, c.bus, c.cfg.ThreadInterval)
	if err := thread.Start(c.ctx); err != nil {
		c.mu.Unlock()
		return err
	}
	c.thread = thread

	marker := sync.NewReadMarker(conversationID, c.backend, c.store, c.bus)
	c.marker.Store(marker)
	ctx := c.ctx
	c.mu.Unlock()

	// SetOpenConversation notifies subscribers synchronously; the
	// controller lock must not be held here.
	c.store.SetOpenConversation(conversationID)

	// If the unread count is already known, mark without waiting for the
	// first thread poll.
	go marker.MaybeMark(ctx)

	c.logger.Debug().Str("conversation_id", conversationID).Msg("conversation opened")
	return nil
}

// Close leaves the current conversation. The thread loop stops and its
// in-flight fetch, if any, unwinds without being applied.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.thread != nil {
		_ = c.thread.Stop()
		c.thread = nil
	}
	c.marker.Store(nil)
	c.mu.Unlock()

	c.store.SetOpenConversation("")
}

// OpenConversationID returns the current conversation id, or "".
func (c *Controller) OpenConversationID() string {
	return c.store.OpenConversation()
}

// ForceRefresh forces the list synchronizer's next fetch, e.g. for a
// user-initiated pull-to-refresh.
func (c *Controller) ForceRefresh() {
	c.mu.Lock()
	list := c.list
	c.mu.Unlock()
	if list != nil {
		_ = list.ForceNow()
	}
}

// Shutdown unmounts the whole session: all timers stop and in-flight
// responses are discarded via context cancellation.
func (c *Controller) Shutdown() {
	c.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}
	if c.unsubscribeStore != nil {
		c.unsubscribeStore()
		c.unsubscribeStore = nil
	}
	_ = c.list.Stop()
	_ = c.unread.Stop()
	c.cancel()
	c.started = false
	c.logger.Info().Msg("messaging session stopped")
}
