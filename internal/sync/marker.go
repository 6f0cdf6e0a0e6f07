package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/kallerud/lotline/internal/events"
	"github.com/kallerud/lotline/internal/logging"
	"github.com/kallerud/lotline/internal/models"
	"github.com/kallerud/lotline/internal/store"
	"github.com/rs/zerolog"
)

// MarkState is the read-state marker's per-session state machine.
type MarkState string

const (
	// MarkStateUnmarked means no mark attempt has succeeded this session.
	MarkStateUnmarked MarkState = "unmarked"

	// MarkStateMarking means the remote call is in flight.
	MarkStateMarking MarkState = "marking"

	// MarkStateMarked means the backend acknowledged the mark.
	MarkStateMarked MarkState = "marked"
)

// ReadMarker transitions a conversation's unread state to zero, remotely
// and locally, at most once per conversation-open session. A new marker
// is created each time a conversation is opened, which is what resets
// the one-shot guard; re-renders of the hosting view reuse the same
// marker and cannot re-fire it.
type ReadMarker struct {
	conversationID string
	backend        Backend
	store          *store.Store
	bus            events.Publisher
	logger         zerolog.Logger
	now            func() time.Time

	mu        gosync.Mutex
	state     MarkState
	attempted bool
}

// NewReadMarker creates a marker session for one opened conversation.
func NewReadMarker(conversationID string, backend Backend, st *store.Store, bus events.Publisher) *ReadMarker {
	return &ReadMarker{
		conversationID: conversationID,
		backend:        backend,
		store:          st,
		bus:            bus,
		logger:         logging.Component("read-marker").With().Str("conversation_id", conversationID).Logger(),
		now:            time.Now,
	}
}

// ConversationID returns the conversation this session covers.
func (m *ReadMarker) ConversationID() string {
	return m.conversationID
}

// State returns the current machine state.
func (m *ReadMarker) State() MarkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == "" {
		return MarkStateUnmarked
	}
	return m.state
}

// MaybeMark fires the remote mark-read call if the conversation's last
// known unread count is positive and no attempt has been made this
// session. Safe to call repeatedly; only the first qualifying call does
// anything. The remote call is idempotent server-side.
func (m *ReadMarker) MaybeMark(ctx context.Context) {
	conversation, ok := m.store.Conversation(m.conversationID)
	if !ok || conversation.UnreadCount == 0 {
		return
	}

	m.mu.Lock()
	if m.attempted || m.state == MarkStateMarking || m.state == MarkStateMarked {
		m.mu.Unlock()
		return
	}
	m.state = MarkStateMarking
	m.attempted = true
	m.mu.Unlock()

	startedAt := m.now()
	// From here, list responses requested before startedAt can no longer
	// overwrite this conversation's unread count.
	m.store.BeginReadMark(m.conversationID, startedAt)

	if err := m.backend.MarkConversationRead(ctx, m.conversationID); err != nil {
		m.store.AbortReadMark(m.conversationID, startedAt)

		m.mu.Lock()
		m.state = MarkStateUnmarked
		m.mu.Unlock()

		// Best-effort state, silent failure. The attempted flag blocks
		// an in-session retry; reopening the conversation makes a fresh
		// session that may try again.
		m.logger.Debug().Err(err).Msg("mark-read failed")
		return
	}

	m.store.ApplyReadMark(m.conversationID, m.now())

	m.mu.Lock()
	m.state = MarkStateMarked
	m.mu.Unlock()

	// The list synchronizer and unread aggregator react to this by
	// forcing their next fetch, so the badge catches up promptly.
	m.bus.Publish(ctx, models.ConversationMarkedRead(m.conversationID, m.now()))
	m.logger.Debug().Msg("conversation marked read")
}
