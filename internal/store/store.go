// Package store holds the canonical client-side cache of conversations
// and messages. Every synchronizer writes here and every view reads from
// here; nothing in this package performs I/O.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kallerud/lotline/internal/logging"
	"github.com/kallerud/lotline/internal/models"
	"github.com/rs/zerolog"
)

// ChangeKind categorizes store notifications.
type ChangeKind string

const (
	ChangeList   ChangeKind = "list"
	ChangeThread ChangeKind = "thread"
	ChangeUnread ChangeKind = "unread"
	ChangeOpen   ChangeKind = "open"
)

// Change describes an applied write, for reactive views.
type Change struct {
	Kind           ChangeKind
	ConversationID string
}

// Subscriber receives change notifications after each applied write.
type Subscriber func(Change)

// conversationEntry is the cached state for one conversation.
type conversationEntry struct {
	conversation *models.Conversation

	// messages are merged by id; ordered is kept sorted by the
	// (CreatedAt, ID) rendering key.
	messages map[string]*models.Message
	ordered  []*models.Message

	// markStartedAt is the unread precedence watermark: the start time of
	// a mark-read call in flight, advanced to the completion time once the
	// mark is applied. A list response whose request started earlier must
	// not overwrite UnreadCount; response arrival order proves nothing
	// under concurrent polls.
	markStartedAt time.Time
}

// Store is the single shared mutable resource of the sync subsystem.
type Store struct {
	mu     sync.RWMutex
	logger zerolog.Logger

	conversations map[string]*conversationEntry
	openID        string
	unreadTotal   int

	subscribers map[string]Subscriber
}

// New creates an empty store.
func New() *Store {
	return &Store{
		logger:        logging.Component("store"),
		conversations: make(map[string]*conversationEntry),
		subscribers:   make(map[string]Subscriber),
	}
}

// Subscribe registers a change handler and returns an unsubscribe func.
func (s *Store) Subscribe(handler Subscriber) func() {
	id := uuid.New().String()

	s.mu.Lock()
	s.subscribers[id] = handler
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// notify invokes subscribers outside the lock.
func (s *Store) notify(change Change) {
	s.mu.RLock()
	handlers := make([]Subscriber, 0, len(s.subscribers))
	for _, handler := range s.subscribers {
		handlers = append(handlers, handler)
	}
	s.mu.RUnlock()

	for _, handler := range handlers {
		handler(change)
	}
}

func (s *Store) entry(id string) *conversationEntry {
	entry, ok := s.conversations[id]
	if !ok {
		entry = &conversationEntry{
			messages: make(map[string]*models.Message),
		}
		s.conversations[id] = entry
	}
	return entry
}

// applyConversation merges a server conversation row into an entry with
// field-level last-writer-wins, except for the unread precedence rule.
// It reports whether the incoming unread count was suppressed.
func (entry *conversationEntry) applyConversation(incoming *models.Conversation, requestedAt time.Time) bool {
	keepUnread := -1
	if entry.conversation != nil && requestedAt.Before(entry.markStartedAt) {
		// The server built this response before the mark-read call
		// started; its unread count is stale by construction.
		keepUnread = entry.conversation.UnreadCount
	}

	merged := incoming.Clone()
	if entry.conversation != nil {
		if merged.Subject == "" {
			merged.Subject = entry.conversation.Subject
		}
		if merged.LastMessage == nil {
			merged.LastMessage = entry.conversation.LastMessage
		}
		// UpdatedAt is monotonic per conversation; never move it back.
		if merged.UpdatedAt.Before(entry.conversation.UpdatedAt) {
			merged.UpdatedAt = entry.conversation.UpdatedAt
		}
	}
	if keepUnread >= 0 {
		merged.UnreadCount = keepUnread
	}
	entry.conversation = merged
	return keepUnread >= 0
}

// ApplyList upserts a conversation-list response. Entries absent from the
// response are preserved; the list endpoint is assumed total, so this is
// purely defensive against partial responses. requestedAt is when the
// request was started, not when the response arrived.
func (s *Store) ApplyList(conversations []models.Conversation, requestedAt time.Time) {
	s.mu.Lock()
	for i := range conversations {
		incoming := &conversations[i]
		if incoming.ID == "" {
			continue
		}
		if s.entry(incoming.ID).applyConversation(incoming, requestedAt) {
			s.logger.Debug().
				Str("conversation_id", incoming.ID).
				Msg("suppressed stale unread count from list response")
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeList})
}

// ApplyThread merges one conversation's detail response. Messages merge
// by id so an out-of-order duplicate poll can never reorder or drop
// already-rendered messages. The open-conversation indicator is not
// touched here; stale-scope responses still warm the cache.
func (s *Store) ApplyThread(conversation models.Conversation, messages []models.Message, requestedAt time.Time) {
	if conversation.ID == "" {
		return
	}

	s.mu.Lock()
	entry := s.entry(conversation.ID)
	entry.applyConversation(&conversation, requestedAt)

	changed := false
	for i := range messages {
		incoming := &messages[i]
		if incoming.ID == "" {
			continue
		}
		if existing, ok := entry.messages[incoming.ID]; ok {
			// Messages are append-only and immutable except for the
			// read transition.
			if incoming.IsRead && !existing.IsRead {
				existing.IsRead = true
				existing.ReadAt = incoming.Clone().ReadAt
			}
			continue
		}
		clone := incoming.Clone()
		entry.messages[incoming.ID] = clone
		entry.ordered = append(entry.ordered, clone)
		changed = true
	}
	if changed {
		sort.SliceStable(entry.ordered, func(i, j int) bool {
			return entry.ordered[i].Before(entry.ordered[j])
		})
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeThread, ConversationID: conversation.ID})
}

// UpsertConversation applies a single server conversation row, e.g. the
// result of a start-conversation call. The server response is trusted
// unconditionally; if it returns an existing id, the row replaces the
// cached fields and the message history stays merged by id.
func (s *Store) UpsertConversation(conversation *models.Conversation, requestedAt time.Time) {
	if conversation == nil || conversation.ID == "" {
		return
	}
	s.mu.Lock()
	s.entry(conversation.ID).applyConversation(conversation, requestedAt)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeList, ConversationID: conversation.ID})
}

// BeginReadMark records that a mark-read call started for a conversation
// at the given time. From this point, list responses requested earlier
// can no longer overwrite the conversation's unread count.
func (s *Store) BeginReadMark(conversationID string, startedAt time.Time) {
	s.mu.Lock()
	entry := s.entry(conversationID)
	if startedAt.After(entry.markStartedAt) {
		entry.markStartedAt = startedAt
	}
	s.mu.Unlock()
}

// ApplyReadMark zeroes the conversation's unread count after the backend
// acknowledged the mark. The precedence guard advances to the completion
// time: a list response requested while the mark was in flight carries an
// unread count the server computed before the mark landed.
func (s *Store) ApplyReadMark(conversationID string, readAt time.Time) {
	s.mu.Lock()
	entry := s.entry(conversationID)
	if entry.conversation != nil {
		entry.conversation.UnreadCount = 0
	}
	if readAt.After(entry.markStartedAt) {
		entry.markStartedAt = readAt
	}
	at := readAt
	for _, message := range entry.messages {
		if !message.IsRead {
			message.IsRead = true
			message.ReadAt = &at
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeList, ConversationID: conversationID})
}

// AbortReadMark clears the precedence guard after a failed mark, so later
// list responses apply normally again.
func (s *Store) AbortReadMark(conversationID string, startedAt time.Time) {
	s.mu.Lock()
	entry := s.entry(conversationID)
	if entry.markStartedAt.Equal(startedAt) {
		entry.markStartedAt = time.Time{}
	}
	s.mu.Unlock()
}

// SetArchived flags a conversation archived locally after the backend
// acknowledged the archive call.
func (s *Store) SetArchived(conversationID string) {
	s.mu.Lock()
	entry, ok := s.conversations[conversationID]
	if ok && entry.conversation != nil {
		entry.conversation.Archived = true
	}
	s.mu.Unlock()
	if ok {
		s.notify(Change{Kind: ChangeList, ConversationID: conversationID})
	}
}

// SetOpenConversation records which conversation the user has open.
func (s *Store) SetOpenConversation(conversationID string) {
	s.mu.Lock()
	changed := s.openID != conversationID
	s.openID = conversationID
	s.mu.Unlock()

	if changed {
		s.notify(Change{Kind: ChangeOpen, ConversationID: conversationID})
	}
}

// OpenConversation returns the currently open conversation id, or "".
func (s *Store) OpenConversation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.openID
}

// SetUnreadTotal replaces the global unread scalar.
func (s *Store) SetUnreadTotal(total int) {
	s.mu.Lock()
	changed := s.unreadTotal != total
	s.unreadTotal = total
	s.mu.Unlock()

	if changed {
		s.notify(Change{Kind: ChangeUnread})
	}
}

// UnreadTotal returns the last known global unread count.
func (s *Store) UnreadTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unreadTotal
}

// Conversation returns a copy of one cached conversation.
func (s *Store) Conversation(conversationID string) (*models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.conversations[conversationID]
	if !ok || entry.conversation == nil {
		return nil, false
	}
	return entry.conversation.Clone(), true
}

// Conversations returns cached conversations sorted most-recently-active
// first. Archived conversations are excluded unless includeArchived.
func (s *Store) Conversations(includeArchived bool) []*models.Conversation {
	s.mu.RLock()
	out := make([]*models.Conversation, 0, len(s.conversations))
	for _, entry := range s.conversations {
		if entry.conversation == nil {
			continue
		}
		if entry.conversation.Archived && !includeArchived {
			continue
		}
		out = append(out, entry.conversation.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Messages returns a conversation's messages in (CreatedAt, ID) order.
func (s *Store) Messages(conversationID string) []*models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}
	out := make([]*models.Message, 0, len(entry.ordered))
	for _, message := range entry.ordered {
		out = append(out, message.Clone())
	}
	return out
}

// Hydrate seeds the store from a persisted snapshot. Intended for
// startup, before any synchronizer runs.
func (s *Store) Hydrate(conversations []models.Conversation, messages map[string][]models.Message) {
	epoch := time.Time{}
	s.ApplyList(conversations, epoch)
	for conversationID, batch := range messages {
		if conversation, ok := s.Conversation(conversationID); ok {
			s.ApplyThread(*conversation, batch, epoch)
		}
	}
}

// Snapshot returns copies of all cached conversations and messages for
// persistence, archived ones included.
func (s *Store) Snapshot() ([]*models.Conversation, map[string][]*models.Message) {
	conversations := s.Conversations(true)
	messages := make(map[string][]*models.Message, len(conversations))
	for _, conversation := range conversations {
		if batch := s.Messages(conversation.ID); len(batch) > 0 {
			messages[conversation.ID] = batch
		}
	}
	return conversations, messages
}
