package models

import "time"

// EventType categorizes domain events published on the session bus.
type EventType string

const (
	// EventTypeMessageSent fires after the backend confirms a send.
	EventTypeMessageSent EventType = "message.sent"

	// EventTypeConversationStarted fires when a start-conversation call
	// returns, whether the server created a new row or reused one.
	EventTypeConversationStarted EventType = "conversation.started"

	// EventTypeConversationMarkedRead fires after a successful mark-read.
	EventTypeConversationMarkedRead EventType = "conversation.marked_read"

	// EventTypeConversationArchived fires after a successful archive.
	EventTypeConversationArchived EventType = "conversation.archived"

	// EventTypeUnreadChanged fires when the global unread total moves.
	EventTypeUnreadChanged EventType = "unread.changed"
)

// Event is a domain event. Synchronizers subscribe to these instead of
// being invalidated by name, so publishers never need to know about
// synchronizer internals.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`

	// ConversationID is the affected conversation, when the event is
	// scoped to one.
	ConversationID string `json:"conversation_id,omitempty"`

	// Timestamp is when the event was published.
	Timestamp time.Time `json:"timestamp"`
}

// MessageSent builds a message.sent event for a conversation.
func MessageSent(conversationID string, at time.Time) *Event {
	return &Event{Type: EventTypeMessageSent, ConversationID: conversationID, Timestamp: at}
}

// ConversationMarkedRead builds a conversation.marked_read event.
func ConversationMarkedRead(conversationID string, at time.Time) *Event {
	return &Event{Type: EventTypeConversationMarkedRead, ConversationID: conversationID, Timestamp: at}
}
