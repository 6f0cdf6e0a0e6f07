package models

import "time"

// AttachmentRef points at a stored attachment. Storage and CDN behavior
// belong to the backend; the client only carries the reference.
type AttachmentRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
}

// Message is a single entry in a conversation. Messages are append-only
// and immutable once the server has assigned an ID.
type Message struct {
	// ID is server-assigned and unique. The ordering key for rendering is
	// (CreatedAt, ID); timestamps alone are not unique under rapid sends.
	ID string `json:"id"`

	// ConversationID is the owning conversation, immutable.
	ConversationID string `json:"conversation_id"`

	// Sender is one of the conversation's two participants.
	Sender UserRef `json:"sender"`

	// Content may be empty only when an attachment is present.
	Content string `json:"content"`

	// Attachment holds at most one file reference.
	Attachment *AttachmentRef `json:"attachment,omitempty"`

	// IsRead and ReadAt are set once the recipient's read transition
	// covers this message.
	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	// IsSystem marks automated notices. Rendering only; sync logic does
	// not branch on it.
	IsSystem bool `json:"is_system,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	if m.Attachment != nil {
		att := *m.Attachment
		out.Attachment = &att
	}
	if m.ReadAt != nil {
		at := *m.ReadAt
		out.ReadAt = &at
	}
	return &out
}

// Before reports whether m sorts ahead of other under the (CreatedAt, ID)
// ordering key.
func (m *Message) Before(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.Before(other.CreatedAt)
	}
	return m.ID < other.ID
}
