// Package models defines the domain types shared across lotline.
package models

import "time"

// UserRef identifies one of a conversation's two participants.
type UserRef struct {
	// ID is the backend's stable user identifier.
	ID string `json:"id"`

	// Name is the display name, denormalized for list rendering.
	Name string `json:"name,omitempty"`
}

// MessageSummary is the denormalized last-message projection carried on
// conversation list rows. It is a cache hint only; the thread's message
// list supersedes it once loaded.
type MessageSummary struct {
	Content   string    `json:"content"`
	SenderID  string    `json:"sender_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a two-participant thread, optionally attached to a
// vehicle listing.
type Conversation struct {
	// ID is the backend-assigned conversation identifier.
	ID string `json:"id"`

	// Buyer and Seller are the two participants. The (buyer, seller,
	// vehicle) pairing is unique server-side; starting a conversation for
	// an existing pairing returns the existing row.
	Buyer  UserRef `json:"buyer"`
	Seller UserRef `json:"seller"`

	// VehicleID links the conversation to a listing, when present.
	VehicleID string `json:"vehicle_id,omitempty"`

	// Subject is set at creation and immutable afterwards.
	Subject string `json:"subject,omitempty"`

	// LastMessage is the list-view projection of the newest message.
	LastMessage *MessageSummary `json:"last_message,omitempty"`

	// UnreadCount is scoped to the requesting user. It only reaches zero
	// through a mark-read call, never by local arithmetic.
	UnreadCount int `json:"unread_count"`

	// Archived conversations are excluded from the default list view.
	Archived bool `json:"archived"`

	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is monotonically non-decreasing and is the list sort key.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so store reads never alias cached state.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	if c.LastMessage != nil {
		summary := *c.LastMessage
		out.LastMessage = &summary
	}
	return &out
}

// UnreadTotal is the scalar polled for the global badge.
type UnreadTotal struct {
	UnreadCount int `json:"unreadCount"`
}
