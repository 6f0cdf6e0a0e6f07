package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kallerud/lotline/internal/models"
)

// SnapshotRepository persists the store's last known state so a fresh
// process starts with data instead of an empty list while the first
// polls are in flight.
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a snapshot repository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save replaces the snapshot with the given store contents.
func (r *SnapshotRepository) Save(ctx context.Context, conversations []*models.Conversation, messages map[string][]*models.Message) error {
	return r.db.TransactionWithRetry(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
			return fmt.Errorf("clear conversations: %w", err)
		}

		for _, conversation := range conversations {
			if err := insertConversation(ctx, tx, conversation); err != nil {
				return err
			}
		}
		for _, batch := range messages {
			for _, message := range batch {
				if err := insertMessage(ctx, tx, message); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func insertConversation(ctx context.Context, tx *sql.Tx, c *models.Conversation) error {
	var lastContent, lastSender, lastCreated *string
	if c.LastMessage != nil {
		lastContent = &c.LastMessage.Content
		lastSender = &c.LastMessage.SenderID
		created := c.LastMessage.CreatedAt.UTC().Format(time.RFC3339Nano)
		lastCreated = &created
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (
			id, buyer_id, buyer_name, seller_id, seller_name, vehicle_id,
			subject, last_content, last_sender_id, last_created_at,
			unread_count, archived, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.ID,
		c.Buyer.ID, c.Buyer.Name,
		c.Seller.ID, c.Seller.Name,
		c.VehicleID,
		c.Subject,
		lastContent, lastSender, lastCreated,
		c.UnreadCount,
		boolToInt(c.Archived),
		c.CreatedAt.UTC().Format(time.RFC3339Nano),
		c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert conversation %s: %w", c.ID, err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, m *models.Message) error {
	var attName, attURL *string
	var attSize *int64
	if m.Attachment != nil {
		attName = &m.Attachment.Name
		attURL = &m.Attachment.URL
		attSize = &m.Attachment.Size
	}
	var readAt *string
	if m.ReadAt != nil {
		at := m.ReadAt.UTC().Format(time.RFC3339Nano)
		readAt = &at
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (
			id, conversation_id, sender_id, sender_name, content,
			attachment_name, attachment_url, attachment_size,
			is_read, read_at, is_system, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		m.ConversationID,
		m.Sender.ID, m.Sender.Name,
		m.Content,
		attName, attURL, attSize,
		boolToInt(m.IsRead),
		readAt,
		boolToInt(m.IsSystem),
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", m.ID, err)
	}
	return nil
}

// Load reads the full snapshot back, messages grouped by conversation.
func (r *SnapshotRepository) Load(ctx context.Context) ([]models.Conversation, map[string][]models.Message, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, buyer_id, buyer_name, seller_id, seller_name, vehicle_id,
		       subject, last_content, last_sender_id, last_created_at,
		       unread_count, archived, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []models.Conversation
	for rows.Next() {
		var (
			c                               models.Conversation
			lastContent, lastSender, lastAt *string
			archived                        int
			createdAt, updatedAt            string
		)
		if err := rows.Scan(
			&c.ID, &c.Buyer.ID, &c.Buyer.Name, &c.Seller.ID, &c.Seller.Name,
			&c.VehicleID, &c.Subject, &lastContent, &lastSender, &lastAt,
			&c.UnreadCount, &archived, &createdAt, &updatedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.Archived = archived != 0
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, nil, err
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, nil, err
		}
		if lastContent != nil {
			summary := models.MessageSummary{Content: *lastContent}
			if lastSender != nil {
				summary.SenderID = *lastSender
			}
			if lastAt != nil {
				if summary.CreatedAt, err = parseTime(*lastAt); err != nil {
					return nil, nil, err
				}
			}
			c.LastMessage = &summary
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate conversations: %w", err)
	}

	messages, err := r.loadMessages(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conversations, messages, nil
}

func (r *SnapshotRepository) loadMessages(ctx context.Context) (map[string][]models.Message, error) {
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, sender_name, content,
		       attachment_name, attachment_url, attachment_size,
		       is_read, read_at, is_system, created_at
		FROM messages
		ORDER BY conversation_id, created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make(map[string][]models.Message)
	for rows.Next() {
		var (
			m                models.Message
			attName, attURL  *string
			attSize          *int64
			isRead, isSystem int
			readAt           *string
			createdAt        string
		)
		if err := rows.Scan(
			&m.ID, &m.ConversationID, &m.Sender.ID, &m.Sender.Name, &m.Content,
			&attName, &attURL, &attSize, &isRead, &readAt, &isSystem, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.IsRead = isRead != 0
		m.IsSystem = isSystem != 0
		if attName != nil {
			m.Attachment = &models.AttachmentRef{Name: *attName}
			if attURL != nil {
				m.Attachment.URL = *attURL
			}
			if attSize != nil {
				m.Attachment.Size = *attSize
			}
		}
		if readAt != nil {
			at, err := parseTime(*readAt)
			if err != nil {
				return nil, err
			}
			m.ReadAt = &at
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages[m.ConversationID] = append(messages[m.ConversationID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func parseTime(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
