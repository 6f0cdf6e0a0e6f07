package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kallerud/lotline/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "lotline.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestSnapshotRoundTrip(t *testing.T) {
	database := openTestDB(t)
	repo := NewSnapshotRepository(database)
	ctx := context.Background()

	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	readAt := base.Add(5 * time.Minute)
	conversations := []*models.Conversation{
		{
			ID:        "conv-1",
			Buyer:     models.UserRef{ID: "user-1", Name: "Kari"},
			Seller:    models.UserRef{ID: "user-2", Name: "Ola"},
			VehicleID: "vehicle-9",
			Subject:   "2019 Transporter",
			LastMessage: &models.MessageSummary{
				Content:   "Still available?",
				SenderID:  "user-1",
				CreatedAt: base.Add(time.Minute),
			},
			UnreadCount: 2,
			CreatedAt:   base,
			UpdatedAt:   base.Add(time.Minute),
		},
		{
			ID:        "conv-2",
			Buyer:     models.UserRef{ID: "user-1", Name: "Kari"},
			Seller:    models.UserRef{ID: "user-3", Name: "Nils"},
			Archived:  true,
			CreatedAt: base.Add(-time.Hour),
			UpdatedAt: base.Add(-time.Hour),
		},
	}
	messages := map[string][]*models.Message{
		"conv-1": {
			{
				ID:             "msg-1",
				ConversationID: "conv-1",
				Sender:         models.UserRef{ID: "user-2", Name: "Ola"},
				Content:        "Yes, come have a look.",
				Attachment: &models.AttachmentRef{
					Name: "service-history.pdf",
					URL:  "https://files.example/att/1",
					Size: 52311,
				},
				IsRead:    true,
				ReadAt:    &readAt,
				CreatedAt: base,
			},
			{
				ID:             "msg-2",
				ConversationID: "conv-1",
				Sender:         models.UserRef{ID: "user-1", Name: "Kari"},
				Content:        "Still available?",
				CreatedAt:      base.Add(time.Minute),
			},
		},
	}

	require.NoError(t, repo.Save(ctx, conversations, messages))

	gotConversations, gotMessages, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, gotConversations, 2)

	// Ordered by updated_at descending.
	assert.Equal(t, "conv-1", gotConversations[0].ID)
	assert.Equal(t, "conv-2", gotConversations[1].ID)

	first := gotConversations[0]
	assert.Equal(t, "Kari", first.Buyer.Name)
	assert.Equal(t, "vehicle-9", first.VehicleID)
	assert.Equal(t, 2, first.UnreadCount)
	require.NotNil(t, first.LastMessage)
	assert.Equal(t, "Still available?", first.LastMessage.Content)
	assert.True(t, first.LastMessage.CreatedAt.Equal(base.Add(time.Minute)))

	assert.True(t, gotConversations[1].Archived)
	assert.Nil(t, gotConversations[1].LastMessage)

	batch := gotMessages["conv-1"]
	require.Len(t, batch, 2)
	assert.Equal(t, "msg-1", batch[0].ID)
	require.NotNil(t, batch[0].Attachment)
	assert.Equal(t, int64(52311), batch[0].Attachment.Size)
	require.NotNil(t, batch[0].ReadAt)
	assert.True(t, batch[0].ReadAt.Equal(readAt))
	assert.Nil(t, batch[1].Attachment)
	assert.False(t, batch[1].IsRead)
}

func TestSnapshotSaveReplacesPrevious(t *testing.T) {
	database := openTestDB(t)
	repo := NewSnapshotRepository(database)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	old := []*models.Conversation{{
		ID:        "conv-old",
		Buyer:     models.UserRef{ID: "user-1"},
		Seller:    models.UserRef{ID: "user-2"},
		CreatedAt: now,
		UpdatedAt: now,
	}}
	require.NoError(t, repo.Save(ctx, old, map[string][]*models.Message{
		"conv-old": {{
			ID:             "msg-old",
			ConversationID: "conv-old",
			Sender:         models.UserRef{ID: "user-2"},
			Content:        "hello",
			CreatedAt:      now,
		}},
	}))

	replacement := []*models.Conversation{{
		ID:        "conv-new",
		Buyer:     models.UserRef{ID: "user-1"},
		Seller:    models.UserRef{ID: "user-3"},
		CreatedAt: now,
		UpdatedAt: now,
	}}
	require.NoError(t, repo.Save(ctx, replacement, nil))

	conversations, messages, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, "conv-new", conversations[0].ID)
	assert.Empty(t, messages)
}

func TestSnapshotLoadEmptyDatabase(t *testing.T) {
	database := openTestDB(t)
	repo := NewSnapshotRepository(database)

	conversations, messages, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, conversations)
	assert.Empty(t, messages)
}
