package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kallerud/lotline/internal/models"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:      server.URL,
		SessionToken: "test-session",
		Timeout:      2 * time.Second,
	})
	require.NoError(t, err)
	return client, server
}

func TestListConversationsSendsSessionCookie(t *testing.T) {
	var sawCookie atomic.Bool
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value == "test-session" {
			sawCookie.Store(true)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]models.Conversation{
			{ID: "c1", UnreadCount: 2},
			{ID: "c2"},
		})
	}))

	conversations, err := client.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	require.Equal(t, "c1", conversations[0].ID)
	require.Equal(t, 2, conversations[0].UnreadCount)
	require.True(t, sawCookie.Load(), "session cookie not sent")
}

func TestGetConversationDetail(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/conversations/c42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ConversationDetail{
			Conversation: models.Conversation{ID: "c42", UnreadCount: 1},
			Messages: []models.Message{
				{ID: "m1", ConversationID: "c42", Content: "hi"},
				{ID: "m2", ConversationID: "c42", Content: "hello"},
			},
		})
	}))

	detail, err := client.GetConversation(context.Background(), "c42")
	require.NoError(t, err)
	require.Equal(t, "c42", detail.Conversation.ID)
	require.Len(t, detail.Messages, 2)
}

func TestSendMessageMultipart(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/conversations/c1/messages", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "here you go", r.FormValue("content"))

		file, header, err := r.FormFile("attachment")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "service-history.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.Message{ID: "m9", ConversationID: "c1"})
	}))

	message, err := client.SendMessage(context.Background(), models.Draft{
		ConversationID: "c1",
		Content:        "here you go",
		Attachment: &models.AttachmentUpload{
			Name:        "service-history.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.4"),
		},
	})
	require.NoError(t, err)
	require.Equal(t, "m9", message.ID)
}

func TestSendMessageRejectsEmptyDraftLocally(t *testing.T) {
	var requests atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	_, err := client.SendMessage(context.Background(), models.Draft{ConversationID: "c1"})
	require.ErrorIs(t, err, models.ErrEmptyMessage)
	require.Zero(t, requests.Load(), "empty draft must not reach the network")
}

func TestUnreadCount(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/conversations/unread-count", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.UnreadTotal{UnreadCount: 7})
	}))

	count, err := client.UnreadCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, count)
}

func TestMarkConversationReadIdempotent(t *testing.T) {
	var calls atomic.Int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.MarkConversationRead(context.Background(), "c1"))
	require.NoError(t, client.MarkConversationRead(context.Background(), "c1"))
	require.Equal(t, int64(2), calls.Load())
}

func TestErrorMapping(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/conversations":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))

	_, err := client.ListConversations(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.GetConversation(context.Background(), "c1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.True(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	require.False(t, IsTransient(nil))
	require.False(t, IsTransient(context.Canceled))
	require.False(t, IsTransient(&APIError{Status: http.StatusNotFound}))
	require.True(t, IsTransient(&APIError{Status: http.StatusBadGateway}))
	require.True(t, IsTransient(errors.New("connection refused")))
}

func TestCurrentUser(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/me", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.UserRef{ID: "user-7", Name: "Kari"})
	}))

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "user-7", user.ID)
	require.Equal(t, "Kari", user.Name)
}
