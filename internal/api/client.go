// Package api is the REST client for the lotline backend. The backend has
// no push channel; every read here is driven by the sync schedulers.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kallerud/lotline/internal/logging"
	"github.com/kallerud/lotline/internal/models"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout    = 15 * time.Second
	sessionCookieName = "lotline_session"
	userAgent         = "lotline/1.0"
)

// Client errors.
var (
	ErrNoSession    = errors.New("no session token configured")
	ErrUnauthorized = errors.New("session rejected by backend")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// IsTransient reports whether an error is worth one silent retry:
// network-level failures and 5xx responses qualify, 4xx never do.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	// Anything else is a transport failure (dial, reset, timeout).
	return true
}

// Config holds the client's connection settings.
type Config struct {
	// BaseURL is the backend root, e.g. https://api.example.com.
	BaseURL string

	// SessionToken is the value of the session cookie. Obtaining and
	// renewing it is the backend's login flow, not this client's.
	SessionToken string

	// Timeout is the per-request transport timeout.
	Timeout time.Duration
}

// Client talks to the backend's conversation endpoints.
type Client struct {
	rest   *resty.Client
	logger zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.rest = resty.NewWithClient(httpClient)
	}
}

// NewClient creates a backend client.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		rest:   resty.New(),
		logger: logging.Component("api-client"),
	}
	for _, opt := range opts {
		opt(client)
	}

	client.rest.
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent)

	if token := strings.TrimSpace(cfg.SessionToken); token != "" {
		client.rest.SetCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}

	return client, nil
}

// ConversationDetail is the thread endpoint's response: the conversation
// row plus its full ordered message list.
type ConversationDetail struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
}

// ListConversations fetches the full conversation list in summary form.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := c.get(ctx, "/api/conversations", &conversations)
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

// GetConversation fetches one conversation and its ordered messages.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	if conversationID == "" {
		return nil, models.ErrMissingConversationID
	}
	var detail ConversationDetail
	err := c.get(ctx, fmt.Sprintf("/api/conversations/%s", conversationID), &detail)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// StartConversation asks the backend for a conversation with the given
// participant. The backend enforces pairing uniqueness, so the returned
// conversation may be an existing one; callers must adopt the returned id.
func (c *Client) StartConversation(ctx context.Context, req models.StartRequest) (*models.Conversation, error) {
	var conversation models.Conversation
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&conversation).
		Post("/api/conversations")
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// SendMessage submits a draft as a single multipart request.
func (c *Client) SendMessage(ctx context.Context, draft models.Draft) (*models.Message, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var message models.Message
	req := c.rest.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"content": draft.Content,
		}).
		SetResult(&message)
	if draft.Attachment != nil {
		req.SetMultipartField(
			"attachment",
			draft.Attachment.Name,
			draft.Attachment.ContentType,
			bytes.NewReader(draft.Attachment.Data),
		)
	}

	resp, err := req.Post(fmt.Sprintf("/api/conversations/%s/messages", draft.ConversationID))
	if err := c.check(resp, err); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkConversationRead zeroes the conversation's unread count server-side.
// The endpoint is idempotent; marking an already-read conversation is a no-op.
func (c *Client) MarkConversationRead(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return models.ErrMissingConversationID
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/api/conversations/%s/read", conversationID))
	return c.check(resp, err)
}

// ArchiveConversation removes a conversation from the default list view.
func (c *Client) ArchiveConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return models.ErrMissingConversationID
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/api/conversations/%s/archive", conversationID))
	return c.check(resp, err)
}

// CurrentUser returns the user the session token belongs to. Used to
// validate a fresh login and to identify the local participant.
func (c *Client) CurrentUser(ctx context.Context) (*models.UserRef, error) {
	var user models.UserRef
	if err := c.get(ctx, "/api/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UnreadCount fetches the global unread scalar for the badge.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var total models.UnreadTotal
	if err := c.get(ctx, "/api/conversations/unread-count", &total); err != nil {
		return 0, err
	}
	return total.UnreadCount, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(result).
		Get(path)
	return c.check(resp, err)
}

// check normalizes resty results into errors.
func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	status := resp.StatusCode()
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w (%d)", ErrUnauthorized, status)
	}
	return &APIError{
		Status:  status,
		Message: strings.TrimSpace(string(resp.Body())),
	}
}
