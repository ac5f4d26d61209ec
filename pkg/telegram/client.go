package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Sender delivers a complete message to a channel.
type Sender interface {
	// Send formats, splits and delivers text. Parts already delivered are not
	// retracted when a later part fails.
	Send(ctx context.Context, text string) error

	// Configured reports whether the sender has the credentials it needs.
	Configured() bool
}

// APIError is returned when the Bot API rejects a request.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram API error (HTTP %d): %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("telegram API error (HTTP %d)", e.StatusCode)
}

// Client sends MarkdownV2 messages to a single chat via the Bot API.
type Client struct {
	token      string
	chatID     string
	apiURL     string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Sender = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithAPIURL points the client at a different Bot API base URL.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		if apiURL != "" {
			c.apiURL = strings.TrimRight(apiURL, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPartLimit overrides the per-part length used when splitting.
func WithPartLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 && limit <= MaxMessageLength {
			c.limit = limit
		}
	}
}

// NewClient creates a Bot API client for the given bot token and chat.
func NewClient(token, chatID string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		chatID:     chatID,
		apiURL:     DefaultAPIURL,
		limit:      SafeMessageLength,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default().With("component", "telegram-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether both the bot token and chat id are set.
func (c *Client) Configured() bool {
	return c != nil && c.token != "" && c.chatID != ""
}

// Send formats text for MarkdownV2, splits it at section boundaries and
// posts each part in order. The first failing part aborts the send.
func (c *Client) Send(ctx context.Context, text string) error {
	if !c.Configured() {
		return fmt.Errorf("telegram client misconfigured: bot token and chat id are required")
	}

	parts := Split(Format(text), c.limit)
	if len(parts) == 0 {
		return fmt.Errorf("telegram: nothing to send")
	}
	if len(parts) > 1 {
		c.logger.Info("Message exceeds part limit, splitting",
			"parts", len(parts), "limit", c.limit)
	}

	for i, part := range parts {
		if err := c.sendMessage(ctx, part); err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(parts), err)
		}
	}

	c.logger.Info("Message delivered", "parts", len(parts))
	return nil
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *Client) sendMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token)
	form := url.Values{}
	form.Set("chat_id", c.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "MarkdownV2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of error messages.
		if ue, ok := err.(*url.Error); ok {
			return fmt.Errorf("do request: %w", ue.Err)
		}
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var parsed sendMessageResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return &APIError{StatusCode: resp.StatusCode, Description: parsed.Description}
	}
	return nil
}
