package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultAPIURL is the public Bot API endpoint.
	DefaultAPIURL = "https://api.telegram.org"

	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20
	tracerName       = "github.com/flemzord/joingate/internal/telegram"
)

var (
	// ErrTransport marks network, DNS and timeout failures talking to the Bot API.
	ErrTransport = errors.New("telegram: transport error")

	// ErrMalformedResponse marks responses that could not be decoded or lack
	// a required field.
	ErrMalformedResponse = errors.New("telegram: malformed response")
)

// Observer receives one callback per Bot API request. err is nil on success.
type Observer interface {
	ObserveRequest(method string, err error, elapsed time.Duration)
}

// Client is a thin HTTP wrapper around the Telegram Bot API.
type Client struct {
	token    string
	baseURL  string
	http     *http.Client
	observer Observer
	tracer   trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithObserver registers a request observer (metrics).
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a new Telegram Bot API client. An empty baseURL selects
// DefaultAPIURL.
func NewClient(token, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	c := &Client{
		token:   token,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do sends a JSON POST request to the given Bot API method and decodes the
// result. No retries are attempted.
func do[T any](ctx context.Context, c *Client, method string, payload any) (_ *T, err error) {
	ctx, span := c.tracer.Start(ctx, "telegram."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("telegram.method", method)),
	)
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(method, err, time.Since(start))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, stripURL(err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The request URL carries the bot token; keep it out of the message.
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, method, stripURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %w", ErrTransport, method, err)
	}

	var apiResp APIResponse[T]
	decodeErr := json.Unmarshal(respBody, &apiResp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Method: method, Code: resp.StatusCode, Description: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && apiResp.Description != "" {
			apiErr.Description = apiResp.Description
		}
		return nil, apiErr
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode %s response: %w", ErrMalformedResponse, method, decodeErr)
	}

	if !apiResp.OK {
		return nil, &APIError{
			Method:      method,
			Code:        apiResp.ErrorCode,
			Description: apiResp.Description,
		}
	}

	return &apiResp.Result, nil
}

// stripURL unwraps *url.Error so the token-bearing request URL never ends up
// in an error string.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// GetChatMemberRequest is the request body for the getChatMember method.
// ChatID is a numeric id or an @username, so it stays a string.
type GetChatMemberRequest struct {
	ChatID string `json:"chat_id"`
	UserID int64  `json:"user_id"`
}

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ParseMode   string                `json:"parse_mode,omitempty"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

// SetWebhookRequest is the request body for the setWebhook method.
type SetWebhookRequest struct {
	URL                string   `json:"url"`
	AllowedUpdates     []string `json:"allowed_updates,omitempty"`
	MaxConnections     int      `json:"max_connections,omitempty"`
	DropPendingUpdates bool     `json:"drop_pending_updates,omitempty"`
	SecretToken        string   `json:"secret_token,omitempty"`
}

// DeleteWebhookRequest is the request body for the deleteWebhook method.
type DeleteWebhookRequest struct {
	DropPendingUpdates bool `json:"drop_pending_updates,omitempty"`
}

// GetMe returns the bot's user information.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return do[User](ctx, c, "getMe", nil)
}

// GetChatMember returns the membership record of a user in a chat.
func (c *Client) GetChatMember(ctx context.Context, req GetChatMemberRequest) (*ChatMember, error) {
	return do[ChatMember](ctx, c, "getChatMember", req)
}

// MemberStatus returns the membership status of userID in chatID. A
// response without a status is reported as ErrMalformedResponse.
func (c *Client) MemberStatus(ctx context.Context, chatID string, userID int64) (MemberStatus, error) {
	member, err := c.GetChatMember(ctx, GetChatMemberRequest{ChatID: chatID, UserID: userID})
	if err != nil {
		return "", err
	}
	if member.Status == "" {
		return "", fmt.Errorf("%w: getChatMember: missing result.status", ErrMalformedResponse)
	}
	return member.Status, nil
}

// SendMessage sends a text message to the specified chat.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return do[Message](ctx, c, "sendMessage", req)
}

// SetWebhook configures the webhook URL for receiving updates.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	_, err := do[bool](ctx, c, "setWebhook", req)
	return err
}

// DeleteWebhook removes the current webhook integration.
func (c *Client) DeleteWebhook(ctx context.Context, req DeleteWebhookRequest) error {
	_, err := do[bool](ctx, c, "deleteWebhook", req)
	return err
}

// GetWebhookInfo reports the current webhook registration.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	return do[WebhookInfo](ctx, c, "getWebhookInfo", nil)
}
