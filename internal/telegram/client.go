// Package telegram is a minimal Bot API client: long polling for updates and
// sending replies.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// baseURL is the public Bot API endpoint.
const baseURL = "https://api.telegram.org"

// ParseModeHTML asks Telegram to render a message as HTML.
const ParseModeHTML = "HTML"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=telegram_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Bot API on behalf of one bot token.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPClient
}

// Option is a configuration option for the Bot API client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Bot API client. The token is required.
func NewClient(token string, options ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("telegram: empty bot token")
	}
	c := &Client{baseURL: baseURL, token: token, httpClient: http.DefaultClient}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// SendMessageRequest is the body of sendMessage.
type SendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ParseMode        string `json:"parse_mode,omitempty"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// APIError is an unsuccessful Bot API answer.
type APIError struct {
	Code        int    `json:"error_code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

type envelope[T any] struct {
	OK          bool   `json:"ok"`
	Result      T      `json:"result"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// GetUpdates long-polls for new messages starting at offset. timeoutSec is
// the server-side wait; the HTTP client timeout must be longer.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	query := url.Values{}
	query.Set("offset", strconv.FormatInt(offset, 10))
	query.Set("timeout", strconv.Itoa(timeoutSec))
	query.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("getUpdates")+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	var updates []Update
	if err := c.do(req, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage posts a message to a chat.
func (c *Client) SendMessage(ctx context.Context, msg SendMessageRequest) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	var sent Message
	return c.do(req, &sent)
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) do(req *http.Request, result any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which contains the token.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	env := envelope[json.RawMessage]{}
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response (status %d): %w", res.StatusCode, err)
	}
	if !env.OK {
		return &APIError{Code: env.ErrorCode, Description: env.Description}
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}
	return nil
}
