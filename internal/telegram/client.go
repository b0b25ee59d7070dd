package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

const apiBase = "https://api.telegram.org"

// Client is a minimal Telegram Bot API client. The watcher runs as a
// short-lived process, so there is no long-poll loop here: updates are
// pulled once per invocation and messages are sent synchronously.
type Client struct {
	token  string
	chatID int64
	http   *http.Client
}

// NewClient builds a client from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
func NewClient() (*Client, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if token == "" || chatIDStr == "" {
		return nil, fmt.Errorf("telegram credentials missing (TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID)")
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatIDStr, err)
	}

	return &Client{
		token:  token,
		chatID: chatID,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// ChatID returns the single authorized chat this bot serves.
func (c *Client) ChatID() int64 {
	return c.chatID
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", apiBase, c.token, method)
}

// apiEnvelope is the common Bot API response wrapper.
type apiEnvelope struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s decode: %w", method, err)
	}
	if !envelope.Ok {
		return fmt.Errorf("telegram %s error: %s (code %d)", method, envelope.Description, envelope.ErrorCode)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("telegram %s result decode: %w", method, err)
		}
	}
	return nil
}

// SendMessage sends a Markdown-formatted text to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":    c.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	return c.call(ctx, "sendMessage", payload, nil)
}
