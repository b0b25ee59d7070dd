package telegram

import (
	"context"
	"fmt"
	"net/http"
)

// Update represents a Telegram Update object (partial schema).
type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		From struct {
			Username string `json:"username"`
		} `json:"from"`
	} `json:"message"`
}

// GetUpdates pulls every update with an ID strictly greater than since.
// A single short request, no long-poll timeout: the process exits after
// this run, and whatever arrives later is picked up by the next one.
func (c *Client) GetUpdates(ctx context.Context, since int64) ([]Update, error) {
	url := fmt.Sprintf("%s?offset=%d&timeout=0", c.methodURL("getUpdates"), since+1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Ok          bool     `json:"ok"`
		Result      []Update `json:"result"`
		Description string   `json:"description"`
		ErrorCode   int      `json:"error_code"`
	}
	if err := decodeJSON(resp, &envelope); err != nil {
		return nil, fmt.Errorf("telegram getUpdates decode: %w", err)
	}
	if !envelope.Ok {
		return nil, fmt.Errorf("telegram getUpdates error: %s (code %d)", envelope.Description, envelope.ErrorCode)
	}

	return envelope.Result, nil
}
