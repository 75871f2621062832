package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatWebhook posts messages to the channel gateway (Messenger/SMS bridge)
// that owns actual delivery.
type ChatWebhook struct {
	hc  *http.Client
	url string
}

func NewChatWebhook(url string) *ChatWebhook {
	return &ChatWebhook{
		hc:  &http.Client{Timeout: 10 * time.Second},
		url: url,
	}
}

func (c *ChatWebhook) Send(ctx context.Context, recipient, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"recipient": recipient,
		"text":      body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("chat send: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("chat send failed (status=%d): %s", res.StatusCode, b)
	}
	return nil
}
