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

// MailAPI sends email through a transactional mail HTTP API.
type MailAPI struct {
	hc     *http.Client
	url    string
	apiKey string
	from   string
}

func NewMailAPI(url, apiKey, from string) *MailAPI {
	return &MailAPI{
		hc:     &http.Client{Timeout: 10 * time.Second},
		url:    url,
		apiKey: apiKey,
		from:   from,
	}
}

func (m *MailAPI) Send(ctx context.Context, recipient, subject, body string) error {
	payload, err := json.Marshal(map[string]string{
		"from":    m.from,
		"to":      recipient,
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	res, err := m.hc.Do(req)
	if err != nil {
		return fmt.Errorf("mail send: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("mail send failed (status=%d): %s", res.StatusCode, b)
	}
	return nil
}
