package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookRequest is the JSON body posted to an HTTP mail API.
type WebhookRequest struct {
	To      string `json:"to"`
	UserID  string `json:"userId"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// WebhookMailer delivers digests by POSTing rendered content to an HTTP mail
// API. The URL is injected from config so tests can point to httptest.
type WebhookMailer struct {
	url        string
	renderer   *Renderer
	httpClient *http.Client
}

func NewWebhookMailer(url string, timeout time.Duration, renderer *Renderer) *WebhookMailer {
	return &WebhookMailer{
		url:      url,
		renderer: renderer,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SendDigest treats any 2xx response as accepted.
func (m *WebhookMailer) SendDigest(ctx context.Context, msg Message) error {
	rendered, err := m.renderer.Render(msg.Digest)
	if err != nil {
		return err
	}

	body, err := json.Marshal(WebhookRequest{
		To:      msg.To,
		UserID:  msg.UserID,
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected mail API status: %d", resp.StatusCode)
	}
	return nil
}

var _ Mailer = (*WebhookMailer)(nil)
