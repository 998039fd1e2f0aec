package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quillpost/quillpost/pkg/secretx"
)

// Client sends mail through a Postmark-compatible HTTP API.
type Client struct {
	BaseURL    string
	Sender     string
	AuthToken  secretx.Secret
	HTTPClient *http.Client
}

// NewClient creates an email client with a bounded request timeout so a slow
// mail provider cannot stall signup handlers indefinitely.
func NewClient(baseURL, sender string, authToken secretx.Secret, timeout time.Duration) *Client {
	return &Client{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		Sender:    sender,
		AuthToken: authToken,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send posts the message to the provider. Any non-2xx response is an error;
// the body is discarded so provider detail never propagates past this layer.
func (c *Client) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(sendEmailRequest{
		From:     c.Sender,
		To:       msg.To,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.AuthToken.Expose())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}
