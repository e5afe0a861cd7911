// Package notify delivers prescription review notifications to the buyer via
// an external sender service. Delivery is best-effort: callers fire it in the
// background and only log failures.
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

type ReviewNotification struct {
	PrescriptionID  uint   `json:"prescription_id"`
	Decision        string `json:"decision"`
	ReviewerName    string `json:"reviewer_name"`
	Comments        string `json:"comments,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type Client struct {
	URL    string
	APIKey string
	From   string
	HTTP   *http.Client
}

func NewClient(url, apiKey, from string) *Client {
	return &Client{
		URL:    url,
		APIKey: apiKey,
		From:   from,
		HTTP:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SendReviewNotification(ctx context.Context, n ReviewNotification) error {
	if c == nil || c.URL == "" {
		return nil
	}

	payload := struct {
		From string `json:"from,omitempty"`
		ReviewNotification
	}{From: c.From, ReviewNotification: n}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: sender returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
