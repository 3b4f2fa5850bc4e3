package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client calls the SMS carrier API. The carrier is opaque: it exposes a send
// endpoint and a number-lookup endpoint that rejects unknown numbers.
type Client struct {
	BaseURL string
	APIKey  string
	From    string
	HTTP    *http.Client
}

// New creates a client with a bounded request timeout.
func New(baseURL, apiKey, from string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		From:    from,
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

// Send texts body to one number.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if c.APIKey == "" {
		return fmt.Errorf("sms: API key not configured")
	}
	payload, err := json.Marshal(map[string]string{
		"from": c.From,
		"to":   to,
		"body": body,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sms send failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms send error %s: %s", resp.Status, string(b))
	}
	return nil
}

// Lookup asks the carrier to canonicalize a number. An error means the
// carrier does not recognize the number.
func (c *Client) Lookup(ctx context.Context, number string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/lookup?number="+url.QueryEscape(number), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("sms lookup error %s: %s", resp.Status, string(b))
	}

	var out struct {
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if out.PhoneNumber == "" {
		return "", fmt.Errorf("sms lookup returned no number")
	}
	return out.PhoneNumber, nil
}
