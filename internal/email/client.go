// Package email sends transactional email through the Resend REST API.
// Sends are best-effort throughout the application: callers log failures and
// never fail the request or roll back committed writes because of them.
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const resendAPI = "https://api.resend.com/emails"

// Client posts messages to the Resend API. With an empty API key the client
// logs the message instead of sending it, which keeps local development and
// tests free of outbound traffic.
type Client struct {
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewClient creates an email client sending from the given address.
func NewClient(apiKey, from string) *Client {
	return &Client{
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type resendMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Send delivers a single HTML email.
func (c *Client) Send(to, subject, html string) error {
	if to == "" {
		return fmt.Errorf("email: recipient cannot be empty")
	}

	if c.apiKey == "" {
		log.Printf("[email] RESEND_API_KEY not set; mock email to=%s subject=%q", to, subject)
		return nil
	}

	body, err := json.Marshal(resendMessage{
		From:    c.from,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("email: marshal message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, resendAPI, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("email: resend API error (%d): %s", resp.StatusCode, string(msg))
	}

	return nil
}
