// Package notify provides a webhook client for coordinator notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aimd54/sme-dispatch/internal/config"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

// Client posts notifications to an incoming-webhook endpoint.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new webhook client.
func NewClient(cfg *config.NotifyConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		httpClient: http.DefaultClient,
		log:        log,
	}
}

// Message represents a webhook message payload.
type Message struct {
	Channel  string `json:"channel,omitempty"`
	Username string `json:"username,omitempty"`
	Text     string `json:"text,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
}

// SendMessage sends a message to the webhook.
func (c *Client) SendMessage(msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Notifications are disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent webhook message")

	return nil
}

// SendSimpleMessage sends a simple text message.
func (c *Client) SendSimpleMessage(text string) error {
	return c.SendMessage(&Message{
		Text: text,
	})
}

// StaleAssignment is one unanswered assignment for the daily digest.
type StaleAssignment struct {
	AssignmentID        uint
	ServiceRequestTitle string
	SmeName             string
	AssignedAt          time.Time
}

// Age returns how long the assignment has been waiting.
func (s StaleAssignment) Age() time.Duration {
	return time.Since(s.AssignedAt)
}

// SendStaleAssignmentDigest sends the daily digest of assignments still
// waiting on an SME response.
func (c *Client) SendStaleAssignmentDigest(stale []StaleAssignment) error {
	if len(stale) == 0 {
		c.log.Debug().Msg("No stale assignments, skipping daily digest")
		return nil
	}

	text := fmt.Sprintf("### 📋 Unanswered Assignment Digest\n\nThere are **%d** assignments still waiting on an SME response:\n\n", len(stale))

	for _, s := range stale {
		age := s.Age()
		ageStr := fmt.Sprintf("%.1f hours", age.Hours())
		if age.Hours() > 24 {
			ageStr = fmt.Sprintf("%.1f days", age.Hours()/24)
		}

		icon := "•"
		if age.Hours() > 48 {
			icon = "⚠️"
		}

		text += fmt.Sprintf("%s #%d %s — %s (waiting %s)\n", icon, s.AssignmentID, s.ServiceRequestTitle, s.SmeName, ageStr)
	}

	text += "\n_Please follow up with these SMEs or reassign the work._"

	return c.SendMessage(&Message{
		Username: "SME Dispatch Bot",
		Text:     text,
	})
}
