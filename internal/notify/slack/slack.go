// Package slack sends campaign escalation notifications to Slack via
// incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/sift/internal/campaign"
)

const (
	maxDescriptionLen = 3000
	httpTimeout       = 10 * time.Second
)

// Notifier sends campaign escalations to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Notify posts an escalation to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, e *campaign.Escalation) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(e)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(e *campaign.Escalation) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(e),
			{"type": "divider"},
			fieldsBlock(e),
			{"type": "divider"},
			summaryBlock(e.Campaign),
			{"type": "divider"},
			contextBlock(e),
		},
	}
}

func headerBlock(e *campaign.Escalation) map[string]any {
	emoji := threatEmoji(e.Campaign.ThreatLevel)
	text := fmt.Sprintf("%s Campaign Escalating: %s", emoji, e.Campaign.Name)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(e *campaign.Escalation) map[string]any {
	c := e.Campaign
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Threat level:* %s", c.ThreatLevel),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", c.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Recent velocity:* %.1f posts/hr", e.RecentVelocity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Recent posts:* %d in %s", e.RecentPosts, formatWindow(e.Window)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Total posts:* %d", c.TotalPosts),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Reach estimate:* %d", c.ReachEstimate),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func summaryBlock(c *campaign.Campaign) map[string]any {
	text := truncate(c.Description, maxDescriptionLen)
	if text == "" {
		text = "_No description available._"
	}
	if len(c.Hashtags) > 0 {
		text += "\n\n*Hashtags:* " + strings.Join(c.Hashtags, " ")
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Summary*\n\n%s", text),
		},
	}
}

func contextBlock(e *campaign.Escalation) map[string]any {
	ts := e.At
	if ts.IsZero() {
		ts = e.Campaign.LastUpdatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("sift • campaign %s • %s", e.Campaign.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func threatEmoji(level campaign.ThreatLevel) string {
	switch level {
	case campaign.ThreatCritical:
		return "\U0001f534" // red circle
	case campaign.ThreatHigh:
		return "\U0001f7e0" // orange circle
	case campaign.ThreatMedium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func formatWindow(d time.Duration) string {
	if h := d.Hours(); h >= 1 && h == float64(int(h)) {
		return fmt.Sprintf("%dh", int(h))
	}
	return d.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
