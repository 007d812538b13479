// Package slack sends caregiver alert changes to Slack via incoming webhooks.
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

	"github.com/linnemanlabs/bloomwatch/internal/triage"
)

const (
	maxMessageLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier posts alert changes to a Slack webhook.
type Notifier struct {
	webhookURL string
	minLevel   triage.Level
	client     *http.Client
}

// New creates a Slack notifier. Changes to an alert below minLevel are not
// sent; an empty minLevel sends everything. If webhookURL is empty, Notify
// is a no-op.
func New(webhookURL string, minLevel triage.Level) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		minLevel:   minLevel,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Notify posts change to the configured webhook.
func (n *Notifier) Notify(ctx context.Context, change triage.Change) error {
	if n.webhookURL == "" {
		return nil
	}
	if n.minLevel != "" && change.Report.Alert.Level.Rank() < n.minLevel.Rank() {
		return nil
	}

	body, err := json.Marshal(buildMessage(change))
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

func buildMessage(c triage.Change) map[string]any {
	blocks := []map[string]any{
		headerBlock(c),
		fieldsBlock(c),
		{"type": "divider"},
		messageBlock(c.Report.Alert),
	}
	if ov := overlayBlock(c.Report); ov != nil {
		blocks = append(blocks, ov)
	}
	blocks = append(blocks, contextBlock(c))
	return map[string]any{
		"text":   fmt.Sprintf("%s: %s", c.Report.Alert.Type, c.Report.Alert.Title),
		"blocks": blocks,
	}
}

func headerBlock(c triage.Change) map[string]any {
	a := c.Report.Alert
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s", levelEmoji(a.Level), a.Title),
		},
	}
}

func fieldsBlock(c triage.Change) map[string]any {
	a := c.Report.Alert
	fields := []map[string]any{
		{"type": "mrkdwn", "text": fmt.Sprintf("*Type:* %s", a.Type)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Level:* %s", a.Level)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Was:* %s (%s)", c.Previous.Type, c.Previous.Level)},
		{"type": "mrkdwn", "text": fmt.Sprintf("*Rule:* %s", c.Report.Rule)},
	}
	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func messageBlock(a triage.Alert) map[string]any {
	var b strings.Builder
	b.WriteString(a.Message)
	if len(a.Suggestions) > 0 {
		b.WriteString("\n\n*What you can do*")
		for _, s := range a.Suggestions {
			b.WriteString("\n• ")
			b.WriteString(s)
		}
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(b.String(), maxMessageLen),
		},
	}
}

// overlayBlock summarizes the sentiment and vision panels, or returns nil.
func overlayBlock(r triage.Report) map[string]any {
	var elements []map[string]any
	if r.Mindfulness != nil {
		elements = append(elements, map[string]any{"type": "mrkdwn", "text": "\U0001f9d8 " + r.Mindfulness.Title})
	}
	if r.Sentiment != nil {
		elements = append(elements, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("%s Burnout risk: %s • %s", levelEmoji(r.Sentiment.Badge), r.Sentiment.BurnoutRisk, r.Sentiment.SuggestedIntervention),
		})
	}
	if r.Vision != nil && r.Vision.FatigueBar != nil {
		elements = append(elements, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("Fatigue index: %.1f/10", *r.Vision.FatigueBar),
		})
	}
	if len(elements) == 0 {
		return nil
	}
	return map[string]any{"type": "context", "elements": elements}
}

func contextBlock(c triage.Change) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{{
			"type": "mrkdwn",
			"text": fmt.Sprintf("bloomwatch • change %s • %s", c.ID, c.Report.ResolvedAt.UTC().Format("2006-01-02 15:04 UTC")),
		}},
	}
}

func levelEmoji(l triage.Level) string {
	switch l {
	case triage.LevelRed:
		return "\U0001f534" // red circle
	case triage.LevelAmber:
		return "\U0001f7e0" // orange circle
	case triage.LevelYellow:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
