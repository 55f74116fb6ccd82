// Package slack sends incident alerts to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/medic/internal/incident"
)

const (
	maxHypothesisLen = 3000
	httpTimeout      = 10 * time.Second
)

// Notifier posts diagnosis alerts to a Slack webhook. It implements
// incident.AlertSink; severity gating happens in the dispatcher, so every
// incident handed to NotifyIncident is sent.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyIncident
// is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// NotifyIncident posts the incident's diagnosis to the configured webhook.
func (n *Notifier) NotifyIncident(ctx context.Context, inc *incident.Incident) error {
	if n.webhookURL == "" {
		return nil
	}
	if inc.Diagnosis == nil {
		return fmt.Errorf("slack: incident %s has no diagnosis", inc.ID)
	}

	body, err := json.Marshal(buildMessage(inc))
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

func buildMessage(inc *incident.Incident) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(inc),
			{"type": "divider"},
			fieldsBlock(inc),
			{"type": "divider"},
			hypothesisBlock(inc.Diagnosis),
			{"type": "divider"},
			contextBlock(inc),
		},
	}
}

func headerBlock(inc *incident.Incident) map[string]any {
	text := fmt.Sprintf("%s %s Incident Alert",
		severityEmoji(inc.Diagnosis.Severity), inc.Diagnosis.Severity)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(inc *incident.Incident) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Service:* %s", signalOrUnknown(inc, incident.SignalService)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", inc.Diagnosis.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Symptom:* %s", signalOrUnknown(inc, incident.SignalSymptom)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Scope:* %s", signalOrUnknown(inc, incident.SignalScope)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func hypothesisBlock(d *incident.Diagnosis) map[string]any {
	text := "_No root cause identified._"
	if len(d.Hypotheses) > 0 {
		h := d.Hypotheses[0]
		text = truncate(fmt.Sprintf("%s (%s confidence)\n%s", h.Description, h.Confidence, h.Reasoning), maxHypothesisLen)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Likely Root Cause*\n\n%s", text),
		},
	}
}

func contextBlock(inc *incident.Incident) map[string]any {
	ts := inc.UpdatedAt
	if ts.IsZero() {
		ts = inc.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("medic • incident %s • %s", inc.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func signalOrUnknown(inc *incident.Incident, key string) string {
	if v := inc.Signals[key]; v != "" {
		return v
	}
	return "unknown"
}

func severityEmoji(severity incident.Severity) string {
	switch severity {
	case incident.SeverityCritical:
		return "\U0001f534" // red circle
	case incident.SeverityHigh:
		return "\U0001f7e0" // orange circle
	case incident.SeverityMedium:
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
