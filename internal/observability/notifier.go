package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier pushes triggered alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, since time.Time, alerts []Alert) error
}

type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier posting to a Slack incoming webhook.
// A nil client gets a default one with a 10 second timeout.
func NewSlackNotifier(webhookURL string, client *http.Client) Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &slackNotifier{webhookURL: webhookURL, client: client}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts one message summarising alerts. No request is made when
// there is nothing to report.
func (s *slackNotifier) Notify(ctx context.Context, since time.Time, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildSlackMessage(since, alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildSlackMessage(since time.Time, alerts []Alert) slackMessage {
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: "schedy: understanding quality alerts"}},
		{Type: "context", Elements: []slackText{{
			Type: "mrkdwn",
			Text: fmt.Sprintf("%d alert(s) for utterances since %s", len(alerts), since.UTC().Format("2006-01-02 15:04 UTC")),
		}}},
	}
	for _, alert := range alerts {
		blocks = append(blocks, slackBlock{Type: "divider"}, slackBlock{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("%s *[%s]* %s\n`%s`", severityEmoji(alert.Severity),
					strings.ToUpper(string(alert.Severity)), alert.Message, alert.Condition),
			},
		})
	}
	return slackMessage{Blocks: blocks}
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "❓"
	}
}
