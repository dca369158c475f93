package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// SlackNotifier sends notifications to Slack via an incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
}

// NewSlackNotifier creates a new SlackNotifier.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

// Deliver posts the message to the configured webhook. High priority messages are
// sent as a red attachment.
func (s *SlackNotifier) Deliver(ctx context.Context, msg Message) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}

	payload := &slack.WebhookMessage{Text: slackText(msg)}
	if msg.HighPriority {
		payload.Text = ""
		payload.Attachments = []slack.Attachment{{
			Color:      "danger",
			Fallback:   msg.Title,
			Text:       slackText(msg),
			MarkdownIn: []string{"text"},
		}}
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, client, payload); err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}

// slackText converts the Markdown body to Slack mrkdwn: bold uses single
// asterisks and headings become bold lines.
func slackText(msg Message) string {
	return toMrkdwn(msg.Text())
}
