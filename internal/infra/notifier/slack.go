package notifier

import (
	"context"
	"fmt"
	"time"

	"crashscraper/internal/domain/entity"
)

// SlackConfig configures the Slack channel. WebhookURL embeds the token.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// SlackNotifier posts accident alerts as Block Kit messages.
type SlackNotifier struct {
	webhook *webhook
}

// NewSlackNotifier limits delivery to one request per second, the Incoming
// Webhook limit.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{webhook: newWebhook("slack", config.WebhookURL, config.Timeout, 1, 1)}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`               // "section", "context"
	Text     *SlackTextObject  `json:"text,omitempty"`     // Text content (for section)
	Elements []SlackTextObject `json:"elements,omitempty"` // Elements (for context)
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

const (
	maxSectionTextLength = 3000 // Block Kit section limit
	maxFallbackLength    = 150
	slackExcerptLength   = 500
)

// buildBlockKitPayload creates the alert payload:
//   - Text: fallback "Accident: title - source"
//   - Section Block: linked title and a body excerpt
//   - Context Block: source name, publication date and vote count
func (s *SlackNotifier) buildBlockKitPayload(article *entity.Article, source *entity.Source) SlackWebhookPayload {
	fallback := excerpt(fmt.Sprintf("Accident: %s - %s", article.Title, source.Name), maxFallbackLength)

	section := fmt.Sprintf("*<%s|%s>*", article.URL, article.Title)
	if body := excerpt(article.Body, slackExcerptLength); body != "" {
		section += "\n\n" + body
	}
	section = excerpt(section, maxSectionTextLength)

	published := "unknown date"
	if !article.PublishedAt.IsZero() {
		published = article.PublishedAt.Format("2006-01-02")
	}
	contextText := fmt.Sprintf("%s • %s • %s", source.Name, published, votesSummary(article.Votes))

	return SlackWebhookPayload{
		Text: fallback,
		Blocks: []SlackBlock{
			{
				Type: "section",
				Text: &SlackTextObject{Type: "mrkdwn", Text: section},
			},
			{
				Type:     "context",
				Elements: []SlackTextObject{{Type: "mrkdwn", Text: contextText}},
			},
		},
	}
}

// NotifyAccident implements Notifier.
func (s *SlackNotifier) NotifyAccident(ctx context.Context, article *entity.Article, source *entity.Source) error {
	return s.webhook.notify(ctx, article, s.buildBlockKitPayload(article, source))
}
