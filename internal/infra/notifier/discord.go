package notifier

import (
	"context"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/utils/text"
)

// DiscordConfig configures the Discord channel. WebhookURL embeds the token.
type DiscordConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// DiscordNotifier posts accident alerts as a single embed.
type DiscordNotifier struct {
	webhook *webhook
}

// NewDiscordNotifier limits delivery to one request every 2s with a burst of
// 3, inside Discord's 30 requests per minute per webhook.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{webhook: newWebhook("discord", config.WebhookURL, config.Timeout, 0.5, 3)}
}

// DiscordWebhookPayload is the body of an execute-webhook request.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed is one rich embed.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp,omitempty"`
}

// DiscordEmbedFooter is the small text under an embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	maxTitleLength       = 256 // embed title limit
	discordExcerptLength = 1000

	// 事故アラートは赤 (#ED4245)
	discordRedColor = 0xED4245
)

// buildEmbedPayload links the title to the article, puts a body excerpt in
// the description and the source with the vote count in the footer.
func (d *DiscordNotifier) buildEmbedPayload(article *entity.Article, source *entity.Source) DiscordWebhookPayload {
	embed := DiscordEmbed{
		Title:       text.Truncate(article.Title, maxTitleLength),
		Description: excerpt(article.Body, discordExcerptLength),
		URL:         article.URL,
		Color:       discordRedColor,
		Footer:      DiscordEmbedFooter{Text: source.Name + " • " + votesSummary(article.Votes)},
	}
	if !article.PublishedAt.IsZero() {
		embed.Timestamp = article.PublishedAt.Format(time.RFC3339)
	}
	return DiscordWebhookPayload{Embeds: []DiscordEmbed{embed}}
}

// NotifyAccident implements Notifier.
func (d *DiscordNotifier) NotifyAccident(ctx context.Context, article *entity.Article, source *entity.Source) error {
	return d.webhook.notify(ctx, article, d.buildEmbedPayload(article, source))
}
