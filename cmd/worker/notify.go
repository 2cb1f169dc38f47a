package main

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"crashscraper/internal/infra/adapter/persistence"
	"crashscraper/internal/infra/notifier"
	envconfig "crashscraper/internal/pkg/config"
	"crashscraper/internal/usecase/notify"
)

const webhookTimeout = 30 * time.Second

// setupNotifications builds the accident alert service from the SLACK_* and
// DISCORD_* variables. Without enabled channels alerts are dropped.
func setupNotifications(logger *slog.Logger, repos persistence.Repositories, maxConcurrent int) *notify.Service {
	channels := []notify.Channel{
		notify.NewDiscordChannel(loadDiscordConfig(logger)),
		notify.NewSlackChannel(loadSlackConfig(logger)),
	}

	svc := notify.NewService(channels, repos.Sources, maxConcurrent)
	enabled := 0
	for _, ch := range channels {
		if ch.IsEnabled() {
			enabled++
		}
	}
	logger.Info("notification service initialized",
		slog.Int("enabled_channels", enabled),
		slog.Int("max_concurrent", maxConcurrent))
	return svc
}

// loadDiscordConfig reads DISCORD_ENABLED and DISCORD_WEBHOOK_URL.
// An invalid webhook URL disables the channel.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	webhookURL, ok := loadWebhook(logger, "discord", "DISCORD_ENABLED", "DISCORD_WEBHOOK_URL",
		"discord.com", "/api/webhooks/")
	if !ok {
		return notifier.DiscordConfig{Enabled: false}
	}
	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    webhookTimeout,
	}
}

// loadSlackConfig reads SLACK_ENABLED and SLACK_WEBHOOK_URL.
// An invalid webhook URL disables the channel.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	webhookURL, ok := loadWebhook(logger, "slack", "SLACK_ENABLED", "SLACK_WEBHOOK_URL",
		"hooks.slack.com", "/services/")
	if !ok {
		return notifier.SlackConfig{Enabled: false}
	}
	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    webhookTimeout,
	}
}

func loadWebhook(logger *slog.Logger, channel, enabledKey, urlKey, host, pathPrefix string) (string, bool) {
	if !envconfig.LoadEnvBool(enabledKey, false).Value {
		logger.Info("notification channel disabled", slog.String("channel", channel))
		return "", false
	}

	webhookURL := envconfig.LoadEnvString(urlKey, "")
	if err := envconfig.ValidateWebhookURL(webhookURL); err != nil {
		logger.Warn("invalid webhook URL, disabling notifications",
			slog.String("channel", channel),
			slog.Any("error", err))
		return "", false
	}

	// トークンを含むためURL全体はログに出さない
	u, _ := url.Parse(webhookURL)
	if u.Host != host || !strings.HasPrefix(u.Path, pathPrefix) {
		logger.Warn("unexpected webhook host or path, disabling notifications",
			slog.String("channel", channel),
			slog.String("host", u.Host))
		return "", false
	}
	return webhookURL, true
}
