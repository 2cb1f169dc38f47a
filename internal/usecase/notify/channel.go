// Package notify dispatches accident alerts to the configured chat channels.
// Dispatch is asynchronous: the caller never waits on a webhook, failures are
// logged and counted, and a channel that keeps failing is short-circuited.
package notify

import (
	"context"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/infra/notifier"
)

// Channel represents one alert delivery channel (Slack, Discord).
// All methods must be safe for concurrent use.
type Channel interface {
	// Name returns the lowercase channel identifier used in logs and metrics.
	Name() string

	// IsEnabled returns true if this channel is enabled via configuration.
	IsEnabled() bool

	// Send delivers one alert. Implementations retry transient failures
	// themselves and must respect ctx.
	Send(ctx context.Context, article *entity.Article, source *entity.Source) error
}

// NotifierChannel adapts a notifier.Notifier to Channel.
type NotifierChannel struct {
	name     string
	enabled  bool
	notifier notifier.Notifier
}

// NewSlackChannel creates the "slack" channel. A disabled config is backed
// by notifier.NewNoOpNotifier.
func NewSlackChannel(config notifier.SlackConfig) *NotifierChannel {
	if !config.Enabled {
		return NewNotifierChannel("slack", false, notifier.NewNoOpNotifier())
	}
	return NewNotifierChannel("slack", true, notifier.NewSlackNotifier(config))
}

// NewDiscordChannel creates the "discord" channel.
func NewDiscordChannel(config notifier.DiscordConfig) *NotifierChannel {
	if !config.Enabled {
		return NewNotifierChannel("discord", false, notifier.NewNoOpNotifier())
	}
	return NewNotifierChannel("discord", true, notifier.NewDiscordNotifier(config))
}

// NewNotifierChannel wraps n under the given channel name.
func NewNotifierChannel(name string, enabled bool, n notifier.Notifier) *NotifierChannel {
	return &NotifierChannel{name: name, enabled: enabled, notifier: n}
}

func (c *NotifierChannel) Name() string    { return c.name }
func (c *NotifierChannel) IsEnabled() bool { return c.enabled }

// Send validates the input and delegates to the wrapped notifier.
func (c *NotifierChannel) Send(ctx context.Context, article *entity.Article, source *entity.Source) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if article == nil || article.URL == "" || article.Title == "" {
		return ErrInvalidArticle
	}
	if source == nil || source.Name == "" {
		return ErrInvalidSource
	}
	return c.notifier.NotifyAccident(ctx, article, source)
}
