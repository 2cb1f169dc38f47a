// Package notifier delivers accident alerts to chat webhooks (Slack and
// Discord). Each implementation owns its rate limiter and retry policy.
package notifier

import (
	"context"

	"crashscraper/internal/domain/entity"
)

// Notifier sends one alert about an article labelled ACCIDENT: title, link,
// an excerpt of the body and the publisher name. A non-nil error means the
// alert was not delivered after every retry.
type Notifier interface {
	NotifyAccident(ctx context.Context, article *entity.Article, source *entity.Source) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, article *entity.Article, source *entity.Source) error

// NotifyAccident calls f.
func (f Func) NotifyAccident(ctx context.Context, article *entity.Article, source *entity.Source) error {
	return f(ctx, article, source)
}

// NewNoOpNotifier returns a Notifier that drops every alert. Channels without
// a configured webhook use it.
func NewNoOpNotifier() Notifier {
	return Func(func(context.Context, *entity.Article, *entity.Source) error { return nil })
}
