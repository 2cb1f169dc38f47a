package notify

import "errors"

var (
	// ErrChannelDisabled is returned by Send on a disabled channel.
	ErrChannelDisabled = errors.New("notify: channel disabled")
	// ErrInvalidArticle means the alert has no article, URL or title to show.
	ErrInvalidArticle = errors.New("notify: article missing url or title")
	// ErrInvalidSource means the publisher of the article could not be named.
	ErrInvalidSource = errors.New("notify: source missing name")
	// ErrShutdown is returned by NotifyAccident after Shutdown.
	ErrShutdown = errors.New("notify: service is shut down")
)
