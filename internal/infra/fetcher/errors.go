package fetcher

import "errors"

// Sentinel errors for content fetching.
var (
	// ErrInvalidURL indicates a malformed URL or a scheme other than http/https.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates that the host resolves to a private, loopback or
	// link-local address while DenyPrivateIPs is set.
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects indicates that MaxRedirects was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates a response larger than MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates that the request exceeded Timeout.
	ErrTimeout = errors.New("request timeout")

	// ErrReadabilityFailed indicates that no readable text could be extracted.
	ErrReadabilityFailed = errors.New("content extraction failed")
)
