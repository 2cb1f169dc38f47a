package entity

import (
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// maxURLLength bounds stored article and source URLs.
const maxURLLength = 2048

// ValidateURL accepts absolute http(s) URLs of at most maxURLLength bytes.
// Hosts that are literal private, loopback or link-local addresses, or
// "localhost", are rejected so that a source entry cannot aim the crawler at
// internal services. Names are not resolved here.
func ValidateURL(rawURL string) error {
	invalid := func(msg string) error { return &ValidationError{Field: "url", Message: msg} }

	if rawURL == "" {
		return invalid("is required")
	}
	if len(rawURL) > maxURLLength {
		return invalid("longer than " + strconv.Itoa(maxURLLength) + " characters")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid(err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("scheme must be http or https")
	}
	host := u.Hostname()
	if host == "" {
		return invalid("host is missing")
	}
	if strings.EqualFold(host, "localhost") {
		return invalid("points to a private network")
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() {
			return invalid("points to a private network")
		}
	}
	return nil
}
