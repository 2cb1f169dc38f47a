// Package fetcher extracts readable article text with go-readability, either
// from HTML a scraper already downloaded or by fetching the article page.
package fetcher

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
)

// checkTarget verifies that an article or redirect URL may be fetched.
// With denyPrivate set the host is resolved and every address must be public.
func checkTarget(ctx context.Context, rawURL string, denyPrivate bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}
	if !denyPrivate {
		return nil
	}

	// IP リテラルは DNS を引かない
	if addr, err := netip.ParseAddr(host); err == nil {
		return checkAddr(host, addr)
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrInvalidURL, host, err)
	}
	for _, addr := range addrs {
		if err := checkAddr(host, addr); err != nil {
			return err
		}
	}
	return nil
}

func checkAddr(host string, addr netip.Addr) error {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return fmt.Errorf("%w: %s -> %s", ErrPrivateIP, host, addr)
	}
	return nil
}
