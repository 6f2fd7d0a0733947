package httpcache

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrBlocked is returned for URLs that point at local or internal hosts.
var ErrBlocked = errors.New("blocked URL")

// checkURL rejects non-HTTP schemes and, unless allowed, hosts on private networks.
func (c *Client) checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrBlocked, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrBlocked)
	}
	if c.allowPrivate {
		return nil
	}
	return checkHost(u.Hostname())
}

func checkHost(host string) error {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("%w: local host %s", ErrBlocked, host)
	}
	if host == "metadata.google.internal" || host == "metadata.azure.com" {
		return fmt.Errorf("%w: metadata service", ErrBlocked)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
			ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("%w: private IP %s", ErrBlocked, host)
		}
	}
	return nil
}
