package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Labels are alphanumeric with interior hyphens; the TLD needs 2+ letters.
var domainPattern = regexp.MustCompile(
	`^(?i)[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*\.[a-z]{2,}$`,
)

// ValidDomain reports whether the given registry domain is syntactically valid.
func ValidDomain(domain string) bool {
	return domainPattern.MatchString(domain)
}

// NormalizeDomain lowercases and strips a leading "www." so registry lookups
// match however the user typed the domain.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(d, "www.")
}

// HostDomain extracts the normalized registrable host from a URL.
func HostDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := NormalizeDomain(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return host, nil
}
