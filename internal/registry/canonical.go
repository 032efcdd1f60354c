package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrNoHost is returned when a URL carries no usable hostname
var ErrNoHost = errors.New("url has no host")

// CanonicalDomain reduces a URL (or bare host) to the registry key and its scheme.
// Example: "HTTPS://www.Blog.Example.com/page?x=1" -> ("blog.example.com", "https")
func CanonicalDomain(rawURL string) (string, string, error) {
	urlStr := strings.TrimSpace(rawURL)

	// Handle protocol-relative URLs
	if strings.HasPrefix(urlStr, "//") {
		urlStr = "http:" + urlStr
	}

	// Bare hosts such as "example.com/page" carry no scheme
	if !strings.Contains(urlStr, "://") {
		urlStr = "http://" + urlStr
	}

	// Only scheme and authority are parsed, a malformed path must not hide the host
	if i := strings.Index(urlStr, "://"); i >= 0 {
		if end := strings.IndexAny(urlStr[i+3:], "/?#"); end >= 0 {
			urlStr = urlStr[:i+3+end]
		}
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	hostname := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if trimmed := strings.TrimPrefix(hostname, "www."); strings.Contains(trimmed, ".") {
		hostname = trimmed
	}
	if hostname == "" {
		return "", "", fmt.Errorf("%q: %w", rawURL, ErrNoHost)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "https" {
		scheme = "http"
	}

	return hostname, scheme, nil
}

// RegistrableDomain returns the eTLD+1 of a host.
// Example: blog.example.co.uk -> example.co.uk
// Hosts that are themselves public suffixes or IPs are returned unchanged.
func RegistrableDomain(host string) string {
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return root
}

// ParentCandidates lists the ancestors of host that could be its root domain,
// shortest first and never including host itself.
// Example: a.b.example.com -> [example.com, b.example.com]
func ParentCandidates(host string) []string {
	root := RegistrableDomain(host)
	if root == host || !strings.HasSuffix(host, "."+root) {
		return nil
	}

	// Labels between the registrable domain and the host
	prefix := strings.TrimSuffix(host, "."+root)
	labels := strings.Split(prefix, ".")

	candidates := []string{root}
	for i := len(labels) - 1; i > 0; i-- {
		candidates = append(candidates, strings.Join(labels[i:], ".")+"."+root)
	}
	return candidates
}
