// Package linkout extracts URLs, domains, and @handles from free text.
package linkout

import (
	"regexp"
	"strings"
)

// LinkOuts is everything a bio points at.
type LinkOuts struct {
	URLs    []string `json:"urls"`
	Domains []string `json:"domains"`
	Handles []string `json:"handles"`
}

var (
	urlPattern    = regexp.MustCompile(`(?i)https?://[^\s)]+`)
	handlePattern = regexp.MustCompile(`@([a-zA-Z0-9._-]{2,64})`)
)

// Extract finds URLs, their unique domains, and unique lowercased @handles.
// URLs keep their order and duplicates; domains and handles are first-seen unique.
func Extract(text string) LinkOuts {
	out := LinkOuts{URLs: []string{}, Domains: []string{}, Handles: []string{}}
	if text == "" {
		return out
	}

	out.URLs = append(out.URLs, urlPattern.FindAllString(text, -1)...)
	out.Domains = Domains(out.URLs)

	seen := make(map[string]bool)
	for _, m := range handlePattern.FindAllStringSubmatch(text, -1) {
		h := strings.ToLower(m[1])
		if !seen[h] {
			seen[h] = true
			out.Handles = append(out.Handles, h)
		}
	}
	return out
}

// Domains returns the unique non-empty hosts of urls in first-seen order.
func Domains(urls []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, u := range urls {
		h := Host(u)
		if h != "" && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// Host returns the lowercased network location (host and optional port) of
// an absolute URL, or "" if there is none. Userinfo is kept.
func Host(rawURL string) string {
	_, rest, ok := strings.Cut(rawURL, "//")
	if !ok {
		return ""
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}
