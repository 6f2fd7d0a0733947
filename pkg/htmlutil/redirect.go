package htmlutil

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	refreshURLPattern = regexp.MustCompile(`(?i)^\s*\d+\s*;\s*url\s*=\s*['"]?([^'"\s>]+)`)
	jsRedirectPattern = []*regexp.Regexp{
		regexp.MustCompile(`(?i)window\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?i)document\.location(?:\.href)?\s*=\s*["']([^"']+)["']`),
		regexp.MustCompile(`(?i)(?:window\.)?location\.(?:replace|assign)\s*\(\s*["']([^"']+)["']\s*\)`),
	}
)

// RedirectTarget returns the absolute URL a page redirects to through a meta
// refresh or a JavaScript location assignment, or "" if it does not.
func RedirectTarget(body []byte, base string) string {
	target := ""
	if p, err := Parse(body, base); err == nil {
		target = p.Refresh
	}
	if target == "" {
		content := string(body)
		for _, re := range jsRedirectPattern {
			if m := re.FindStringSubmatch(content); len(m) > 1 {
				if t := strings.TrimSpace(m[1]); t != "" && !strings.HasPrefix(t, "#") && t != "." && t != "./" {
					target = t
					break
				}
			}
		}
	}
	if target == "" {
		return ""
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	abs := resolve(baseURL, target)
	if !isHTTP(abs) || abs == base {
		return ""
	}
	return abs
}

// refreshTarget extracts the URL from a meta refresh content attribute.
func refreshTarget(content string) string {
	if m := refreshURLPattern.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	return ""
}
