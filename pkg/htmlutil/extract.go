// Package htmlutil extracts identity evidence from HTML pages.
package htmlutil

import (
	"strings"
)

// notFoundPhrases appear on soft-404 pages served with HTTP 200.
var notFoundPhrases = []string{
	"404 not found",
	"page not found",
	"error 404",
	"this page isn't available",
	"this page doesn't exist",
	"sorry, this page isn't available",
	"user not found",
	"profile not found",
	"account not found",
	"this account doesn't exist",
	"this account has been suspended",
	"the link you followed may be broken",
}

// IsNotFound detects soft-404 titles and bodies.
func IsNotFound(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range notFoundPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsChallengePage detects bot-protection interstitials that return HTTP 200
// without the profile content.
func IsChallengePage(body []byte) bool {
	content := strings.ToLower(string(body))

	if len(body) < 500 && strings.Contains(content, "javascript") && strings.Contains(content, "enable") {
		return true
	}
	switch {
	case strings.Contains(content, "client challenge"),
		strings.Contains(content, "checking your browser"),
		strings.Contains(content, "cf-browser-verification"),
		strings.Contains(content, "cf_chl_opt"),
		strings.Contains(content, "please verify you are a human"),
		strings.Contains(content, "verify you are human"):
		return true
	case strings.Contains(content, "access denied") && strings.Contains(content, "bot"):
		return true
	case strings.Contains(content, "datadome") && strings.Contains(content, "captcha"):
		return true
	}
	return false
}
