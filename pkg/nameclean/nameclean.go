// Package nameclean strips platform title templates from display names.
package nameclean

import (
	"strings"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

// separators start the template tail of a page title, e.g. "Jane Doe | Facebook".
var separators = []string{"|", "•", "-", "—", "–", "·", ":", "(", "["}

// Clean returns raw with template suffixes and a trailing platform name
// removed. Missing input yields "".
func Clean(raw string, platform identity.Platform) string {
	s := collapse(raw)
	if s == "" {
		return ""
	}

	for _, sep := range separators {
		if before, _, found := strings.Cut(s, sep); found {
			s = strings.TrimSpace(before)
		}
	}

	for _, tok := range platform.Tokens() {
		n := len(s) - len(tok)
		if n > 0 && s[n-1] == ' ' && strings.EqualFold(s[n:], tok) {
			s = s[:n-1]
			break
		}
	}
	return collapse(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
