// Package identifier classifies claimed identity strings and extracts handles.
package identifier

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/linkout"
)

// Kind is the shape of a claimed identifier.
type Kind string

// Identifier kinds.
const (
	KindURL    Kind = "url"
	KindEmail  Kind = "email"
	KindHandle Kind = "handle"
	KindOther  Kind = "other"
)

// Parsed is the structured form of a claimed identifier.
// Domain and Handle are empty when absent.
type Parsed struct {
	Raw        string `json:"raw"`
	Kind       Kind   `json:"kind"`
	Domain     string `json:"domain,omitempty"`
	Handle     string `json:"handle,omitempty"`
	Normalized string `json:"normalized"`
}

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	handlePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{2,64}$`)
)

// Parse classifies claimed and extracts its handle and domain.
// It never fails; unparseable input comes back as KindOther or a URL with no handle.
func Parse(claimed string, platform identity.Platform) Parsed {
	raw := strings.TrimSpace(claimed)
	p := Parsed{Raw: raw, Kind: KindOther}

	lower := strings.ToLower(raw)
	switch {
	case emailPattern.MatchString(raw):
		p.Kind = KindEmail
		local, _, _ := strings.Cut(raw, "@")
		p.Handle = strings.ToLower(local)
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		p.Kind = KindURL
		p.Domain = linkout.Host(raw)
		p.Handle = handleFromURL(raw, platform)
	default:
		if h := cleanHandle(raw); handlePattern.MatchString(h) {
			p.Kind = KindHandle
			p.Handle = h
		}
	}

	if p.Handle != "" {
		p.Normalized = normalizeBasic(p.Handle)
	} else {
		p.Normalized = normalizeBasic(raw)
	}
	return p
}

func handleFromURL(rawURL string, platform identity.Platform) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	var segs []string
	for seg := range strings.SplitSeq(u.Path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}

	switch platform {
	case identity.LinkedIn:
		if len(segs) >= 2 && (segs[0] == "in" || segs[0] == "company") {
			return cleanHandle(segs[1])
		}
	case identity.GitHub, identity.Instagram, identity.X:
		if len(segs) > 0 {
			return cleanHandle(segs[0])
		}
	case identity.Facebook:
		if len(segs) > 0 && strings.EqualFold(segs[0], "profile.php") {
			return cleanHandle(u.Query().Get("id"))
		}
		if len(segs) > 0 {
			return cleanHandle(segs[0])
		}
	}

	if len(segs) > 0 {
		return cleanHandle(segs[0])
	}
	return ""
}

// cleanHandle strips whitespace, one leading "@", and surrounding slashes.
func cleanHandle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimSpace(s)
	return strings.Trim(s, "/")
}

// normalizeBasic lowercases, removes whitespace, and folds 0->o and 1->l
// unless the value is purely numeric.
func normalizeBasic(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	if isDigits(s) {
		return s
	}
	return strings.NewReplacer("0", "o", "1", "l").Replace(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
