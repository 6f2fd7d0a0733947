// Platform names and aliases.

package identity

import (
	"fmt"
	"strings"
)

// Platform identifies the service an identity claim belongs to.
type Platform string

// Supported platforms. Anything unrecognized is rejected at the input boundary.
const (
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	X         Platform = "x"
	GitHub    Platform = "github"
	LinkedIn  Platform = "linkedin"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
	Other     Platform = "other"
)

// Platforms returns every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{Facebook, Instagram, X, GitHub, LinkedIn, TikTok, YouTube, Other}
}

// aliases maps accepted spellings to the canonical platform.
var aliases = map[string]Platform{
	"facebook":  Facebook,
	"fb":        Facebook,
	"instagram": Instagram,
	"ig":        Instagram,
	"x":         X,
	"twitter":   X,
	"github":    GitHub,
	"linkedin":  LinkedIn,
	"tiktok":    TikTok,
	"youtube":   YouTube,
	"other":     Other,
}

// ParsePlatform resolves a platform name, accepting "twitter" as an alias for X.
func ParsePlatform(s string) (Platform, error) {
	p, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
	return p, nil
}

// Tokens returns the words a platform appends to page titles and display
// names, e.g. "Jane Doe | Facebook".
func (p Platform) Tokens() []string {
	switch p {
	case X:
		return []string{"twitter", "x"}
	case Other, "":
		return nil
	default:
		return []string{string(p)}
	}
}

// String implements fmt.Stringer.
func (p Platform) String() string { return string(p) }

// UnmarshalText implements encoding.TextUnmarshaler so JSON and YAML inputs
// are validated and aliases are folded on decode.
func (p *Platform) UnmarshalText(b []byte) error {
	parsed, err := ParsePlatform(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p), nil
}
