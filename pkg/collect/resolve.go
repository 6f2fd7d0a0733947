package collect

import (
	"fmt"
	"net/url"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identifier"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

// profileURL maps a bare handle to the platform's public profile page.
var profileURL = map[identity.Platform]string{
	identity.X:         "https://x.com/%s",
	identity.Instagram: "https://www.instagram.com/%s/",
	identity.GitHub:    "https://github.com/%s",
	identity.TikTok:    "https://www.tiktok.com/@%s",
	identity.YouTube:   "https://www.youtube.com/@%s",
	identity.LinkedIn:  "https://www.linkedin.com/in/%s/",
	identity.Facebook:  "https://www.facebook.com/%s",
}

// ProfileURL returns the public page to fetch for a claim, or "" when the
// claim cannot be resolved to one (emails, free text, handles on "other").
func ProfileURL(c identity.Claim) string {
	p := identifier.Parse(c.Claimed, c.Platform)
	switch p.Kind {
	case identifier.KindURL:
		return p.Raw
	case identifier.KindHandle:
		if tmpl, ok := profileURL[c.Platform]; ok {
			return fmt.Sprintf(tmpl, url.PathEscape(p.Handle))
		}
	}
	return ""
}
