package risk

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/linkout"
)

// Single-identity reason codes.
const (
	CodeFacebookNumericID  = "facebook_numeric_id_profile"
	CodeGenericBio         = "generic_platform_bio"
	CodeRepeatedNameTokens = "repeated_name_tokens"
	CodeNoBioLinkouts      = "no_bio_linkouts"
	CodeMissingAvatar      = "missing_avatar_url"
)

// genericBioPhrases are platform template fragments that say nothing about the person.
var genericBioPhrases = []string{
	"is on facebook. join facebook to connect with",
	"facebook gives people the power to share",
	"see instagram photos and videos from",
	"view",
	"profile",
	"on linkedin",
}

// IdentityScore is the low-trust signal for a single identity.
type IdentityScore struct {
	Reasons          []Reason `json:"reasons"`
	AuthenticityRisk float64  `json:"authenticity_risk"`
}

// ScoreIdentity rates how weakly one identity's own evidence binds it to a
// real person. It looks at nothing but rec.
func ScoreIdentity(rec identity.Record) IdentityScore {
	s := IdentityScore{AuthenticityRisk: 0.10, Reasons: []Reason{}}
	add := func(weight float64, code, detail string) {
		s.AuthenticityRisk += weight
		s.Reasons = append(s.Reasons, Reason{Code: code, Detail: detail})
	}

	if rec.Platform == identity.Facebook && isNumericFacebookProfile(rec.Claimed) {
		add(0.20, CodeFacebookNumericID, "profile.php?id=... pattern")
	}

	bio := rec.Bio()
	if IsGenericBio(bio) {
		add(0.20, CodeGenericBio, "bio looks like platform template / non-specific")
	}

	if rep := RepetitionScore(rec.DisplayName()); rep > 0 {
		add(0.15*rep, CodeRepeatedNameTokens, fmt.Sprintf("repetition_score=%.2f", rep))
	}

	links := linkout.Extract(bio)
	if len(links.Domains) == 0 && len(links.Handles) == 0 && len(rec.ExternalLinks()) == 0 {
		add(0.10, CodeNoBioLinkouts, "no URLs or @handles in bio")
	}

	if rec.AvatarURL() == "" {
		add(0.05, CodeMissingAvatar, "no avatar_url extracted")
	}

	s.AuthenticityRisk = clamp(s.AuthenticityRisk)
	return s
}

// IsGenericBio reports whether bio is empty or contains a platform template phrase.
func IsGenericBio(bio string) bool {
	b := strings.ToLower(strings.TrimSpace(bio))
	if b == "" {
		return true
	}
	return slices.ContainsFunc(genericBioPhrases, func(p string) bool {
		return strings.Contains(b, p)
	})
}

// RepetitionScore is 1.0 when the first two name tokens are identical, 0.8
// when the first half of the tokens equals the second half, and 0 otherwise.
func RepetitionScore(name string) float64 {
	toks := strings.Fields(name)
	if len(toks) < 2 {
		return 0
	}
	if toks[0] == toks[1] {
		return 1.0
	}
	if half := len(toks) / 2; len(toks)%2 == 0 && slices.Equal(toks[:half], toks[half:]) {
		return 0.8
	}
	return 0
}

// isNumericFacebookProfile matches profile.php?id=... URLs, with or without a scheme.
func isNumericFacebookProfile(claimed string) bool {
	c := strings.TrimSpace(claimed)
	if !strings.Contains(c, "://") {
		c = "https://" + c
	}
	u, err := url.Parse(c)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.Trim(u.Path, "/"), "profile.php") && u.Query().Has("id")
}
