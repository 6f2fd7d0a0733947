// Package identity defines the claim and evidence records scored by sivaguard.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

// RecordVersion is the schema version stamped on every Record.
const RecordVersion = 1

// Common errors.
var (
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrEmptyClaim      = errors.New("empty claimed identifier")
)

// UIHint is what the relying party's own UI showed for an identity.
type UIHint struct {
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"   yaml:"avatar_url,omitempty"`
	Snippet     string `json:"snippet,omitempty"      yaml:"snippet,omitempty"`
}

// Claim is a single asserted identity before any evidence is collected.
type Claim struct {
	UI       *UIHint  `json:"ui,omitempty"   yaml:"ui,omitempty"`
	Platform Platform `json:"platform"       yaml:"platform"`
	Claimed  string   `json:"claimed"        yaml:"claimed"`
}

// Validate checks that a claim can be scored.
func (c Claim) Validate() error {
	if strings.TrimSpace(c.Claimed) == "" {
		return ErrEmptyClaim
	}
	if _, err := ParsePlatform(string(c.Platform)); err != nil {
		return err
	}
	return nil
}

// PublicEvidence is what could be read from the identity's public page.
type PublicEvidence struct {
	Confidence    map[string]float64 `json:"confidence,omitempty"     yaml:"confidence,omitempty"`
	DisplayName   string             `json:"display_name,omitempty"   yaml:"display_name,omitempty"`
	Bio           string             `json:"bio,omitempty"            yaml:"bio,omitempty"`
	AvatarURL     string             `json:"avatar_url,omitempty"     yaml:"avatar_url,omitempty"`
	ExternalLinks []string           `json:"external_links,omitempty" yaml:"external_links,omitempty"`
}

// Record is the collected evidence for one identity.
type Record struct {
	UI        *UIHint         `json:"ui,omitempty"     yaml:"ui,omitempty"`
	Public    *PublicEvidence `json:"public,omitempty" yaml:"public,omitempty"`
	Platform  Platform        `json:"platform"         yaml:"platform"`
	Claimed   string          `json:"claimed"          yaml:"claimed"`
	Errors    []string        `json:"errors,omitempty" yaml:"errors,omitempty"`
	Version   int             `json:"version"          yaml:"version"`
	HasPublic bool            `json:"has_public"       yaml:"has_public"`
}

// NewRecord returns an evidence record for a claim with no public evidence yet.
func NewRecord(c Claim) Record {
	return Record{
		Version:  RecordVersion,
		Platform: c.Platform,
		Claimed:  c.Claimed,
		UI:       c.UI,
	}
}

// DisplayName prefers the public display name over the UI hint.
func (r *Record) DisplayName() string {
	if r.Public != nil {
		if s := strings.TrimSpace(r.Public.DisplayName); s != "" {
			return s
		}
	}
	if r.UI != nil {
		return strings.TrimSpace(r.UI.DisplayName)
	}
	return ""
}

// Bio prefers the public bio over the UI snippet.
func (r *Record) Bio() string {
	if r.Public != nil {
		if s := strings.TrimSpace(r.Public.Bio); s != "" {
			return s
		}
	}
	if r.UI != nil {
		return strings.TrimSpace(r.UI.Snippet)
	}
	return ""
}

// AvatarURL prefers the public avatar over the UI hint.
func (r *Record) AvatarURL() string {
	if r.Public != nil {
		if s := strings.TrimSpace(r.Public.AvatarURL); s != "" {
			return s
		}
	}
	if r.UI != nil {
		return strings.TrimSpace(r.UI.AvatarURL)
	}
	return ""
}

// ExternalLinks returns the public profile's website fields, if any.
func (r *Record) ExternalLinks() []string {
	if r.Public == nil {
		return nil
	}
	return r.Public.ExternalLinks
}

// AddError appends a machine-readable error code.
func (r *Record) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
