package graph

import (
	"context"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identifier"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/linkout"
	"github.com/codeGROOVE-dev/sivaguard/pkg/nameclean"
)

// ErrAvatarURLMissing is recorded on nodes that have no avatar to hash.
const ErrAvatarURLMissing = "avatar_url_missing"

// errCollaboratorMissing is recorded when no collaborator was configured.
const errCollaboratorMissing = "collaborator_unavailable"

// Node is the aggregated feature record for one identity.
// Optional string fields are empty when absent.
type Node struct {
	ReverseFetchCached  *bool             `json:"reverse_fetch_cached"`
	ID                  string            `json:"id"`
	Platform            identity.Platform `json:"platform"`
	Claimed             string            `json:"claimed"`
	DisplayName         string            `json:"display_name,omitempty"`
	DisplayNameClean    string            `json:"display_name_clean,omitempty"`
	Bio                 string            `json:"bio,omitempty"`
	AvatarURL           string            `json:"avatar_url,omitempty"`
	ParsedKind          identifier.Kind   `json:"parsed_kind"`
	ParsedDomain        string            `json:"parsed_domain,omitempty"`
	ParsedHandle        string            `json:"parsed_handle,omitempty"`
	Norm                string            `json:"norm"`
	ReverseLinkURL      string            `json:"reverse_link_url,omitempty"`
	ReverseLinkError    string            `json:"reverse_link_error,omitempty"`
	AvatarSHA256        string            `json:"avatar_sha256,omitempty"`
	AvatarHashError     string            `json:"avatar_hash_error,omitempty"`
	BioLinkDomains      []string          `json:"bio_link_domains"`
	BioLinkHandles      []string          `json:"bio_link_handles"`
	ExternalLinkDomains []string          `json:"external_link_domains"`
	ReverseLinkDomains  []string          `json:"reverse_link_domains"`
	HasPublic           bool              `json:"has_public"`
}

func newNode(ctx context.Context, cfg *config, key string, rec identity.Record) Node {
	claimed := rec.Claimed
	if claimed == "" {
		claimed = key
	}
	parsed := identifier.Parse(claimed, rec.Platform)
	display := rec.DisplayName()
	bio := rec.Bio()
	links := linkout.Extract(bio)

	n := Node{
		ID:                  key,
		Platform:            rec.Platform,
		Claimed:             claimed,
		HasPublic:           rec.HasPublic,
		DisplayName:         display,
		DisplayNameClean:    nameclean.Clean(display, rec.Platform),
		Bio:                 bio,
		AvatarURL:           rec.AvatarURL(),
		ParsedKind:          parsed.Kind,
		ParsedDomain:        parsed.Domain,
		ParsedHandle:        parsed.Handle,
		Norm:                parsed.Normalized,
		BioLinkDomains:      links.Domains,
		BioLinkHandles:      links.Handles,
		ExternalLinkDomains: linkout.Domains(rec.ExternalLinks()),
	}

	switch {
	case n.AvatarURL == "":
		n.AvatarHashError = ErrAvatarURLMissing
	case cfg.avatars == nil:
		n.AvatarHashError = errCollaboratorMissing
	default:
		h := cfg.avatars.HashAvatar(ctx, n.AvatarURL)
		n.AvatarSHA256, n.AvatarHashError = h.SHA256, h.Err
		if h.SHA256 == "" && h.Err == "" {
			n.AvatarHashError = "avatar_hash_empty"
		}
	}

	if len(links.URLs) > 0 {
		n.ReverseLinkURL = links.URLs[0]
		if cfg.reverse == nil {
			n.ReverseLinkError = errCollaboratorMissing
		} else {
			rl := cfg.reverse.OutboundLinks(ctx, n.ReverseLinkURL)
			n.ReverseFetchCached = rl.FetchCached
			if rl.Err != "" {
				n.ReverseLinkError = rl.Err
			} else {
				n.ReverseLinkDomains = append([]string{}, rl.OutboundDomains...)
			}
		}
		if n.ReverseLinkError != "" {
			cfg.logger.DebugContext(ctx, "reverse links unavailable", "id", key, "url", n.ReverseLinkURL, "error", n.ReverseLinkError)
		}
	}
	return n
}

// handleKey is the identifier compared across nodes: the parsed handle, or
// the normalized claim when no handle could be extracted.
func (n *Node) handleKey() string {
	if n.ParsedHandle != "" {
		return n.ParsedHandle
	}
	return n.Norm
}

// nameKey prefers the cleaned display name and falls back to the raw one.
func (n *Node) nameKey() string {
	if n.DisplayNameClean != "" {
		return n.DisplayNameClean
	}
	return n.DisplayName
}
