package graph

import (
	"slices"
	"strings"

	"github.com/codeGROOVE-dev/sivaguard/pkg/similarity"
)

// Edge holds the pairwise evidence between two nodes. Src precedes Dst in node order.
type Edge struct {
	HandleSimilarity *float64 `json:"handle_similarity"`
	NameSimilarity   *float64 `json:"name_similarity"`
	AvatarMatch      *bool    `json:"avatar_match"`
	Src              string   `json:"src"`
	Dst              string   `json:"dst"`
	CrosslinkScore   float64  `json:"crosslink_score"`
	Crosslink        bool     `json:"crosslink"`
}

// Confusable reports whether the two handles look alike enough to be mistaken.
func (e Edge) Confusable() bool {
	return e.HandleSimilarity != nil && *e.HandleSimilarity >= ConfusableThreshold
}

type pairResult struct {
	Edge

	confusable     bool
	nameMismatch   bool
	avatarMismatch bool
}

func compare(a, b *Node) pairResult {
	e := Edge{
		Src:              a.ID,
		Dst:              b.ID,
		HandleSimilarity: similarity.Confusability(a.handleKey(), b.handleKey()).Ratio,
	}

	if na, nb := a.nameKey(), b.nameKey(); na != "" && nb != "" {
		e.NameSimilarity = similarity.Confusability(na, nb).Ratio
	}

	bothHashes := a.AvatarSHA256 != "" && b.AvatarSHA256 != ""
	if bothHashes {
		match := a.AvatarSHA256 == b.AvatarSHA256
		e.AvatarMatch = &match
	}

	e.CrosslinkScore = min(crosslinkScore(a, b)+crosslinkScore(b, a), 1.0)
	e.Crosslink = e.CrosslinkScore >= CrosslinkThreshold

	r := pairResult{Edge: e, confusable: e.Confusable()}
	r.nameMismatch = r.confusable && e.NameSimilarity != nil && *e.NameSimilarity < NameMismatchThreshold
	r.avatarMismatch = r.confusable && bothHashes && !*e.AvatarMatch
	return r
}

// crosslinkScore is the one-directional evidence that to's evidence points at from.
func crosslinkScore(from, to *Node) float64 {
	var score float64
	if d := from.ParsedDomain; d != "" {
		if slices.Contains(to.BioLinkDomains, d) {
			score += bioDomainWeight
		}
		if slices.Contains(to.ExternalLinkDomains, d) {
			score += externalDomainWeight
		}
		if slices.Contains(to.ReverseLinkDomains, d) {
			score += reverseDomainWeight
		}
	}
	if h := strings.ToLower(from.ParsedHandle); h != "" && slices.Contains(to.BioLinkHandles, h) {
		score += bioHandleWeight
	}
	return score
}
