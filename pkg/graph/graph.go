// Package graph builds the pairwise evidence graph over a set of claimed identities.
package graph

import (
	"context"
	"log/slog"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

// Fixed decision thresholds.
const (
	ConfusableThreshold   = 0.92
	CrosslinkThreshold    = 0.5
	NameMismatchThreshold = 0.60
)

// Crosslink weights, applied once per direction.
const (
	bioDomainWeight      = 0.5
	externalDomainWeight = 0.35
	bioHandleWeight      = 0.25
	reverseDomainWeight  = 0.5
)

// AvatarHash is the outcome of hashing one avatar image. SHA256 is empty when Err is set.
type AvatarHash struct {
	SHA256 string
	Err    string
}

// AvatarHasher fetches and hashes avatar images. Implementations must not
// return Go errors; failures are reported in AvatarHash.Err.
type AvatarHasher interface {
	HashAvatar(ctx context.Context, avatarURL string) AvatarHash
}

// ReverseLinks is the outcome of scanning a page for outbound links.
type ReverseLinks struct {
	FetchCached     *bool
	Err             string
	OutboundDomains []string
}

// ReverseLinker fetches a page and lists the domains it links to.
type ReverseLinker interface {
	OutboundLinks(ctx context.Context, pageURL string) ReverseLinks
}

// Graph is the evidence graph for one evaluation.
type Graph struct {
	Nodes   []Node  `json:"nodes"`
	Edges   []Edge  `json:"edges"`
	Metrics Metrics `json:"metrics"`
}

// Metrics summarizes a Graph.
type Metrics struct {
	NumIdentities       int     `json:"num_identities"`
	PublicCoverage      float64 `json:"public_coverage"`
	ConfusablePairs     int     `json:"confusable_pairs"`
	NameMismatchPairs   int     `json:"name_mismatch_pairs"`
	AvatarMismatchPairs int     `json:"avatar_mismatch_pairs"`
	CrosslinkHits       int     `json:"crosslink_hits"`
}

// Option configures Build.
type Option func(*config)

type config struct {
	avatars AvatarHasher
	reverse ReverseLinker
	logger  *slog.Logger
}

// WithAvatarHasher sets the collaborator used to hash avatars.
func WithAvatarHasher(h AvatarHasher) Option {
	return func(c *config) { c.avatars = h }
}

// WithReverseLinker sets the collaborator used to fetch bio website links.
func WithReverseLinker(r ReverseLinker) Option {
	return func(c *config) { c.reverse = r }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Build computes nodes, pairwise edges, and metrics for set. Nodes and
// edges follow the set's insertion order. Collaborator failures degrade
// the affected node and never abort the build.
func Build(ctx context.Context, set *identity.Set, opts ...Option) *Graph {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	g := &Graph{Nodes: []Node{}, Edges: []Edge{}}
	for key, rec := range set.All() {
		g.Nodes = append(g.Nodes, newNode(ctx, cfg, key, rec))
	}

	public := 0
	for i := range g.Nodes {
		if g.Nodes[i].HasPublic {
			public++
		}
		for j := i + 1; j < len(g.Nodes); j++ {
			e := compare(&g.Nodes[i], &g.Nodes[j])
			g.Edges = append(g.Edges, e.Edge)
			g.Metrics.add(e)
		}
	}

	g.Metrics.NumIdentities = len(g.Nodes)
	if len(g.Nodes) > 0 {
		g.Metrics.PublicCoverage = float64(public) / float64(len(g.Nodes))
	}

	cfg.logger.DebugContext(ctx, "evidence graph built",
		"identities", g.Metrics.NumIdentities,
		"edges", len(g.Edges),
		"confusable_pairs", g.Metrics.ConfusablePairs,
		"crosslink_hits", g.Metrics.CrosslinkHits)
	return g
}

func (m *Metrics) add(e pairResult) {
	if e.Crosslink {
		m.CrosslinkHits++
	}
	if e.confusable {
		m.ConfusablePairs++
	}
	if e.nameMismatch {
		m.NameMismatchPairs++
	}
	if e.avatarMismatch {
		m.AvatarMismatchPairs++
	}
}
