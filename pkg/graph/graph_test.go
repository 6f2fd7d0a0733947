package graph

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

type fakeHasher map[string]string

func (f fakeHasher) HashAvatar(_ context.Context, avatarURL string) AvatarHash {
	if h, ok := f[avatarURL]; ok {
		return AvatarHash{SHA256: h}
	}
	return AvatarHash{Err: "avatar_fetch_failed:http_404"}
}

type fakeLinker struct {
	domains []string
	err     string
	calls   []string
}

func (f *fakeLinker) OutboundLinks(_ context.Context, pageURL string) ReverseLinks {
	f.calls = append(f.calls, pageURL)
	cached := false
	if f.err != "" {
		return ReverseLinks{Err: f.err, FetchCached: &cached}
	}
	return ReverseLinks{OutboundDomains: f.domains, FetchCached: &cached}
}

func handleSet(claims ...string) *identity.Set {
	s := identity.NewSet()
	for _, c := range claims {
		s.Put(c, identity.Record{Platform: identity.X, Claimed: c})
	}
	return s
}

func TestBuildConfusableHandles(t *testing.T) {
	g := Build(context.Background(), handleSet("john_doe", "jhon_doe"))

	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges; want 2, 1", len(g.Nodes), len(g.Edges))
	}
	e := g.Edges[0]
	if e.Src != "john_doe" || e.Dst != "jhon_doe" {
		t.Errorf("edge = %s-%s, want john_doe-jhon_doe", e.Src, e.Dst)
	}
	if e.HandleSimilarity == nil || *e.HandleSimilarity < ConfusableThreshold {
		t.Errorf("handle_similarity = %v, want >= %v", e.HandleSimilarity, ConfusableThreshold)
	}
	if e.NameSimilarity != nil || e.AvatarMatch != nil {
		t.Errorf("name/avatar comparisons should be null without evidence, got %+v", e)
	}
	want := Metrics{NumIdentities: 2, PublicCoverage: 0, ConfusablePairs: 1}
	if diff := cmp.Diff(want, g.Metrics); diff != "" {
		t.Errorf("Metrics mismatch (-want +got):\n%s", diff)
	}
	for _, n := range g.Nodes {
		if n.AvatarHashError != ErrAvatarURLMissing {
			t.Errorf("node %s avatar_hash_error = %q, want %q", n.ID, n.AvatarHashError, ErrAvatarURLMissing)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	g := Build(context.Background(), identity.NewSet())
	if diff := cmp.Diff(Metrics{}, g.Metrics); diff != "" {
		t.Errorf("Metrics mismatch (-want +got):\n%s", diff)
	}
	if g.Nodes == nil || g.Edges == nil {
		t.Error("empty graph should have empty, non-nil node and edge lists")
	}

	var nilSet *identity.Set
	if g := Build(context.Background(), nilSet); g.Metrics.NumIdentities != 0 {
		t.Errorf("nil set: NumIdentities = %d", g.Metrics.NumIdentities)
	}
}

func TestBuildCrosslink(t *testing.T) {
	s := identity.NewSet()
	s.Put("gh", identity.Record{
		Platform:  identity.GitHub,
		Claimed:   "https://github.com/jane",
		HasPublic: true,
		Public:    &identity.PublicEvidence{DisplayName: "Jane Doe", Bio: "also @jane_ig"},
	})
	s.Put("ig", identity.Record{
		Platform:  identity.Instagram,
		Claimed:   "https://instagram.com/jane_ig",
		HasPublic: true,
		Public:    &identity.PublicEvidence{DisplayName: "Jane Doe • Instagram", Bio: "code at https://github.com/jane"},
	})

	linker := &fakeLinker{domains: []string{"github.com", "twitter.com"}}
	g := Build(context.Background(), s, WithReverseLinker(linker))

	if diff := cmp.Diff([]string{"https://github.com/jane"}, linker.calls); diff != "" {
		t.Errorf("reverse linker calls mismatch (-want +got):\n%s", diff)
	}
	e := g.Edges[0]
	if e.CrosslinkScore != 1.0 || !e.Crosslink {
		t.Errorf("crosslink = %v (%v), want capped 1.0", e.CrosslinkScore, e.Crosslink)
	}
	if e.NameSimilarity == nil || *e.NameSimilarity != 1.0 {
		t.Errorf("name_similarity = %v, want 1.0 after cleaning", e.NameSimilarity)
	}
	if g.Metrics.CrosslinkHits != 1 || g.Metrics.PublicCoverage != 1.0 {
		t.Errorf("Metrics = %+v, want one crosslink and full coverage", g.Metrics)
	}

	ig := g.Nodes[1]
	if ig.DisplayNameClean != "Jane Doe" {
		t.Errorf("DisplayNameClean = %q, want Jane Doe", ig.DisplayNameClean)
	}
	if diff := cmp.Diff([]string{"github.com", "twitter.com"}, ig.ReverseLinkDomains); diff != "" {
		t.Errorf("ReverseLinkDomains mismatch (-want +got):\n%s", diff)
	}
	if ig.ReverseFetchCached == nil || *ig.ReverseFetchCached {
		t.Errorf("ReverseFetchCached = %v, want false", ig.ReverseFetchCached)
	}
	if g.Nodes[0].ReverseLinkURL != "" {
		t.Errorf("node without bio URL should not have a reverse link URL, got %q", g.Nodes[0].ReverseLinkURL)
	}
}

func TestBuildExternalLinks(t *testing.T) {
	s := identity.NewSet()
	s.Put("site", identity.Record{Platform: identity.Other, Claimed: "https://jane.dev/about"})
	s.Put("gh", identity.Record{
		Platform:  identity.GitHub,
		Claimed:   "https://github.com/jane",
		HasPublic: true,
		Public:    &identity.PublicEvidence{ExternalLinks: []string{"https://JANE.dev"}},
	})
	g := Build(context.Background(), s)

	e := g.Edges[0]
	if diff := cmp.Diff(0.35, e.CrosslinkScore, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("crosslink_score mismatch (-want +got):\n%s", diff)
	}
	if e.Crosslink {
		t.Error("external link alone should stay below the crosslink threshold")
	}
	if diff := cmp.Diff([]string{"jane.dev"}, g.Nodes[1].ExternalLinkDomains); diff != "" {
		t.Errorf("ExternalLinkDomains mismatch (-want +got):\n%s", diff)
	}
	if g.Metrics.PublicCoverage != 0.5 {
		t.Errorf("PublicCoverage = %v, want 0.5", g.Metrics.PublicCoverage)
	}
}

func TestBuildMismatchUnderConfusable(t *testing.T) {
	s := identity.NewSet()
	s.Put("a", identity.Record{
		Platform: identity.X, Claimed: "john_doe",
		UI: &identity.UIHint{DisplayName: "John Doe", AvatarURL: "https://img/a.png"},
	})
	s.Put("b", identity.Record{
		Platform: identity.X, Claimed: "jhon_doe",
		UI: &identity.UIHint{DisplayName: "Zed Quux", AvatarURL: "https://img/b.png"},
	})
	s.Put("c", identity.Record{
		Platform: identity.X, Claimed: "someone_else",
		UI: &identity.UIHint{AvatarURL: "https://img/missing.png"},
	})

	hasher := fakeHasher{"https://img/a.png": "aaaa", "https://img/b.png": "bbbb"}
	g := Build(context.Background(), s, WithAvatarHasher(hasher))

	want := Metrics{NumIdentities: 3, ConfusablePairs: 1, NameMismatchPairs: 1, AvatarMismatchPairs: 1}
	if diff := cmp.Diff(want, g.Metrics); diff != "" {
		t.Errorf("Metrics mismatch (-want +got):\n%s", diff)
	}
	if len(g.Edges) != 3 {
		t.Fatalf("len(Edges) = %d, want 3", len(g.Edges))
	}
	if m := g.Edges[0].AvatarMatch; m == nil || *m {
		t.Errorf("a-b avatar_match = %v, want false", m)
	}
	if m := g.Edges[1].AvatarMatch; m != nil {
		t.Errorf("a-c avatar_match = %v, want null when a hash is missing", *m)
	}
	if got := g.Nodes[2].AvatarHashError; got != "avatar_fetch_failed:http_404" {
		t.Errorf("c avatar_hash_error = %q", got)
	}
}

func TestBuildReverseLinkFailure(t *testing.T) {
	s := identity.NewSet()
	s.Put("a", identity.Record{
		Platform:  identity.GitHub,
		Claimed:   "https://github.com/jane",
		HasPublic: true,
		Public:    &identity.PublicEvidence{Bio: "https://jane.dev"},
	})

	g := Build(context.Background(), s, WithReverseLinker(&fakeLinker{err: "http_503"}))
	n := g.Nodes[0]
	if n.ReverseLinkDomains != nil || n.ReverseLinkError != "http_503" {
		t.Errorf("reverse link = %v / %q, want null with http_503", n.ReverseLinkDomains, n.ReverseLinkError)
	}

	g = Build(context.Background(), s)
	if got := g.Nodes[0].ReverseLinkError; got != errCollaboratorMissing {
		t.Errorf("without linker: reverse_link_error = %q, want %q", got, errCollaboratorMissing)
	}
}

func TestBuildClaimedFallsBackToKey(t *testing.T) {
	s := identity.NewSet()
	s.Put("@jane", identity.Record{Platform: identity.Instagram})
	g := Build(context.Background(), s)
	if n := g.Nodes[0]; n.Claimed != "@jane" || n.ParsedHandle != "jane" {
		t.Errorf("node = %+v, want claimed from key", n)
	}
}

func TestBuildInvariants(t *testing.T) {
	s := handleSet("alice", "al1ce", "bob", "b0b", "carol", "@carol", "x")
	g := Build(context.Background(), s)

	n := len(g.Nodes)
	if g.Metrics.NumIdentities != s.Len() || n != s.Len() {
		t.Fatalf("NumIdentities = %d, nodes = %d, want %d", g.Metrics.NumIdentities, n, s.Len())
	}
	if len(g.Edges) != n*(n-1)/2 {
		t.Errorf("len(Edges) = %d, want %d", len(g.Edges), n*(n-1)/2)
	}
	seen := map[[2]string]bool{}
	for _, e := range g.Edges {
		if e.Src == e.Dst {
			t.Errorf("self loop on %s", e.Src)
		}
		k := [2]string{min(e.Src, e.Dst), max(e.Src, e.Dst)}
		if seen[k] {
			t.Errorf("duplicate edge %v", k)
		}
		seen[k] = true
		if e.Crosslink && e.CrosslinkScore < CrosslinkThreshold {
			t.Errorf("crosslink with score %v", e.CrosslinkScore)
		}
		if e.CrosslinkScore < 0 || e.CrosslinkScore > 1 {
			t.Errorf("crosslink_score out of range: %v", e.CrosslinkScore)
		}
		if e.HandleSimilarity != nil && (*e.HandleSimilarity < 0 || *e.HandleSimilarity > 1) {
			t.Errorf("handle_similarity out of range: %v", *e.HandleSimilarity)
		}
	}
	if g.Metrics.ConfusablePairs < 2 {
		t.Errorf("ConfusablePairs = %d, want at least alice/al1ce and bob/b0b", g.Metrics.ConfusablePairs)
	}
}
