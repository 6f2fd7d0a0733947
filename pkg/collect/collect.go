// Package collect gathers best-effort public evidence for claimed identities.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codeGROOVE-dev/sivaguard/pkg/htmlutil"
	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
	"github.com/codeGROOVE-dev/sivaguard/pkg/linkout"
)

// Defaults for a Collector.
const (
	DefaultConcurrency      = 4
	DefaultMaxExternalLinks = 50
)

const accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Per-field confidence reported alongside public evidence.
const (
	confOGTitle   = 0.55
	confPageTitle = 0.35
	confBio       = 0.55
	confAvatar    = 0.45
	confLinks     = 0.35
)

var (
	errEmptyBody = errors.New("empty body")
	errChallenge = errors.New("challenge page")
	errNotFound  = errors.New("profile not found")
)

// Fetcher retrieves a URL body. *httpcache.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL, accept string) (*httpcache.Response, error)
}

// Collector fetches public profile pages for claims.
type Collector struct {
	fetcher     Fetcher
	logger      *slog.Logger
	concurrency int
	maxLinks    int
}

// Option configures a Collector.
type Option func(*Collector)

// WithConcurrency bounds how many claims are fetched at once.
func WithConcurrency(n int) Option {
	return func(c *Collector) { c.concurrency = n }
}

// WithMaxExternalLinks caps the external links kept per profile.
func WithMaxExternalLinks(n int) Option {
	return func(c *Collector) { c.maxLinks = n }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// New returns a Collector that fetches pages through f.
func New(f Fetcher, opts ...Option) *Collector {
	c := &Collector{
		fetcher:     f,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
		maxLinks:    DefaultMaxExternalLinks,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	return c
}

// Collect builds the per-identity set for claims, keyed by claimed string in
// input order. A later claim with the same claimed string replaces the
// earlier one. Fetch failures are recorded on the record, not returned.
func (c *Collector) Collect(ctx context.Context, claims []identity.Claim) (*identity.Set, error) {
	for i, cl := range claims {
		if err := cl.Validate(); err != nil {
			return nil, fmt.Errorf("claim %d: %w", i, err)
		}
	}

	records := make([]identity.Record, len(claims))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, cl := range claims {
		g.Go(func() error {
			records[i] = c.collectOne(ctx, cl)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := identity.NewSet()
	for i, cl := range claims {
		set.Put(strings.TrimSpace(cl.Claimed), records[i])
	}
	return set, nil
}

func (c *Collector) collectOne(ctx context.Context, cl identity.Claim) identity.Record {
	rec := identity.NewRecord(cl)
	target := ProfileURL(cl)
	if target == "" {
		c.logger.DebugContext(ctx, "no public page for claim", "platform", cl.Platform, "claimed", cl.Claimed)
		return rec
	}

	pub, err := c.fetchEvidence(ctx, target)
	if err != nil {
		c.logger.DebugContext(ctx, "public evidence unavailable", "url", target, "error", err)
		rec.AddError("public_fetch_failed:%s", errorKind(err))
		return rec
	}
	rec.Public = pub
	rec.HasPublic = true
	return rec
}

func (c *Collector) fetchEvidence(ctx context.Context, target string) (*identity.PublicEvidence, error) {
	body, err := c.fetch(ctx, target)
	if err != nil {
		return nil, err
	}

	// Follow a single meta-refresh or script redirect.
	if next := htmlutil.RedirectTarget(body, target); next != "" {
		c.logger.DebugContext(ctx, "following page redirect", "from", target, "to", next)
		if nb, err := c.fetch(ctx, next); err == nil {
			body, target = nb, next
		}
	}

	page, err := htmlutil.Parse(body, target)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	if htmlutil.IsNotFound(page.Title) {
		return nil, errNotFound
	}
	return c.evidence(page, target), nil
}

func (c *Collector) fetch(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.fetcher.Get(ctx, target, accept)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, errEmptyBody
	}
	if htmlutil.IsChallengePage(resp.Body) {
		return nil, errChallenge
	}
	return resp.Body, nil
}

func (c *Collector) evidence(page *htmlutil.Page, base string) *identity.PublicEvidence {
	pub := &identity.PublicEvidence{
		Confidence:  make(map[string]float64),
		DisplayName: page.DisplayName(),
		Bio:         page.Description,
		AvatarURL:   page.Image,
	}
	switch {
	case page.Meta["og:title"] != "":
		pub.Confidence["display_name"] = confOGTitle
	case pub.DisplayName != "":
		pub.Confidence["display_name"] = confPageTitle
	}
	if pub.Bio != "" {
		pub.Confidence["bio"] = confBio
	}
	if pub.AvatarURL != "" {
		pub.Confidence["avatar_url"] = confAvatar
	}

	pub.ExternalLinks = externalLinks(page, base, c.maxLinks)
	if len(pub.ExternalLinks) > 0 {
		pub.Confidence["external_links"] = confLinks
	}
	return pub
}

// externalLinks returns rel="me" links followed by anchors that leave the
// profile's own host, without fragments, de-duplicated and capped.
func externalLinks(page *htmlutil.Page, base string, limit int) []string {
	self := linkout.Host(base)
	seen := make(map[string]bool)
	var out []string
	add := func(link string, requireExternal bool) {
		link, _, _ = strings.Cut(link, "#")
		host := linkout.Host(link)
		if host == "" || (requireExternal && host == self) || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, link)
	}
	for _, l := range page.RelMe {
		add(l, false)
	}
	for _, l := range page.Links {
		add(l, true)
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errEmptyBody):
		return "http_200"
	case errors.Is(err, errChallenge):
		return "challenge"
	case errors.Is(err, errNotFound):
		return "not_found"
	}
	return httpcache.ErrorKind(err)
}
