// Package reverselink fetches a bio website and lists the domains it links to.
package reverselink

import (
	"context"
	"log/slog"
	"strings"

	"github.com/codeGROOVE-dev/sivaguard/pkg/graph"
	"github.com/codeGROOVE-dev/sivaguard/pkg/htmlutil"
	"github.com/codeGROOVE-dev/sivaguard/pkg/httpcache"
	"github.com/codeGROOVE-dev/sivaguard/pkg/linkout"
)

// DefaultMaxLinks caps the outbound links considered per page.
const DefaultMaxLinks = 80

const accept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Fetcher retrieves a URL body. *httpcache.Client satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL, accept string) (*httpcache.Response, error)
}

// Linker scans pages for outbound links.
type Linker struct {
	fetcher  Fetcher
	logger   *slog.Logger
	maxLinks int
}

// Option configures a Linker.
type Option func(*Linker)

// WithMaxLinks overrides DefaultMaxLinks.
func WithMaxLinks(n int) Option {
	return func(l *Linker) { l.maxLinks = n }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) { l.logger = logger }
}

// New returns a Linker that fetches pages through f.
func New(f Fetcher, opts ...Option) *Linker {
	l := &Linker{fetcher: f, logger: slog.Default(), maxLinks: DefaultMaxLinks}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// OutboundLinks fetches pageURL and returns the unique domains of its first
// maxLinks outbound URLs. An empty body is reported as http_200.
func (l *Linker) OutboundLinks(ctx context.Context, pageURL string) graph.ReverseLinks {
	resp, err := l.fetcher.Get(ctx, pageURL, accept)
	if err != nil {
		kind := httpcache.ErrorKind(err)
		l.logger.DebugContext(ctx, "reverse link fetch failed", "url", pageURL, "error", err)
		if strings.HasPrefix(kind, "http_") {
			return graph.ReverseLinks{Err: kind}
		}
		return graph.ReverseLinks{Err: "fetch_failed:" + kind}
	}

	cached := resp.Cached
	if len(resp.Body) == 0 {
		return graph.ReverseLinks{FetchCached: &cached, Err: "http_200"}
	}

	links := htmlutil.OutboundLinks(resp.Body, pageURL, l.maxLinks)
	return graph.ReverseLinks{
		FetchCached:     &cached,
		OutboundDomains: linkout.Domains(links),
	}
}
