package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Page is the evidence-relevant content of one HTML document. Links holds
// every anchor resolved against the base; AbsoluteLinks only those whose
// href was written as an absolute http(s) URL.
type Page struct {
	Meta          map[string]string
	Title         string
	RelMe         []string
	Links         []string
	AbsoluteLinks []string
	Description   string
	Image         string
	Refresh       string
}

// DisplayName prefers og:title over the document title.
func (p *Page) DisplayName() string {
	if s := p.Meta["og:title"]; s != "" {
		return s
	}
	return p.Title
}

var rawURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>]+`)

// Parse extracts metadata and absolute outbound links from an HTML
// document. Relative links are resolved against base.
func Parse(body []byte, base string) (*Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = &url.URL{}
	}

	p := &Page{Meta: make(map[string]string)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.element(n, baseURL)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	p.Description = firstNonEmpty(p.Meta["og:description"], p.Meta["description"], p.Meta["twitter:description"])
	p.Image = firstNonEmpty(p.Meta["og:image"], p.Meta["twitter:image"])
	if p.Image != "" {
		p.Image = resolve(baseURL, p.Image)
	}
	p.RelMe = dedupe(p.RelMe)
	return p, nil
}

func (p *Page) element(n *html.Node, base *url.URL) {
	switch n.Data {
	case "title":
		if p.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			p.Title = collapse(n.FirstChild.Data)
		}
	case "meta":
		key := strings.ToLower(firstNonEmpty(attr(n, "property"), attr(n, "name")))
		content := collapse(attr(n, "content"))
		if key != "" && content != "" {
			if _, ok := p.Meta[key]; !ok {
				p.Meta[key] = content
			}
		}
		if strings.EqualFold(attr(n, "http-equiv"), "refresh") {
			p.Refresh = refreshTarget(attr(n, "content"))
		}
	case "a", "link":
		href := strings.TrimSpace(attr(n, "href"))
		if href == "" {
			return
		}
		abs := resolve(base, href)
		if !isHTTP(abs) {
			return
		}
		if hasRelMe(attr(n, "rel")) {
			p.RelMe = append(p.RelMe, abs)
		}
		if n.Data == "a" {
			p.Links = append(p.Links, abs)
			if isHTTP(href) {
				p.AbsoluteLinks = append(p.AbsoluteLinks, abs)
			}
		}
	}
}

// OutboundLinks returns up to limit unique URLs from the page: anchors
// written as absolute http(s) URLs first, then raw URLs found anywhere in
// body. Relative anchors are not counted.
func OutboundLinks(body []byte, base string, limit int) []string {
	var links []string
	if p, err := Parse(body, base); err == nil {
		links = append(links, p.AbsoluteLinks...)
	}
	links = append(links, rawURLPattern.FindAllString(string(body), -1)...)

	out := dedupe(links)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func hasRelMe(rel string) bool {
	for _, tok := range strings.Fields(strings.ToLower(rel)) {
		if tok == "me" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func resolve(base *url.URL, ref string) string {
	if strings.HasPrefix(ref, "//") {
		scheme := base.Scheme
		if scheme == "" {
			scheme = "https"
		}
		return scheme + ":" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func isHTTP(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func dedupe(links []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range links {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
