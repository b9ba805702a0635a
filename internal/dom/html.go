package dom

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Attributes written by the browser renderer before the DOM is serialized.
// They carry computed state that static HTML cannot express.
const (
	AttrComputedHidden = "data-pagetext-hidden"
	AttrActiveSource   = "data-pagetext-src"
)

// HTMLDocument adapts a goquery document to the Document interface. Node
// wrappers are interned, so two lookups of the same element compare equal.
type HTMLDocument struct {
	gq   *goquery.Document
	base *url.URL

	nodes    map[*html.Node]*htmlNode
	matchers map[string]goquery.Matcher
	hidden   map[*html.Node]bool
	text     map[*html.Node]string
}

// Parse reads HTML from r. baseURL, when non-empty, is used to resolve
// relative link and media URLs; a <base href> in the document refines it.
func Parse(r io.Reader, baseURL string) (*HTMLDocument, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	d := &HTMLDocument{
		gq:       gq,
		nodes:    make(map[*html.Node]*htmlNode),
		matchers: make(map[string]goquery.Matcher),
		hidden:   make(map[*html.Node]bool),
		text:     make(map[*html.Node]string),
	}
	if baseURL != "" {
		if u, err := url.Parse(baseURL); err == nil {
			d.base = u
		}
	}
	if href, ok := gq.Find("base[href]").First().Attr("href"); ok {
		if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if d.base != nil {
				u = d.base.ResolveReference(u)
			}
			d.base = u
		}
	}
	gq.Url = d.base
	return d, nil
}

// ParseString parses HTML from a string.
func ParseString(s, baseURL string) (*HTMLDocument, error) {
	return Parse(strings.NewReader(s), baseURL)
}

// Root returns the <html> element.
func (d *HTMLDocument) Root() Node {
	return d.first("html")
}

// Body returns the <body> element.
func (d *HTMLDocument) Body() Node {
	return d.first("body")
}

// Query returns all elements in the document matching selector.
func (d *HTMLDocument) Query(selector string) []Node {
	m := d.matcher(selector)
	if m == nil {
		return nil
	}
	return d.wrapAll(d.gq.FindMatcher(m).Nodes)
}

// BaseURL returns the URL relative references are resolved against.
func (d *HTMLDocument) BaseURL() string {
	if d.base == nil {
		return ""
	}
	return d.base.String()
}

func (d *HTMLDocument) first(tag string) Node {
	nodes := d.gq.Find(tag).First().Nodes
	if len(nodes) == 0 {
		return nil
	}
	return d.wrap(nodes[0])
}

// matcher compiles and caches a selector group. Invalid selectors cache nil.
func (d *HTMLDocument) matcher(selector string) goquery.Matcher {
	if m, ok := d.matchers[selector]; ok {
		return m
	}
	var m goquery.Matcher
	if sel, err := cascadia.Compile(selector); err == nil {
		m = sel
	}
	d.matchers[selector] = m
	return m
}

func (d *HTMLDocument) wrap(n *html.Node) *htmlNode {
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &htmlNode{doc: d, n: n}
	d.nodes[n] = w
	return w
}

func (d *HTMLDocument) wrapAll(ns []*html.Node) []Node {
	out := make([]Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, d.wrap(n))
	}
	return out
}

func (d *HTMLDocument) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if d.base == nil || u.IsAbs() {
		return u.String()
	}
	return d.base.ResolveReference(u).String()
}

type htmlNode struct {
	doc *HTMLDocument
	n   *html.Node
}

func (w *htmlNode) IsElement() bool { return w.n.Type == html.ElementNode }

func (w *htmlNode) Tag() string {
	if w.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(w.n.Data)
}

func (w *htmlNode) Attr(name string) (string, bool) {
	for _, a := range w.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (w *htmlNode) Parent() Node {
	p := w.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return w.doc.wrap(p)
}

func (w *htmlNode) ChildNodes() []Node {
	var out []Node
	for c := w.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode || c.Type == html.TextNode {
			out = append(out, w.doc.wrap(c))
		}
	}
	return out
}

func (w *htmlNode) Children() []Node {
	var out []Node
	for c := w.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, w.doc.wrap(c))
		}
	}
	return out
}

func (w *htmlNode) RawText() string {
	if w.n.Type == html.TextNode {
		return w.n.Data
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(w.n)
	return b.String()
}

func (w *htmlNode) Text() string {
	if t, ok := w.doc.text[w.n]; ok {
		return t
	}
	t := renderedText(w.doc, w.n)
	w.doc.text[w.n] = t
	return t
}

func (w *htmlNode) Hidden() bool {
	return w.doc.isHidden(w.n)
}

func (w *htmlNode) Source() string {
	if w.n.Type != html.ElementNode {
		return ""
	}
	if v, ok := w.Attr(AttrActiveSource); ok && strings.TrimSpace(v) != "" {
		return w.doc.resolve(v)
	}
	switch w.Tag() {
	case "img":
		for _, key := range []string{"src", "data-src"} {
			if v, ok := w.Attr(key); ok && strings.TrimSpace(v) != "" {
				return w.doc.resolve(v)
			}
		}
		if v, ok := w.Attr("srcset"); ok {
			return w.doc.resolve(firstSrcsetURL(v))
		}
	case "video", "audio":
		if v, ok := w.Attr("src"); ok && strings.TrimSpace(v) != "" {
			return w.doc.resolve(v)
		}
		for _, c := range w.Children() {
			if c.Tag() != "source" {
				continue
			}
			if v := AttrValue(c, "src"); v != "" {
				return w.doc.resolve(v)
			}
		}
		if v, ok := w.Attr("poster"); ok {
			return w.doc.resolve(v)
		}
	}
	return ""
}

func (w *htmlNode) Href() string {
	v, ok := w.Attr("href")
	if !ok {
		return ""
	}
	return w.doc.resolve(v)
}

func (w *htmlNode) Matches(selector string) bool {
	if w.n.Type != html.ElementNode {
		return false
	}
	m := w.doc.matcher(selector)
	if m == nil {
		return false
	}
	return m.Match(w.n)
}

func (w *htmlNode) Query(selector string) []Node {
	m := w.doc.matcher(selector)
	if m == nil || w.n.Type != html.ElementNode {
		return nil
	}
	return w.doc.wrapAll(cascadia.QueryAll(w.n, m))
}

func firstSrcsetURL(srcset string) string {
	first := strings.TrimSpace(strings.Split(srcset, ",")[0])
	if i := strings.IndexAny(first, " \t"); i >= 0 {
		first = first[:i]
	}
	return first
}
