package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// unrendered elements never contribute text.
var unrendered = map[string]bool{
	"head": true, "title": true, "meta": true, "link": true, "base": true,
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "canvas": true, "iframe": true, "object": true, "embed": true,
	"select": true, "option": true, "datalist": true, "textarea": true,
}

// paragraphBlocks are separated by a blank line in rendered text.
var paragraphBlocks = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "figure": true, "table": true, "hr": true,
}

// lineBlocks start and end on their own line.
var lineBlocks = map[string]bool{
	"address": true, "article": true, "aside": true, "body": true, "dd": true,
	"details": true, "dialog": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "footer": true, "form": true,
	"header": true, "legend": true, "li": true, "main": true, "nav": true,
	"ol": true, "section": true, "summary": true, "tr": true, "ul": true,
	"caption": true, "html": true,
}

// renderedText approximates innerText: hidden and unrendered subtrees are
// dropped, whitespace collapses outside <pre>, blocks become line breaks and
// paragraphs become blank lines.
func renderedText(d *HTMLDocument, n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.Join(strings.Fields(n.Data), " ")
	}
	if d.isHidden(n) {
		return ""
	}
	tw := &textWriter{}
	tw.walk(d, n, false)
	return tw.b.String()
}

type textWriter struct {
	b         strings.Builder
	breaks    int
	needSpace bool
}

func (t *textWriter) lineBreak(n int) {
	if n > t.breaks {
		t.breaks = n
	}
}

func (t *textWriter) word(w string) {
	if t.b.Len() > 0 {
		switch {
		case t.breaks > 0:
			t.b.WriteString(strings.Repeat("\n", t.breaks))
		case t.needSpace:
			t.b.WriteByte(' ')
		}
	}
	t.breaks = 0
	t.needSpace = false
	t.b.WriteString(w)
}

func (t *textWriter) text(s string, pre bool) {
	if pre {
		for i, line := range strings.Split(s, "\n") {
			if i > 0 {
				t.lineBreak(1)
			}
			if strings.TrimSpace(line) != "" {
				t.word(strings.TrimRight(line, " \t\r"))
			}
		}
		return
	}
	if s == "" {
		return
	}
	if isSpace(s[0]) {
		t.needSpace = true
	}
	for _, f := range strings.Fields(s) {
		t.word(f)
		t.needSpace = true
	}
	if !isSpace(s[len(s)-1]) {
		t.needSpace = false
	}
}

func (t *textWriter) walk(d *HTMLDocument, n *html.Node, pre bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			t.text(c.Data, pre)
		case html.ElementNode:
			tag := strings.ToLower(c.Data)
			if unrendered[tag] || d.isHidden(c) {
				continue
			}
			switch {
			case tag == "br":
				t.lineBreak(1)
				continue
			case tag == "td" || tag == "th":
				t.needSpace = true
			case paragraphBlocks[tag]:
				t.lineBreak(2)
			case lineBlocks[tag]:
				t.lineBreak(1)
			}
			t.walk(d, c, pre || tag == "pre")
			switch {
			case paragraphBlocks[tag]:
				t.lineBreak(2)
			case lineBlocks[tag]:
				t.lineBreak(1)
			case tag == "td" || tag == "th":
				t.needSpace = true
			}
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
