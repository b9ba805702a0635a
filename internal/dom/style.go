package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// isHidden reports effective hiding for n: the renderer annotation, the
// hidden attribute, hidden inputs, or an inline display/visibility rule on n
// or any ancestor. aria-hidden is an accessibility hint, not a computed style,
// and is left to callers.
func (d *HTMLDocument) isHidden(n *html.Node) bool {
	if n == nil || n.Type == html.DocumentNode {
		return false
	}
	if v, ok := d.hidden[n]; ok {
		return v
	}
	h := false
	if n.Type == html.ElementNode {
		h = selfHidden(n)
	}
	if !h {
		h = d.isHidden(n.Parent)
	}
	d.hidden[n] = h
	return h
}

func selfHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case AttrComputedHidden:
			v := strings.TrimSpace(a.Val)
			if v == "" || v == "1" || strings.EqualFold(v, "true") {
				return true
			}
		case "type":
			if strings.EqualFold(n.Data, "input") && strings.EqualFold(strings.TrimSpace(a.Val), "hidden") {
				return true
			}
		case "style":
			if inlineStyleHides(a.Val) {
				return true
			}
		}
	}
	return false
}

// inlineStyleHides parses a style attribute and reports display:none or
// visibility:hidden|collapse. Later declarations win.
func inlineStyleHides(style string) bool {
	var noDisplay, invisible bool
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		switch prop {
		case "display":
			noDisplay = val == "none"
		case "visibility":
			invisible = val == "hidden" || val == "collapse"
		}
	}
	return noDisplay || invisible
}
