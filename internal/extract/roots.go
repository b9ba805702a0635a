package extract

import (
	"strings"

	"github.com/hyperifyio/pagetext/internal/dom"
)

const (
	articleMinText       = 400
	articleMinParagraphs = 3
	paragraphWeight      = 200
	linkPenalty          = 20
)

var (
	articleSelector = "article, [role=article]"
	mainSelector    = "main, [role=main]"
	shellSelector   = "nav, aside, header, [role=navigation], [role=banner], [role=complementary]"

	// header and footer are page landmarks only outside sectioning content.
	sectioningSelector = "article, aside, main, nav, section, [role=main], [role=article]"
)

// selectRoots picks the main content subtrees. article reports whether a
// scored article won, which widens the line budget.
func selectRoots(doc dom.Document, selector string) (roots []dom.Node, article bool) {
	if selector != "" {
		if matched := outermost(doc.Query(selector)); len(matched) > 0 {
			return matched, false
		}
	}
	if best := bestArticle(doc); best != nil {
		return []dom.Node{best}, true
	}
	var main dom.Node
	for _, m := range doc.Query(mainSelector) {
		if !isHiddenNode(m) {
			main = m
			break
		}
	}
	body := doc.Body()
	switch {
	case main == nil && body == nil:
		if root := doc.Root(); root != nil {
			return []dom.Node{root}, false
		}
		return nil, false
	case main == nil:
		return []dom.Node{body}, false
	case body == nil:
		return []dom.Node{main}, false
	}
	if runeLen(main.Text()) >= runeLen(body.Text()) {
		return []dom.Node{main}, false
	}
	return []dom.Node{body}, false
}

// outermost drops nodes nested inside another node of the set.
func outermost(nodes []dom.Node) []dom.Node {
	set := make(map[dom.Node]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	var out []dom.Node
	for _, n := range nodes {
		nested := false
		for p := n.Parent(); p != nil; p = p.Parent() {
			if set[p] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}

func bestArticle(doc dom.Document) dom.Node {
	var best dom.Node
	bestScore := 0
	for _, a := range doc.Query(articleSelector) {
		if isHiddenNode(a) || dom.Closest(a, "[aria-hidden=true]") != nil {
			continue
		}
		paragraphs := a.Query("p")
		textLen := 0
		for _, p := range paragraphs {
			textLen += runeLen(collapseSpace(p.Text()))
		}
		if textLen < articleMinText && len(paragraphs) < articleMinParagraphs {
			continue
		}
		score := textLen + len(paragraphs)*paragraphWeight - len(a.Query("a[href]"))*linkPenalty
		if best == nil || score > bestScore {
			best, bestScore = a, score
		}
	}
	return best
}

// selectShellRoots returns the outermost navigation, banner and
// complementary landmarks that lie outside the main roots. A body root
// does not claim its landmarks, since the main walk skips them anyway.
func selectShellRoots(doc dom.Document, main []dom.Node) []dom.Node {
	var candidates []dom.Node
	for _, n := range doc.Query(shellSelector) {
		if n.Tag() == "header" && !isPageLandmark(n) {
			continue
		}
		if hiddenWithin(n, nil) {
			continue
		}
		claimed := false
		for _, r := range main {
			if r.Tag() != "body" && dom.Contains(r, n) {
				claimed = true
				break
			}
		}
		if !claimed {
			candidates = append(candidates, n)
		}
	}
	return outermost(candidates)
}

// isPageLandmark reports a header or footer that belongs to the page rather
// than to a section.
func isPageLandmark(n dom.Node) bool {
	p := n.Parent()
	if p == nil {
		return true
	}
	return dom.Closest(p, sectioningSelector) == nil
}

// skipLandmark applies the main/shell partition during traversal. Roots are
// never skipped by the mode they were chosen for.
func (s *state) skipLandmark(n dom.Node, mode walkMode) bool {
	if (mode == modeMain && s.mainRoots[n]) || (mode == modeShell && s.shellRoots[n]) {
		return false
	}
	tag := n.Tag()
	role := lowerAttr(n, "role")
	if !s.cfg.includeFooter && ((tag == "footer" && isPageLandmark(n)) || role == "contentinfo") {
		return true
	}
	switch mode {
	case modeMain:
		switch {
		case tag == "nav" || tag == "aside":
			return true
		case tag == "header" && isPageLandmark(n):
			return true
		case role == "navigation" || role == "banner" || role == "complementary":
			return true
		}
	case modeShell:
		return tag == "main" || tag == "article" || role == "main" || role == "article"
	}
	return false
}

func lowerAttr(n dom.Node, name string) string {
	return strings.ToLower(dom.AttrValue(n, name))
}
