package extract

import (
	"regexp"
	"strings"

	"github.com/hyperifyio/pagetext/internal/dom"
)

var (
	fallbackSelector = "h2, h3, h4, p, blockquote, figcaption, li"
	blankLineRe      = regexp.MustCompile(`\n\s*\n`)

	// nodes whose text Text() keeps but the walk would not.
	textExclusionSelector = "[aria-hidden=true], nav, aside, header, footer, " +
		"[role=navigation], [role=banner], [role=complementary], [role=contentinfo]"
)

// lowYield reports whether the lines from start on are too few or too short.
func (s *state) lowYield(start int) bool {
	lines := s.lines[start:]
	if len(lines) < fallbackMinLines {
		return true
	}
	chars := 0
	for _, l := range lines {
		chars += runeLen(l.Text)
	}
	return chars < fallbackMinChars
}

// runFallback re-reads each root with a flat sweep over semantic text tags.
// It ignores maxDepth but keeps every visibility and landmark rule, and all
// lines still go through emit.
func (s *state) runFallback(roots []dom.Node, start int) {
	s.fallback = true
	for _, root := range roots {
		for _, n := range root.Query(fallbackSelector) {
			if s.truncated {
				return
			}
			if s.excluded(n, root) {
				continue
			}
			s.sweep(n)
		}
	}
	if len(s.lines)-start >= fallbackMinLines {
		return
	}
	for _, root := range roots {
		for _, seg := range blankLineRe.Split(s.visibleText(root), -1) {
			if s.truncated {
				return
			}
			text := clean(seg)
			if wordCount(text) < fallbackMinWords {
				continue
			}
			s.emit(modeMain, candidate{text: text})
		}
	}
}

func (s *state) sweep(n dom.Node) {
	switch tag := n.Tag(); {
	case headingTags[tag]:
		// the primary pass may already have emitted this heading.
		if s.recent(fingerprint(normalizeBullets(clean(s.inlineText(n))))) {
			return
		}
		s.emitHeading(n, modeMain, 2)
	case tag == "blockquote":
		s.emit(modeMain, candidate{text: s.inlineText(n), prefix: "> "})
	case tag == "li":
		text := s.inlineText(n)
		if text == "" {
			text = compactLines(n.Text())
		}
		s.emit(modeMain, candidate{text: text, prefix: "- ", ref: s.anchorRef(s.anchorFor(n))})
	default:
		s.emit(modeMain, candidate{text: s.inlineText(n)})
	}
}

// excluded reports whether n or an ancestor up to root is hidden, unrendered
// or a skipped landmark.
func (s *state) excluded(n, root dom.Node) bool {
	for p := n; p != nil; p = p.Parent() {
		if skipTags[p.Tag()] || isHiddenNode(p) {
			return true
		}
		if p == root {
			return false
		}
		if s.skipLandmark(p, modeMain) {
			return true
		}
	}
	return false
}

// visibleText is root.Text() without the regions the walk skips. Subtrees
// free of such regions are taken whole.
func (s *state) visibleText(n dom.Node) string {
	if len(n.Query(textExclusionSelector)) == 0 {
		return n.Text()
	}
	var b strings.Builder
	for _, c := range n.ChildNodes() {
		if !c.IsElement() {
			b.WriteString(c.RawText())
			continue
		}
		if skipTags[c.Tag()] || isHiddenNode(c) || s.skipLandmark(c, modeMain) {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(s.visibleText(c))
		b.WriteString("\n\n")
	}
	return b.String()
}
