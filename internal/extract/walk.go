package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperifyio/pagetext/internal/dom"
)

func tagSet(tags ...string) map[string]bool {
	m := make(map[string]bool, len(tags))
	for _, t := range tags {
		m[t] = true
	}
	return m
}

var (
	skipTags = tagSet("script", "style", "noscript", "svg", "template", "iframe",
		"canvas", "object", "embed", "link", "meta", "head", "title", "base",
		"select", "option", "datalist", "textarea", "input", "map", "source", "track")

	headingTags   = tagSet("h1", "h2", "h3", "h4", "h5", "h6")
	blockTextTags = tagSet("p", "blockquote", "pre", "figcaption", "address", "dd", "dt")
	containerTags = tagSet("div", "section", "article", "main", "aside", "header",
		"footer", "form", "fieldset")
	phrasingTags = tagSet("span", "b", "strong", "em", "i", "small", "label", "time",
		"code", "mark", "abbr", "cite", "q", "sub", "sup", "u", "s", "del", "ins",
		"kbd", "var", "font", "bdi", "bdo", "data", "samp")

	blockLevelTags = []string{"p", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol",
		"li", "table", "blockquote", "pre", "figure", "section", "article", "main",
		"aside", "header", "footer", "nav", "form", "fieldset", "dl", "details",
		"hr", "address"}
	blockLevelSelector = strings.Join(blockLevelTags, ", ")
	blockLevel         = tagSet(blockLevelTags...)

	// an a/button under one of these is part of a larger line.
	inlineOwnerSelector = "h1, h2, h3, h4, h5, h6, p, li, label, a, button, blockquote, " +
		"dt, dd, figcaption, summary, legend, [role=heading]"
)

// walk is the recursive dispatcher. depth counts structural levels below the
// root; listDepth only drives bullet indentation.
func (s *state) walk(n dom.Node, depth, listDepth int, mode walkMode) {
	if s.truncated || n == nil || !n.IsElement() || depth > s.cfg.maxDepth {
		return
	}
	tag := n.Tag()
	if skipTags[tag] || s.skipLandmark(n, mode) {
		return
	}
	if isHiddenNode(n) {
		s.emitCollapsedLabel(n, mode)
		return
	}

	switch {
	case tag == "ul" || tag == "ol":
		s.walkList(n, depth, listDepth, mode)
		return
	case isHeadingNode(n):
		s.emitHeading(n, mode, 1)
		return
	case tag == "blockquote":
		s.emit(mode, candidate{text: s.inlineText(n), prefix: "> "})
		return
	case tag == "figure":
		s.emitFigure(n, mode)
		return
	case tag == "img":
		alt := dom.AttrValue(n, "alt")
		if alt == "" {
			alt = "Image"
		}
		s.emit(mode, candidate{text: alt, prefix: "- ", ref: s.mediaRef(n.Source())})
		return
	case tag == "video":
		label := dom.AttrValue(n, "aria-label")
		if label == "" {
			label = "Video"
		}
		s.emit(mode, candidate{text: label, prefix: "- ", ref: s.mediaRef(n.Source())})
		return
	case tag == "li":
		s.walkListItem(n, depth, listDepth, mode)
		return
	}

	if s.cfg.filterMode != FilterFull {
		if g, ok := s.detectFilterGroup(n); ok {
			if line := formatFilterGroup(g, s.cfg.filterMode, s.cfg.maxListItems); line != "" {
				s.emit(mode, candidate{text: line})
			}
			return
		}
	}
	if s.isCard(n) {
		s.emitCard(n, mode)
		return
	}
	if blockTextTags[tag] {
		s.emit(mode, candidate{text: s.inlineText(n)})
		return
	}
	if containerTags[tag] && !s.isRoot(n) && mode != modeShell && s.collapseContainer(n, mode) {
		return
	}
	if (tag == "a" || tag == "button") && s.standalone(n) {
		s.emitControl(n, mode)
		return
	}
	if s.leafLike(n) {
		text := strings.TrimSpace(n.RawText())
		if len(n.Children()) > 0 {
			text = s.inlineText(n)
		}
		s.emit(mode, candidate{text: text, ref: s.anchorRef(s.anchorFor(n))})
		return
	}

	for _, c := range n.ChildNodes() {
		if c.IsElement() {
			s.walk(c, depth+1, listDepth, mode)
			continue
		}
		if t := strings.TrimSpace(c.RawText()); t != "" {
			s.emit(mode, candidate{text: t})
		}
	}
}

// isHiddenNode covers explicit hiding and computed visibility.
func isHiddenNode(n dom.Node) bool {
	if dom.HasAttr(n, "hidden") {
		return true
	}
	if strings.EqualFold(dom.AttrValue(n, "aria-hidden"), "true") {
		return true
	}
	return n.Hidden()
}

// emitCollapsedLabel keeps small hidden nodes that read like the title of a
// collapsed section.
func (s *state) emitCollapsedLabel(n dom.Node, mode walkMode) {
	if len(n.Children()) > 2 {
		return
	}
	text := clean(n.RawText())
	if text == "" || runeLen(text) > collapsedLabelChars || !hasLetter(text) || runeLen(text) < 2 {
		return
	}
	s.emit(mode, candidate{text: text, prefix: "### ", heading: true})
}

func hasLetter(s string) bool {
	for _, r := range s {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 0x7f && !strings.ContainsRune(bulletGlyphs+ellipsis, r) {
			return true
		}
	}
	return false
}

func isHeadingNode(n dom.Node) bool {
	tag := n.Tag()
	if headingTags[tag] || tag == "summary" || tag == "legend" {
		return true
	}
	return strings.EqualFold(dom.AttrValue(n, "role"), "heading")
}

// headingLevel is the explicit tag number, else aria-level, else 3.
func headingLevel(n dom.Node) int {
	tag := n.Tag()
	if headingTags[tag] {
		return int(tag[1] - '0')
	}
	level := 3
	if v, err := strconv.Atoi(dom.AttrValue(n, "aria-level")); err == nil {
		level = v
	}
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return level
}

func (s *state) emitHeading(n dom.Node, mode walkMode, minLevel int) bool {
	level := headingLevel(n)
	if level < minLevel {
		level = minLevel
	}
	return s.emit(mode, candidate{
		text:    s.inlineText(n),
		prefix:  strings.Repeat("#", level) + " ",
		ref:     s.anchorRef(s.anchorFor(n)),
		heading: true,
	})
}

func (s *state) emitFigure(n dom.Node, mode walkMode) {
	var img, video dom.Node
	if imgs := n.Query("img"); len(imgs) > 0 {
		img = imgs[0]
	}
	if videos := n.Query("video"); len(videos) > 0 {
		video = videos[0]
	}
	caption := ""
	if caps := n.Query("figcaption"); len(caps) > 0 {
		caption = s.inlineText(caps[0])
	}
	if caption == "" && img != nil {
		caption = dom.AttrValue(img, "alt")
	}
	if caption == "" {
		caption = "Media"
	}
	src := ""
	if img != nil {
		src = img.Source()
	}
	if src == "" && video != nil {
		src = video.Source()
	}
	s.emit(mode, candidate{text: caption, prefix: "- ", ref: s.mediaRef(src)})
}

func (s *state) walkList(n dom.Node, depth, listDepth int, mode walkMode) {
	var items []dom.Node
	for _, c := range n.Children() {
		if !skipTags[c.Tag()] {
			items = append(items, c)
		}
	}
	limit := len(items)
	if s.cfg.maxListItems > 0 && limit > s.cfg.maxListItems {
		limit = s.cfg.maxListItems
	}
	for _, item := range items[:limit] {
		s.walk(item, depth+1, listDepth+1, mode)
	}
	if rest := len(items) - limit; rest > 0 {
		s.emit(mode, candidate{
			text:   fmt.Sprintf("%s (%d more)", ellipsis, rest),
			prefix: indent(listDepth + 1),
			exempt: true,
		})
	}
}

func (s *state) walkListItem(n dom.Node, depth, listDepth int, mode walkMode) {
	nested := nestedLists(n)
	text := s.inlineText(n)
	if text == "" && len(nested) == 0 {
		text = compactLines(n.Text())
	}
	s.emit(mode, candidate{text: text, prefix: bulletPrefix(listDepth), ref: s.anchorRef(s.anchorFor(n))})
	for _, l := range nested {
		s.walk(l, depth+1, listDepth, mode)
	}
}

func indent(listDepth int) string {
	if listDepth <= 1 {
		return ""
	}
	return strings.Repeat("  ", listDepth-1)
}

func bulletPrefix(listDepth int) string {
	return indent(listDepth) + "- "
}

// nestedLists returns the outermost ul/ol descendants of n.
func nestedLists(n dom.Node) []dom.Node {
	var out []dom.Node
	for _, l := range n.Query("ul, ol") {
		if dom.ClosestWithin(l.Parent(), n, "ul, ol") == nil {
			out = append(out, l)
		}
	}
	return out
}

// collapseContainer emits a small, block-free container as one line.
func (s *state) collapseContainer(n dom.Node, mode walkMode) bool {
	if len(n.Children()) > 3 || hasBlockDescendant(n) {
		return false
	}
	text := s.inlineText(n)
	if text == "" || runeLen(text) > s.cfg.workLine {
		return false
	}
	ref := ""
	if anchors := n.Query("a[href]"); len(anchors) == 1 {
		ref = s.anchorRef(anchors[0])
	}
	s.emit(mode, candidate{text: text, ref: ref})
	return true
}

func hasBlockDescendant(n dom.Node) bool {
	return len(n.Query(blockLevelSelector)) > 0
}

// standalone reports an a/button that is not part of a heading, block or
// label line.
func (s *state) standalone(n dom.Node) bool {
	return dom.Closest(n.Parent(), inlineOwnerSelector) == nil
}

func (s *state) emitControl(n dom.Node, mode walkMode) {
	text := s.inlineText(n)
	if text == "" {
		text = dom.AttrValue(n, "aria-label")
	}
	if text == "" {
		text = dom.AttrValue(n, "title")
	}
	if text == "" {
		if imgs := n.Query("img[alt]"); len(imgs) > 0 {
			text = dom.AttrValue(imgs[0], "alt")
		}
	}
	ref := ""
	if n.Tag() == "a" {
		ref = s.anchorRef(n)
	}
	s.emit(mode, candidate{text: text, prefix: "- ", ref: ref})
}

// leafLike is a node without element children, or a phrasing element whose
// subtree holds only inline content.
func (s *state) leafLike(n dom.Node) bool {
	if len(n.Children()) == 0 {
		return true
	}
	return phrasingTags[n.Tag()] && !hasBlockDescendant(n) && len(n.Query("div, img, video, button")) == 0
}

// anchorFor finds the anchor a line should link to: n itself, its nearest
// anchor ancestor, or its first anchor descendant outside nested lists.
func (s *state) anchorFor(n dom.Node) dom.Node {
	if a := dom.Closest(n, "a[href]"); a != nil {
		return a
	}
	for _, a := range n.Query("a[href]") {
		if dom.ClosestWithin(a.Parent(), n, "ul, ol") == nil {
			return a
		}
	}
	return nil
}

// inlineText gathers the visible text of n on one line. Nested lists are
// left out; block boundaries become spaces.
func (s *state) inlineText(n dom.Node) string {
	var b strings.Builder
	collectInline(n, &b)
	return collapseSpace(b.String())
}

func collectInline(n dom.Node, b *strings.Builder) {
	for _, c := range n.ChildNodes() {
		if !c.IsElement() {
			b.WriteString(c.RawText())
			continue
		}
		tag := c.Tag()
		if skipTags[tag] || tag == "ul" || tag == "ol" || isHiddenNode(c) {
			continue
		}
		if tag == "br" {
			b.WriteByte(' ')
			continue
		}
		block := blockLevel[tag] || tag == "div"
		if block {
			b.WriteByte(' ')
		}
		collectInline(c, b)
		if block {
			b.WriteByte(' ')
		}
	}
}
