package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hyperifyio/pagetext/internal/dom"
)

const (
	minChips          = 3
	minChipTexts      = 2
	shortChipRatio    = 0.7
	shortChipChars    = 40
	headingLabelChars = 40
	plainLabelChars   = 30
)

var (
	filterContainerTags = tagSet("div", "section", "aside", "form", "fieldset", "nav", "header", "footer")
	filterContainerRole = tagSet("group", "toolbar", "radiogroup", "tablist", "listbox")
	labelLikeTags       = tagSet("h2", "h3", "h4", "h5", "h6", "label", "legend", "summary", "strong", "b", "dt")

	chipSelector      = "button, a, [role=button], [role=link]"
	filterBlockerSel  = "h1, [aria-level='1'], article, table, ul, ol"
	activeStateValues = tagSet("checked", "selected", "active", "on")

	digitGroupRe  = regexp.MustCompile(`\d+`)
	comparisonRe  = regexp.MustCompile(`^[<>≤≥=~]+\s*\d`)
	resetRe       = regexp.MustCompile(`(?i)^reset`)
	moreCounterRe = regexp.MustCompile(`^\+\s*(\d+)`)
)

type filterItem struct {
	text   string
	active bool
}

// filterGroup is a detected facet widget. It lives only long enough to be
// formatted.
type filterGroup struct {
	label string
	items []filterItem
}

// detectFilterGroup reports whether n is a cluster of short selectable chips
// and, if so, returns its label and items.
func (s *state) detectFilterGroup(n dom.Node) (filterGroup, bool) {
	if s.isRoot(n) {
		return filterGroup{}, false
	}
	role := strings.ToLower(dom.AttrValue(n, "role"))
	if !filterContainerTags[n.Tag()] && !filterContainerRole[role] {
		return filterGroup{}, false
	}
	if len(n.Query(filterBlockerSel)) > 0 {
		return filterGroup{}, false
	}
	chips := s.chips(n)
	if len(chips) < minChips {
		return filterGroup{}, false
	}

	var items []filterItem
	short := 0
	for _, c := range chips {
		text := s.chipText(c)
		if text == "" {
			continue
		}
		if runeLen(text) <= shortChipChars {
			short++
		}
		items = append(items, filterItem{text: text, active: isActiveChip(c)})
	}
	if len(items) < minChipTexts || float64(short) < shortChipRatio*float64(len(items)) {
		return filterGroup{}, false
	}
	return filterGroup{label: s.groupLabel(n), items: items}, true
}

// chips returns the visible, outermost clickable descendants of n.
func (s *state) chips(n dom.Node) []dom.Node {
	var out []dom.Node
	for _, c := range n.Query(chipSelector) {
		if dom.ClosestWithin(c.Parent(), n, chipSelector) != nil {
			continue
		}
		if hiddenWithin(c, n) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// hiddenWithin reports whether n or any ancestor below stop is hidden.
func hiddenWithin(n, stop dom.Node) bool {
	for p := n; p != nil && p != stop; p = p.Parent() {
		if isHiddenNode(p) {
			return true
		}
	}
	return false
}

func (s *state) chipText(c dom.Node) string {
	text := clean(s.inlineText(c))
	if text == "" {
		text = clean(dom.AttrValue(c, "aria-label"))
	}
	return text
}

func isActiveChip(c dom.Node) bool {
	for _, attr := range []string{"aria-pressed", "aria-selected", "aria-checked"} {
		if strings.EqualFold(dom.AttrValue(c, attr), "true") {
			return true
		}
	}
	if v, ok := c.Attr("aria-current"); ok {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && v != "false" {
			return true
		}
	}
	if activeStateValues[strings.ToLower(dom.AttrValue(c, "data-state"))] {
		return true
	}
	class := strings.ToLower(dom.AttrValue(c, "class"))
	return strings.Contains(class, "active") || strings.Contains(class, "selected") || strings.Contains(class, "checked")
}

// groupLabel tries, in order: aria-label, a heading-like direct child, a
// plain direct child, any non-interactive descendant, the previous sibling.
func (s *state) groupLabel(n dom.Node) string {
	if l := labelCandidate(dom.AttrValue(n, "aria-label"), headingLabelChars); l != "" {
		return l
	}
	for _, c := range n.Children() {
		if !isLabelLike(c) || s.interactive(c) {
			continue
		}
		if l := labelCandidate(s.inlineText(c), headingLabelChars); l != "" {
			return l
		}
	}
	for _, c := range n.Children() {
		if s.interactive(c) || skipTags[c.Tag()] {
			continue
		}
		if l := labelCandidate(s.inlineText(c), plainLabelChars); l != "" {
			return l
		}
	}
	for _, c := range n.Query("*") {
		if s.interactive(c) || skipTags[c.Tag()] || dom.ClosestWithin(c.Parent(), n, chipSelector) != nil {
			continue
		}
		if l := labelCandidate(s.inlineText(c), plainLabelChars); l != "" {
			return l
		}
	}
	if prev := dom.PrevElementSibling(n); prev != nil && !isHiddenNode(prev) {
		if l := labelCandidate(s.inlineText(prev), plainLabelChars); l != "" {
			return l
		}
	}
	return ""
}

// interactive reports a chip or an element wrapping one.
func (s *state) interactive(n dom.Node) bool {
	return n.Matches(chipSelector) || len(n.Query(chipSelector)) > 0
}

func isLabelLike(n dom.Node) bool {
	if labelLikeTags[n.Tag()] || strings.EqualFold(dom.AttrValue(n, "role"), "heading") {
		return true
	}
	class := strings.ToLower(dom.AttrValue(n, "class"))
	return strings.Contains(class, "label") || strings.Contains(class, "title") || strings.Contains(class, "heading")
}

func labelCandidate(text string, max int) string {
	text = strings.TrimSpace(strings.TrimSuffix(clean(text), ":"))
	if text == "" || runeLen(text) > max || !plausibleLabel(text) {
		return ""
	}
	return text
}

// plausibleLabel rejects counts, ranges and reset controls. Digit-heavy
// category names such as year ranges are rejected too.
func plausibleLabel(text string) bool {
	if resetRe.MatchString(text) || comparisonRe.MatchString(text) {
		return false
	}
	groups := len(digitGroupRe.FindAllString(text, -1))
	if groups >= 3 {
		return false
	}
	return !(groups >= 2 && len(strings.Fields(text)) >= 3)
}

// formatFilterGroup renders g as "Label: a, b, c (+K more)". It returns ""
// when no item survives.
func formatFilterGroup(g filterGroup, mode FilterMode, maxItems int) string {
	folded := 0
	seen := make(map[string]int)
	var items []filterItem
	for _, it := range g.items {
		if resetRe.MatchString(it.text) {
			continue
		}
		if m := moreCounterRe.FindStringSubmatch(it.text); m != nil {
			if k, err := strconv.Atoi(m[1]); err == nil {
				folded += k
			}
			continue
		}
		key := strings.ToLower(it.text)
		if i, ok := seen[key]; ok {
			items[i].active = items[i].active || it.active
			continue
		}
		seen[key] = len(items)
		items = append(items, it)
	}
	if len(items) == 0 {
		return ""
	}

	if mode == FilterCompact {
		ordered := make([]filterItem, 0, len(items))
		for _, it := range items {
			if it.active {
				ordered = append(ordered, it)
			}
		}
		for _, it := range items {
			if !it.active {
				ordered = append(ordered, it)
			}
		}
		items = ordered
	}

	shown := items
	if maxItems > 0 && len(shown) > maxItems {
		shown = shown[:maxItems]
	}
	names := make([]string, len(shown))
	for i, it := range shown {
		names[i] = it.text
	}
	line := strings.Join(names, ", ")
	if g.label != "" {
		line = g.label + ": " + line
	}
	if more := len(items) - len(shown) + folded; more > 0 {
		line += fmt.Sprintf(" (+%d more)", more)
	}
	return line
}
