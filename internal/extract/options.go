package extract

import "strings"

// FilterMode controls how facet/filter widgets are rendered.
type FilterMode string

const (
	// FilterSummary lists a group's items in document order on one line.
	FilterSummary FilterMode = "summary"
	// FilterCompact lists active items first, then the rest, on one line.
	FilterCompact FilterMode = "compact"
	// FilterFull disables filter detection; widgets are walked normally.
	FilterFull FilterMode = "full"
)

// ParseFilterMode maps a user-supplied name to a FilterMode. Unknown names
// fall back to FilterSummary and report ok=false.
func ParseFilterMode(s string) (FilterMode, bool) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case FilterSummary, "":
		return FilterSummary, true
	case FilterCompact:
		return FilterCompact, true
	case FilterFull:
		return FilterFull, true
	}
	return FilterSummary, false
}

// Options configures one extraction. Start from DefaultOptions; zero values
// of the numeric caps mean "unbounded" and negative ones clamp to the
// smallest cap (1 item, 40 runes).
type Options struct {
	// Selector, when it matches, overrides automatic root selection.
	Selector string
	// MaxDepth bounds structural recursion below each root.
	MaxDepth int
	// MaxItems caps the number of output lines. 0 means unbounded.
	MaxItems int
	// MaxListItems caps walked children per list. 0 means unbounded.
	MaxListItems int
	// MaxLineLength caps rune length per line. 0 means unbounded.
	MaxLineLength int
	FilterMode    FilterMode
	Links         bool
	Dedupe        bool
	// DedupeWindow is the number of recent line fingerprints remembered.
	DedupeWindow  int
	IncludeFooter bool
	IncludeShell  bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:     6,
		FilterMode:   FilterSummary,
		Links:        true,
		Dedupe:       true,
		DedupeWindow: 120,
	}
}

const (
	minLineLength       = 40
	minDedupeWindow     = 10
	workingLineLength   = 300
	articleLineFloor    = 360
	shellItemBudget     = 60
	shellLinkBudget     = 60
	fallbackMinLines    = 8
	fallbackMinChars    = 400
	fallbackMinWords    = 4
	collapsedLabelChars = 60
)

// config is the resolved, clamped form of Options.
type config struct {
	selector      string
	maxDepth      int
	maxItems      int
	maxListItems  int
	maxLine       int
	workLine      int
	filterMode    FilterMode
	links         bool
	dedupe        bool
	window        int
	includeFooter bool
	includeShell  bool
}

func (o Options) resolve() config {
	c := config{
		selector:      strings.TrimSpace(o.Selector),
		maxDepth:      o.MaxDepth,
		maxItems:      o.MaxItems,
		maxListItems:  o.MaxListItems,
		maxLine:       o.MaxLineLength,
		filterMode:    o.FilterMode,
		links:         o.Links,
		dedupe:        o.Dedupe,
		window:        o.DedupeWindow,
		includeFooter: o.IncludeFooter,
		includeShell:  o.IncludeShell,
	}
	if c.maxDepth < 0 {
		c.maxDepth = 0
	}
	// 0 is unset; anything else below range clamps to the nearest bound.
	if c.maxItems < 0 {
		c.maxItems = 1
	}
	if c.maxListItems < 0 {
		c.maxListItems = 1
	}
	if c.maxLine != 0 && c.maxLine < minLineLength {
		c.maxLine = minLineLength
	}
	if c.window < minDedupeWindow {
		c.window = minDedupeWindow
	}
	if mode, ok := ParseFilterMode(string(c.filterMode)); ok {
		c.filterMode = mode
	} else {
		c.filterMode = FilterSummary
	}
	c.workLine = c.maxLine
	if c.workLine == 0 {
		c.workLine = workingLineLength
	}
	return c
}

// widenForArticle raises the line-length floor for readable articles.
func (c *config) widenForArticle() {
	if c.maxLine > 0 && c.maxLine < articleLineFloor {
		c.maxLine = articleLineFloor
	}
	if c.workLine < articleLineFloor {
		c.workLine = articleLineFloor
	}
}
