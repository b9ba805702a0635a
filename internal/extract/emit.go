package extract

import (
	"github.com/hyperifyio/pagetext/internal/dom"
)

// walkMode selects which landmark regions a traversal may enter.
type walkMode int

const (
	modeMain walkMode = iota
	modeShell
)

// Line is one emitted output line.
type Line struct {
	Text string `json:"text"`
	Ref  string `json:"ref,omitempty"`
}

// candidate is a line offered to the emission engine.
type candidate struct {
	text   string
	prefix string // "- ", "## ", "> ", list indentation; never cleaned
	ref    string
	// heading lines are never suppressed as duplicates.
	heading bool
	// exempt lines (list remainders, link table) are never suppressed.
	exempt bool
	// verbatim skips code-likeness rejection.
	verbatim bool
}

// state is the per-call extraction context. It is owned by one Extract call.
type state struct {
	cfg config

	lines     []Line
	items     int
	truncated bool

	window []string
	seen   map[string]struct{}

	links *linkRegistry

	shellBudget int
	shellLines  int
	fallback    bool

	mainRoots  map[dom.Node]bool
	shellRoots map[dom.Node]bool
}

func newState(cfg config) *state {
	return &state{
		cfg:        cfg,
		seen:       make(map[string]struct{}),
		links:      newLinkRegistry(),
		mainRoots:  make(map[dom.Node]bool),
		shellRoots: make(map[dom.Node]bool),
	}
}

func (s *state) isRoot(n dom.Node) bool {
	return s.mainRoots[n] || s.shellRoots[n]
}

// emit is the single path by which lines reach the output. It reports
// whether the line was appended.
func (s *state) emit(mode walkMode, c candidate) bool {
	if s.truncated {
		return false
	}
	if mode == modeShell && s.shellBudget <= 0 {
		return false
	}
	body := c.text
	if c.verbatim {
		body = collapseSpace(body)
	} else {
		body = clean(body)
	}
	body = normalizeBullets(body)
	if body == "" {
		return false
	}
	fp := fingerprint(body)
	if s.cfg.dedupe && !c.heading && !c.exempt && s.recent(fp) {
		return false
	}
	if s.cfg.maxItems > 0 && s.items >= s.cfg.maxItems {
		s.truncated = true
		return false
	}

	decoration := ""
	if c.ref != "" {
		decoration = "@" + c.ref + " "
	}
	if s.cfg.maxLine > 0 {
		room := s.cfg.maxLine - runeLen(c.prefix) - runeLen(decoration)
		if room < 1 {
			room = 1
		}
		body = truncateLine(body, room)
	}
	s.lines = append(s.lines, Line{Text: c.prefix + decoration + body, Ref: c.ref})
	s.items++
	if mode == modeShell {
		s.shellBudget--
		s.shellLines++
	}
	s.remember(fp)
	return true
}

func (s *state) recent(fp string) bool {
	if fp == "" {
		return false
	}
	_, ok := s.seen[fp]
	return ok
}

// remember pushes fp into the bounded FIFO window, evicting the oldest entry
// when full. Fingerprints already present are not re-inserted.
func (s *state) remember(fp string) {
	if fp == "" || s.recent(fp) {
		return
	}
	s.window = append(s.window, fp)
	s.seen[fp] = struct{}{}
	for len(s.window) > s.cfg.window {
		delete(s.seen, s.window[0])
		s.window = s.window[1:]
	}
}
